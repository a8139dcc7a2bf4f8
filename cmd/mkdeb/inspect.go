package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/etnz/mkdeb/deb"
	"github.com/spf13/cobra"
)

func newInspectCmd(stdout io.Writer) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "inspect [--verify] FILE",
		Short: "Print the members and control fields of a package",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return &usageError{err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0], verify, stdout)
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "check md5sums against the data archive")
	return cmd
}

func runInspect(path string, verify bool, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", deb.ErrMissingInput, path)
		}
		return err
	}
	defer f.Close()

	a, err := deb.Inspect(f)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", path, err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, m := range a.Members {
		fmt.Fprintf(tw, "%s\t%d\t%o\t%s\n", m.Name, m.Size, m.Mode, m.ModTime.UTC().Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if a.Control != nil {
		fmt.Fprintln(w)
		if _, err := a.Control.WriteTo(w); err != nil {
			return err
		}
	}

	if verify {
		if err := a.Verify(); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(w, "\n%s: %d files verified\n", path, len(a.Md5sums))
	}
	return nil
}
