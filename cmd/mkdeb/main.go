// Command mkdeb builds a Debian binary package from a payload directory and
// a control directory.
//
// Usage:
//
//	mkdeb [flags] DATA_DIR CONTROL_DIR
//	mkdeb inspect [--verify] FILE
//
// The package is written as <Package>_<Version>-<Architecture>.deb in the
// output directory and its path is printed on stdout.
//
// Exit status is 1 on usage errors, 2 when DATA_DIR, CONTROL_DIR or
// CONTROL_DIR/control is missing, and 1 on any other failure.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/etnz/mkdeb/deb"
	"github.com/spf13/cobra"
)

const (
	exitFailure      = 1
	exitMissingInput = 2
)

// usageError marks errors caused by the command line itself.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

type buildOptions struct {
	config         string
	outputDir      string
	compression    string
	defines        kvFlags
	padFinalMember bool
	mtime          int64
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	logger := log.NewWithOptions(stderr, log.Options{Prefix: "mkdeb"})

	root := newRootCmd(stdout, logger)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteC()
	if err == nil {
		return 0
	}

	var uerr *usageError
	switch {
	case errors.As(err, &uerr):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprint(stderr, cmd.UsageString())
		return exitFailure
	case errors.Is(err, deb.ErrMissingInput):
		logger.Error(err)
		return exitMissingInput
	default:
		logger.Error(err)
		return exitFailure
	}
}

func newRootCmd(stdout io.Writer, logger *log.Logger) *cobra.Command {
	var (
		verbose bool
		opts    buildOptions
	)

	root := &cobra.Command{
		Use:   "mkdeb [flags] DATA_DIR CONTROL_DIR",
		Short: "Build a Debian binary package",
		Long: `mkdeb packages DATA_DIR, laid out as on the target system, and the
metadata found in CONTROL_DIR (a 'control' file plus optional maintainer
scripts) into <Package>_<Version>-<Architecture>.deb.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				return &usageError{err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(log.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, &opts, args[0], args[1], stdout, logger)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err}
	})

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every build step")

	flags := root.Flags()
	flags.StringVar(&opts.config, "config", "", "YAML file with default settings")
	flags.StringVarP(&opts.outputDir, "output-dir", "o", ".", "directory receiving the package")
	flags.StringVarP(&opts.compression, "compression", "Z", string(deb.CompressionGzip), "archive compression: gzip, xz, zstd or none")
	flags.VarP(&opts.defines, "define", "D", "render the control file as a template with KEY=VALUE (repeatable)")
	flags.BoolVar(&opts.padFinalMember, "pad-final-member", false, "pad an odd-sized last member like the others")
	flags.Int64Var(&opts.mtime, "mtime", 0, "timestamp of archive entries, in seconds since the epoch (default $SOURCE_DATE_EPOCH or now)")

	root.AddCommand(newInspectCmd(stdout))
	return root
}

// checkInputs reports the first missing input with ErrMissingInput.
func checkInputs(dataDir, controlDir string) error {
	for _, dir := range []string{dataDir, controlDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", deb.ErrMissingInput, dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", deb.ErrMissingInput, dir)
		}
	}
	control := filepath.Join(controlDir, string(deb.FileControl))
	if _, err := os.Stat(control); err != nil {
		return fmt.Errorf("%w: %s: %v", deb.ErrMissingInput, control, err)
	}
	return nil
}

// resolveConfig merges the configuration sources. Flags set on the command
// line win over the config file, which wins over SOURCE_DATE_EPOCH.
func resolveConfig(cmd *cobra.Command, opts *buildOptions) (*Config, error) {
	flags := cmd.Flags()

	var compression deb.Compression
	if flags.Changed("compression") {
		c, err := deb.ParseCompression(opts.compression)
		if err != nil {
			return nil, &usageError{err}
		}
		compression = c
	}

	cfg := &Config{Compression: deb.CompressionGzip, OutputDir: "."}
	if opts.config != "" {
		var err error
		if cfg, err = decodeConfig(opts.config); err != nil {
			return nil, err
		}
		if cfg.OutputDir == "" {
			cfg.OutputDir = "."
		}
	}
	if cfg.ModTime.IsZero() {
		epoch, err := sourceDateEpoch()
		if err != nil {
			return nil, err
		}
		cfg.ModTime = epoch
	}

	if compression != "" {
		cfg.Compression = compression
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = opts.outputDir
	}
	if flags.Changed("mtime") {
		cfg.ModTime = time.Unix(opts.mtime, 0)
	}
	if flags.Changed("pad-final-member") {
		cfg.PadFinalMember = opts.padFinalMember
	}
	if len(opts.defines) > 0 {
		merged := make(map[string]string, len(cfg.Defines)+len(opts.defines))
		for k, v := range cfg.Defines {
			merged[k] = v
		}
		for k, v := range opts.defines {
			merged[k] = v
		}
		cfg.Defines = merged
	}
	return cfg, nil
}

func runBuild(cmd *cobra.Command, opts *buildOptions, dataDir, controlDir string, stdout io.Writer, logger *log.Logger) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}
	if err := checkInputs(dataDir, controlDir); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	b := &deb.Builder{
		DataDir:        dataDir,
		ControlDir:     controlDir,
		OutputDir:      cfg.OutputDir,
		Compression:    cfg.Compression,
		ModTime:        cfg.ModTime,
		PadFinalMember: cfg.PadFinalMember,
		Defines:        cfg.Defines,
		Listener:       logEvents(logger),
	}
	path, err := b.Build()
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, path)
	return nil
}

// logEvents turns build events into log lines.
func logEvents(logger *log.Logger) deb.Listener {
	return func(e fmt.Stringer) {
		switch e := e.(type) {
		case deb.EventControlLoaded:
			logger.Debug("control loaded", "path", e.Path, "package", e.Package, "version", e.Version, "architecture", e.Architecture, "fields", e.Fields)
		case deb.EventPayloadScanned:
			logger.Debug("payload scanned", "path", e.Path, "files", e.Files, "bytes", e.TotalSize, "installed-size", e.InstalledSize)
		case deb.EventBundleBuilt:
			logger.Debug("archive built", "member", e.Member, "size", e.Size)
		case deb.EventPackageWritten:
			logger.Debug("package written", "path", e.Path, "size", e.Size)
		default:
			logger.Debug(e.String())
		}
	}
}
