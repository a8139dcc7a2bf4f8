package deb

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/renameio"
)

const (
	arMagic      = "!<arch>\n"
	arHeaderSize = 60
	arNameSize   = 16
	arFileMode   = "100644"
)

// Member is one file of the ar container.
type Member struct {
	Name    string
	ModTime time.Time
	Data    []byte
}

// AssembleOptions controls the framing of the ar container.
type AssembleOptions struct {
	// PadFinalMember writes the newline padding after an odd-sized last
	// member too, as plain ar(1) does. By default the last member is never
	// padded.
	PadFinalMember bool
}

// countingWriter wraps an io.Writer and counts the bytes written.
type countingWriter struct {
	w io.Writer
	n int64
}

// Write writes p to the underlying io.Writer and increments the byte count.
func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// arHeader renders the fixed-width 60 byte header of a member.
func arHeader(m Member) ([]byte, error) {
	if m.Name == "" || len(m.Name) > arNameSize {
		return nil, fmt.Errorf("%w: %q", ErrMemberName, m.Name)
	}
	modTime := m.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}
	hdr := fmt.Sprintf("%-16s%-12d%-6s%-6s%-8s%-10d`\n",
		m.Name,
		modTime.Unix(),
		"0",
		"0",
		arFileMode,
		len(m.Data),
	)
	if len(hdr) != arHeaderSize {
		return nil, fmt.Errorf("ar header for %s does not fit %d bytes", m.Name, arHeaderSize)
	}
	return []byte(hdr), nil
}

// Assemble writes the ar container holding members, in order, to w.
// It returns the number of bytes written.
//
// Every member is preceded by its header and followed by a newline when its
// size is odd, except the last one (unless opts.PadFinalMember is set).
//
// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html#FORMAT
func Assemble(w io.Writer, members []Member, opts AssembleOptions) (int64, error) {
	cw := &countingWriter{w: w}

	if _, err := io.WriteString(cw, arMagic); err != nil {
		return cw.n, fmt.Errorf("writing ar global header: %w", err)
	}
	for i, m := range members {
		hdr, err := arHeader(m)
		if err != nil {
			return cw.n, err
		}
		if _, err := cw.Write(hdr); err != nil {
			return cw.n, fmt.Errorf("writing header of %s: %w", m.Name, err)
		}
		if _, err := cw.Write(m.Data); err != nil {
			return cw.n, fmt.Errorf("writing %s: %w", m.Name, err)
		}
		last := i == len(members)-1
		if len(m.Data)%2 == 1 && (!last || opts.PadFinalMember) {
			if _, err := cw.Write([]byte{'\n'}); err != nil {
				return cw.n, fmt.Errorf("padding %s: %w", m.Name, err)
			}
		}
	}
	return cw.n, nil
}

// WritePackage assembles members into the file at path. The content goes
// to a temporary file in the same directory which replaces path only once
// it is complete.
func WritePackage(path string, members []Member, opts AssembleOptions) (int64, error) {
	pf, err := renameio.TempFile(filepath.Dir(path), path)
	if err != nil {
		return 0, &IOError{Op: "create", Path: path, Err: err}
	}
	defer pf.Cleanup()

	n, err := Assemble(pf, members, opts)
	if err != nil {
		return n, &IOError{Op: "write", Path: path, Err: err}
	}
	if err := pf.Chmod(0644); err != nil {
		return n, &IOError{Op: "chmod", Path: path, Err: err}
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return n, &IOError{Op: "rename", Path: path, Err: err}
	}
	return n, nil
}
