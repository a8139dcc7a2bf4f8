package deb

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// BundleOptions controls how the control and data archives are encoded.
type BundleOptions struct {
	// Compression applied to both archives. Defaults to gzip.
	Compression Compression

	// ModTime, when set, is the timestamp of generated entries and the upper
	// bound of every timestamp taken from the filesystem, in the spirit of
	// SOURCE_DATE_EPOCH. When zero, generated entries use the current time
	// and payload entries keep their own.
	ModTime time.Time
}

func (o BundleOptions) compression() Compression {
	if o.Compression == "" {
		return CompressionGzip
	}
	return o.Compression
}

// now returns the timestamp of generated entries.
func (o BundleOptions) now() time.Time {
	if !o.ModTime.IsZero() {
		return o.ModTime.Truncate(time.Second)
	}
	return time.Now().Truncate(time.Second)
}

// clamp returns the timestamp stored for a filesystem entry.
func (o BundleOptions) clamp(t time.Time) time.Time {
	if !o.ModTime.IsZero() && t.After(o.ModTime) {
		t = o.ModTime
	}
	return t.Truncate(time.Second)
}

// tarball writes root-owned entries to a tar stream.
type tarball struct {
	tw   *tar.Writer
	opts BundleOptions
}

// normalize strips everything from a header that depends on the machine
// the package is built on.
func (t *tarball) normalize(hdr *tar.Header) {
	hdr.Uid, hdr.Gid = 0, 0
	hdr.Uname, hdr.Gname = "root", "root"
	hdr.AccessTime, hdr.ChangeTime = time.Time{}, time.Time{}
	hdr.PAXRecords = nil
	if hdr.Typeflag != tar.TypeChar && hdr.Typeflag != tar.TypeBlock {
		hdr.Devmajor, hdr.Devminor = 0, 0
	}
}

func (t *tarball) writeDir(name string, mode int64, modTime time.Time) error {
	hdr := &tar.Header{
		Typeflag: tar.TypeDir,
		Name:     name,
		Mode:     mode,
		ModTime:  modTime,
	}
	t.normalize(hdr)
	return t.tw.WriteHeader(hdr)
}

func (t *tarball) writeBytes(name string, mode int64, body []byte, modTime time.Time) error {
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     mode,
		Size:     int64(len(body)),
		ModTime:  modTime,
	}
	t.normalize(hdr)
	if err := t.tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := t.tw.Write(body)
	return err
}

// writePath archives the filesystem entry at path under name.
func (t *tarball) writePath(name, path string, info fs.FileInfo) error {
	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		var err error
		if link, err = os.Readlink(path); err != nil {
			return &IOError{Op: "readlink", Path: path, Err: err}
		}
	}
	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("archiving %s: %w", path, err)
	}
	hdr.Name = name
	hdr.ModTime = t.opts.clamp(info.ModTime())
	t.normalize(hdr)
	if err := t.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing header for %s: %w", name, err)
	}
	if hdr.Typeflag != tar.TypeReg {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	if _, err := io.Copy(t.tw, f); err != nil {
		return &IOError{Op: "copy", Path: path, Err: err}
	}
	return nil
}

// buildBundle runs fill against a fresh tar stream and returns the
// compressed result.
func buildBundle(opts BundleOptions, fill func(*tarball) error) ([]byte, error) {
	var buf bytes.Buffer
	cw, err := newCompressor(&buf, opts.compression())
	if err != nil {
		return nil, err
	}
	tb := &tarball{tw: tar.NewWriter(cw), opts: opts}
	if err := fill(tb); err != nil {
		return nil, err
	}
	if err := tb.tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar stream: %w", err)
	}
	if err := cw.Close(); err != nil {
		return nil, fmt.Errorf("closing %s stream: %w", opts.compression(), err)
	}
	return buf.Bytes(), nil
}

// BuildDataBundle archives the whole content of dataDir, with paths
// relative to it ("./", "./usr/", "./usr/bin/tool"), and compresses it.
//
// Entries are written in lexical order and owned by root so that the
// archive only depends on the content, modes and timestamps of the tree.
// Symlinks are stored as links; sockets, pipes and devices are skipped.
// dataDir itself may be a symlink to the payload directory.
func BuildDataBundle(dataDir string, opts BundleOptions) ([]byte, error) {
	root, err := resolveRoot(dataDir)
	if err != nil {
		return nil, err
	}
	return buildBundle(opts, func(tb *tarball) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return &IOError{Op: "walk", Path: path, Err: err}
			}
			info, err := d.Info()
			if err != nil {
				return &IOError{Op: "stat", Path: path, Err: err}
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}

			name := "./"
			if rel != "." {
				name += filepath.ToSlash(rel)
			}
			switch {
			case d.IsDir():
				if rel != "." {
					name += "/"
				}
			case info.Mode().IsRegular(), info.Mode()&fs.ModeSymlink != 0:
			default:
				return nil
			}
			return tb.writePath(name, path, info)
		})
	})
}
