package deb

import (
	"archive/tar"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/blakesmith/ar"
)

// ErrVerify reports a package whose content disagrees with itself.
var ErrVerify = errors.New("package verification failed")

// MemberInfo describes a member of the ar container.
type MemberInfo struct {
	Name    string
	Size    int64
	Mode    int64
	ModTime time.Time
}

// ArchivedFile describes an entry of the control or data archive.
type ArchivedFile struct {
	// Path has no leading "./"; the archive root itself is ".".
	Path     string
	Mode     int64
	Size     int64
	Typeflag byte
	// MD5 is only computed for regular files of the data archive.
	MD5 string
}

// Archive is a package read back from its binary form.
type Archive struct {
	Members []MemberInfo
	// Version is the content of the debian-binary member.
	Version string
	Control *ControlSet
	// Md5sums lists the entries of the md5sums control file (Size is 0).
	Md5sums      []PayloadEntry
	ControlFiles []ArchivedFile
	DataFiles    []ArchivedFile
}

// Inspect reads a .deb package from r.
func Inspect(r io.Reader) (*Archive, error) {
	a := &Archive{}
	arR := ar.NewReader(r)
	for {
		header, err := arR.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ar header: %w", err)
		}
		name := strings.TrimSuffix(strings.TrimSpace(header.Name), "/")
		a.Members = append(a.Members, MemberInfo{
			Name:    name,
			Size:    header.Size,
			Mode:    header.Mode,
			ModTime: header.ModTime,
		})

		// The reader stops at the member size; a short read means the
		// header announces more than the file holds.
		content, err := io.ReadAll(arR)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		if int64(len(content)) != header.Size {
			return nil, fmt.Errorf("reading %s: truncated member: %d of %d bytes: %w", name, len(content), header.Size, io.ErrUnexpectedEOF)
		}

		switch {
		case name == string(PkgDebianBinary):
			a.Version = string(content)
		case strings.HasPrefix(name, string(PkgControlTar)):
			if err := a.readControl(name, content); err != nil {
				return nil, err
			}
		case strings.HasPrefix(name, string(PkgDataTar)):
			if err := a.readData(name, content); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

// walkTar calls fn for every entry of the compressed tar member.
func walkTar(name string, content []byte, fn func(*tar.Header, io.Reader) error) error {
	rc, err := newDecompressor(bytes.NewReader(content), compressionFromName(name))
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer rc.Close()

	tr := tar.NewReader(rc)
	for {
		th, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		if err := fn(th, tr); err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
	}
}

func cleanTarPath(name string) string {
	return path.Clean(strings.TrimPrefix(name, "./"))
}

func (a *Archive) readControl(member string, content []byte) error {
	return walkTar(member, content, func(th *tar.Header, r io.Reader) error {
		file := ArchivedFile{Path: cleanTarPath(th.Name), Mode: th.Mode, Size: th.Size, Typeflag: th.Typeflag}
		a.ControlFiles = append(a.ControlFiles, file)
		if th.Typeflag != tar.TypeReg {
			return nil
		}

		body, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		switch ControlFile(file.Path) {
		case FileControl:
			set, err := ParseControl(body, member+"/"+file.Path)
			if err != nil {
				return err
			}
			a.Control = set
		case FileMd5sums:
			for i, line := range strings.Split(string(body), "\n") {
				if line == "" {
					continue
				}
				sum, p, ok := strings.Cut(line, "  ")
				if !ok {
					return fmt.Errorf("md5sums line %d: %q", i+1, line)
				}
				a.Md5sums = append(a.Md5sums, PayloadEntry{Path: p, MD5: sum})
			}
		}
		return nil
	})
}

func (a *Archive) readData(member string, content []byte) error {
	return walkTar(member, content, func(th *tar.Header, r io.Reader) error {
		file := ArchivedFile{Path: cleanTarPath(th.Name), Mode: th.Mode, Size: th.Size, Typeflag: th.Typeflag}
		if th.Typeflag == tar.TypeReg {
			h := md5.New()
			if _, err := io.Copy(h, r); err != nil {
				return err
			}
			file.MD5 = hex.EncodeToString(h.Sum(nil))
		}
		a.DataFiles = append(a.DataFiles, file)
		return nil
	})
}

// ControlFile returns the entry of the control archive with that name.
func (a *Archive) ControlFile(name ControlFile) (ArchivedFile, bool) {
	for _, f := range a.ControlFiles {
		if f.Path == string(name) {
			return f, true
		}
	}
	return ArchivedFile{}, false
}

// Verify checks the layout of the container and that md5sums matches the
// regular files of the data archive, both ways.
func (a *Archive) Verify() error {
	if len(a.Members) != 3 ||
		a.Members[0].Name != string(PkgDebianBinary) ||
		!strings.HasPrefix(a.Members[1].Name, string(PkgControlTar)) ||
		!strings.HasPrefix(a.Members[2].Name, string(PkgDataTar)) {
		names := make([]string, len(a.Members))
		for i, m := range a.Members {
			names[i] = m.Name
		}
		return fmt.Errorf("%w: unexpected members %v", ErrVerify, names)
	}
	if a.Version != FormatVersion {
		return fmt.Errorf("%w: unsupported format version %q", ErrVerify, a.Version)
	}
	if a.Control == nil {
		return fmt.Errorf("%w: no control file", ErrVerify)
	}
	if err := a.Control.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrVerify, err)
	}

	data := make(map[string]string)
	for _, f := range a.DataFiles {
		if f.Typeflag == tar.TypeReg {
			data[f.Path] = f.MD5
		}
	}
	listed := make(map[string]bool, len(a.Md5sums))
	for _, e := range a.Md5sums {
		listed[e.Path] = true
		sum, ok := data[e.Path]
		if !ok {
			return fmt.Errorf("%w: %s is listed in md5sums but not in the payload", ErrVerify, e.Path)
		}
		if sum != e.MD5 {
			return fmt.Errorf("%w: %s has md5 %s, md5sums says %s", ErrVerify, e.Path, sum, e.MD5)
		}
	}
	for p := range data {
		if !listed[p] {
			return fmt.Errorf("%w: %s is missing from md5sums", ErrVerify, p)
		}
	}
	return nil
}
