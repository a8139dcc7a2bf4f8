package deb

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// PayloadEntry is a regular file of the payload directory.
type PayloadEntry struct {
	// Path is relative to the payload directory, slash separated, without
	// a leading "./".
	Path string
	Size int64
	// MD5 is the lowercase hex MD5 digest of the content.
	MD5 string
}

// PayloadScan is the result of a single walk over the payload directory.
type PayloadScan struct {
	Entries   []PayloadEntry
	TotalSize int64
}

// resolveRoot follows dataDir when it is itself a symlink so that the walk
// descends into the tree it points to. Links below the root are kept.
func resolveRoot(dataDir string) (string, error) {
	root, err := filepath.EvalSymlinks(dataDir)
	if err != nil {
		return "", &IOError{Op: "resolve", Path: dataDir, Err: err}
	}
	return root, nil
}

// ScanPayload walks dataDir in lexical order and checksums every regular
// file. Directories, symlinks and special files are walked over but not
// recorded. dataDir may be a symlink to the payload directory.
func ScanPayload(dataDir string) (*PayloadScan, error) {
	root, err := resolveRoot(dataDir)
	if err != nil {
		return nil, fmt.Errorf("scanning payload %s: %w", dataDir, err)
	}
	scan := &PayloadScan{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &IOError{Op: "walk", Path: path, Err: err}
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sum, size, err := md5File(path)
		if err != nil {
			return err
		}
		scan.Entries = append(scan.Entries, PayloadEntry{
			Path: filepath.ToSlash(rel),
			Size: size,
			MD5:  sum,
		})
		scan.TotalSize += size
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning payload %s: %w", dataDir, err)
	}
	return scan, nil
}

// md5File streams the file through the hasher, returning the digest and
// the number of bytes read.
func md5File(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	h := md5.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, &IOError{Op: "read", Path: path, Err: err}
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Md5sums renders the content of the 'md5sums' control file, one
// "<digest>  <path>" line per entry, in walk order.
func (s *PayloadScan) Md5sums() []byte {
	var b bytes.Buffer
	for _, e := range s.Entries {
		fmt.Fprintf(&b, "%s  %s\n", e.MD5, e.Path)
	}
	return b.Bytes()
}
