package deb

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// stagedFile is a file waiting to be written to the control archive.
type stagedFile struct {
	name ControlFile
	mode fs.FileMode
	body []byte
}

// BuildControlBundle produces the compressed control archive.
//
// The maintainer scripts found in controlDir are copied verbatim with the
// mode listed in MaintainerScripts, the md5sums file is rendered from scan
// (one line per regular file, possibly none) and the control file from set. set must already carry every derived
// field (see ControlSet.WithInstalledSize): it is written as is.
func BuildControlBundle(controlDir string, scan *PayloadScan, set *ControlSet, opts BundleOptions) ([]byte, error) {
	var staged []stagedFile

	// 1. Maintainer scripts
	for _, script := range MaintainerScripts {
		path := filepath.Join(controlDir, string(script.Name))
		body, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &IOError{Op: "read", Path: path, Err: err}
		}
		staged = append(staged, stagedFile{name: script.Name, mode: script.Mode, body: body})
	}

	// 2. md5sums, empty for a payload without regular files
	staged = append(staged, stagedFile{name: FileMd5sums, mode: 0644, body: scan.Md5sums()})

	// 3. control
	staged = append(staged, stagedFile{name: FileControl, mode: 0644, body: set.Bytes()})

	sort.Slice(staged, func(i, j int) bool { return staged[i].name < staged[j].name })

	modTime := opts.now()
	return buildBundle(opts, func(tb *tarball) error {
		if err := tb.writeDir("./", 0755, modTime); err != nil {
			return fmt.Errorf("writing control root: %w", err)
		}
		for _, f := range staged {
			if err := tb.writeBytes("./"+string(f.name), int64(f.mode), f.body, modTime); err != nil {
				return fmt.Errorf("writing %s: %w", f.name, err)
			}
		}
		return nil
	})
}
