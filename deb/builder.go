package deb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Builder turns a payload directory and a control directory into a .deb
// file. The zero value of every optional field is usable.
type Builder struct {
	// DataDir holds the files to install, laid out as on the target system.
	DataDir string
	// ControlDir holds the 'control' file and optional maintainer scripts.
	ControlDir string
	// OutputDir receives the package file. Defaults to the working directory.
	OutputDir string

	// Compression applied to the control and data archives. Defaults to gzip.
	Compression Compression
	// ModTime is the timestamp of every generated entry and the upper bound
	// of timestamps read from the payload. Defaults to the current time.
	ModTime time.Time
	// PadFinalMember pads an odd-sized data archive like every other member.
	PadFinalMember bool
	// Defines, when not empty, turns the control file into a text/template
	// rendered with these values before it is parsed.
	Defines map[string]string

	// Listener receives progress events. May be nil.
	Listener Listener
}

func (b *Builder) emit(e fmt.Stringer) {
	if b.Listener != nil {
		b.Listener(e)
	}
}

// LoadControl reads, renders and validates the control file of ControlDir.
func (b *Builder) LoadControl() (*ControlSet, error) {
	path := filepath.Join(b.ControlDir, string(FileControl))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	if len(b.Defines) > 0 {
		if data, err = renderControl(path, data, b.Defines); err != nil {
			return nil, err
		}
	}

	set, err := ParseControl(data, path)
	if err != nil {
		return nil, err
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if name := set.Filename(); filepath.Base(name) != name {
		return nil, fmt.Errorf("%w: %s: package file name %q contains a path separator", ErrMalformedControl, path, name)
	}
	return set, nil
}

// Build runs the whole pipeline and returns the path of the package file.
//
// The steps are strictly sequential: the control file is loaded and
// validated, the payload is scanned, Installed-Size is derived from the
// scan, both archives are built and the container is written.
func (b *Builder) Build() (string, error) {
	modTime := b.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}
	modTime = modTime.Truncate(time.Second)
	opts := BundleOptions{Compression: b.Compression, ModTime: modTime}

	// 1. Metadata
	set, err := b.LoadControl()
	if err != nil {
		return "", err
	}
	b.emit(EventControlLoaded{
		Path:         set.Source,
		Package:      set.Value(FieldPackage),
		Version:      set.Value(FieldVersion),
		Architecture: set.Value(FieldArchitecture),
		Fields:       set.Len(),
	})

	// 2. Payload scan, feeding Installed-Size
	scan, err := ScanPayload(b.DataDir)
	if err != nil {
		return "", err
	}
	final := set.WithInstalledSize(scan.TotalSize)
	b.emit(EventPayloadScanned{
		Path:          b.DataDir,
		Files:         len(scan.Entries),
		TotalSize:     scan.TotalSize,
		InstalledSize: final.Value(FieldInstalledSize),
	})

	// 3. Data archive
	dataName := opts.compression().MemberName(PkgDataTar)
	data, err := BuildDataBundle(b.DataDir, opts)
	if err != nil {
		return "", fmt.Errorf("building %s: %w", dataName, err)
	}
	b.emit(EventBundleBuilt{Member: dataName, Size: len(data)})

	// 4. Control archive
	controlName := opts.compression().MemberName(PkgControlTar)
	control, err := BuildControlBundle(b.ControlDir, scan, final, opts)
	if err != nil {
		return "", fmt.Errorf("building %s: %w", controlName, err)
	}
	b.emit(EventBundleBuilt{Member: controlName, Size: len(control)})

	// 5. Container
	outDir := b.OutputDir
	if outDir == "" {
		outDir = "."
	}
	path := filepath.Join(outDir, final.Filename())
	members := []Member{
		{Name: string(PkgDebianBinary), ModTime: modTime, Data: []byte(FormatVersion)},
		{Name: controlName, ModTime: modTime, Data: control},
		{Name: dataName, ModTime: modTime, Data: data},
	}
	n, err := WritePackage(path, members, AssembleOptions{PadFinalMember: b.PadFinalMember})
	if err != nil {
		return "", fmt.Errorf("writing package: %w", err)
	}
	b.emit(EventPackageWritten{Path: path, Size: n})

	return path, nil
}
