package deb

import "io/fs"

// ControlField represents a standard field in a Debian control file.
type ControlField string

const (
	FieldPackage       ControlField = "Package"
	FieldVersion       ControlField = "Version"
	FieldArchitecture  ControlField = "Architecture"
	FieldMaintainer    ControlField = "Maintainer"
	FieldDescription   ControlField = "Description"
	FieldInstalledSize ControlField = "Installed-Size"
)

// MandatoryFields lists the fields every control file must carry, in the
// order they are checked.
var MandatoryFields = []ControlField{
	FieldPackage,
	FieldVersion,
	FieldArchitecture,
	FieldMaintainer,
	FieldDescription,
}

// ControlFile represents a standard file found in the control archive.
type ControlFile string

const (
	FileControl   ControlFile = "control"
	FileMd5sums   ControlFile = "md5sums"
	FileConffiles ControlFile = "conffiles"
	FilePreinst   ControlFile = "preinst"
	FilePostinst  ControlFile = "postinst"
	FilePrerm     ControlFile = "prerm"
	FilePostrm    ControlFile = "postrm"
	FileConfig    ControlFile = "config"
	FileTemplates ControlFile = "templates"
	FileTriggers  ControlFile = "triggers"
	FileShlibs    ControlFile = "shlibs"
	FileSymbols   ControlFile = "symbols"
)

// MaintainerScripts is the set of optional files copied verbatim from the
// control directory into the control archive, with the mode they get there.
// Anything else found in the control directory is ignored.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-maintainerscripts.html
var MaintainerScripts = []struct {
	Name ControlFile
	Mode fs.FileMode
}{
	{FileConffiles, 0644},
	{FilePostinst, 0755},
	{FilePostrm, 0755},
	{FilePreinst, 0755},
	{FilePrerm, 0755},
	{FileConfig, 0755},
	{FileTemplates, 0644},
	{FileTriggers, 0644},
	{FileShlibs, 0644},
	{FileSymbols, 0644},
}

// PackageFile represents a member of the .deb archive (ar format).
type PackageFile string

const (
	PkgDebianBinary PackageFile = "debian-binary"
	PkgControlTar   PackageFile = "control.tar"
	PkgDataTar      PackageFile = "data.tar"
)

// FormatVersion is the content of the debian-binary member.
const FormatVersion = "2.0\n"
