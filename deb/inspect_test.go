package deb

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createMockDeb assembles a package from an in-memory payload.
func createMockDeb(t *testing.T, control string, md5sums string, files map[string]string) []byte {
	t.Helper()
	opts := BundleOptions{ModTime: testModTime}

	controlTar, err := buildBundle(opts, func(tb *tarball) error {
		if err := tb.writeBytes("./control", 0644, []byte(control), testModTime); err != nil {
			return err
		}
		return tb.writeBytes("./md5sums", 0644, []byte(md5sums), testModTime)
	})
	require.NoError(t, err)

	dataTar, err := buildBundle(opts, func(tb *tarball) error {
		if err := tb.writeDir("./", 0755, testModTime); err != nil {
			return err
		}
		for name, body := range files {
			if err := tb.writeBytes("./"+name, 0644, []byte(body), testModTime); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = Assemble(&buf, []Member{
		{Name: string(PkgDebianBinary), ModTime: testModTime, Data: []byte(FormatVersion)},
		{Name: "control.tar.gz", ModTime: testModTime, Data: controlTar},
		{Name: "data.tar.gz", ModTime: testModTime, Data: dataTar},
	}, AssembleOptions{})
	require.NoError(t, err)
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	deb := createMockDeb(t, minimalControl, md5Hex("hello")+"  usr/bin/hello\n", map[string]string{"usr/bin/hello": "hello"})

	a, err := Inspect(bytes.NewReader(deb))
	require.NoError(t, err)
	require.NoError(t, a.Verify())

	assert.Equal(t, "demo", a.Control.Value(FieldPackage))
	assert.Equal(t, []PayloadEntry{{Path: "usr/bin/hello", MD5: md5Hex("hello")}}, a.Md5sums)
	require.Len(t, a.DataFiles, 2)
	assert.Equal(t, ".", a.DataFiles[0].Path)
	assert.Equal(t, byte(tar.TypeDir), a.DataFiles[0].Typeflag)
	assert.Equal(t, ArchivedFile{Path: "usr/bin/hello", Mode: 0644, Size: 5, Typeflag: tar.TypeReg, MD5: md5Hex("hello")}, a.DataFiles[1])
}

func TestVerifyChecksumMismatch(t *testing.T) {
	tests := []struct {
		name    string
		md5sums string
		files   map[string]string
		want    string
	}{
		{
			name:    "wrong digest",
			md5sums: md5Hex("other") + "  usr/bin/hello\n",
			files:   map[string]string{"usr/bin/hello": "hello"},
			want:    "usr/bin/hello has md5",
		},
		{
			name:    "listed but absent",
			md5sums: md5Hex("hello") + "  usr/bin/hello\n" + md5Hex("x") + "  usr/bin/gone\n",
			files:   map[string]string{"usr/bin/hello": "hello"},
			want:    "usr/bin/gone is listed",
		},
		{
			name:    "unlisted file",
			md5sums: md5Hex("hello") + "  usr/bin/hello\n",
			files:   map[string]string{"usr/bin/hello": "hello", "usr/bin/extra": "x"},
			want:    "usr/bin/extra is missing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Inspect(bytes.NewReader(createMockDeb(t, minimalControl, tt.md5sums, tt.files)))
			require.NoError(t, err)

			err = a.Verify()
			assert.ErrorIs(t, err, ErrVerify)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestVerifyLayout(t *testing.T) {
	a := &Archive{
		Members: []MemberInfo{{Name: "control.tar.gz"}, {Name: "debian-binary"}, {Name: "data.tar.gz"}},
		Version: FormatVersion,
	}
	assert.ErrorIs(t, a.Verify(), ErrVerify)

	a.Members[0], a.Members[1] = a.Members[1], a.Members[0]
	a.Version = "3.0\n"
	assert.ErrorContains(t, a.Verify(), "format version")

	a.Version = FormatVersion
	assert.ErrorContains(t, a.Verify(), "no control file")

	a.Control = NewControlSet("control")
	assert.ErrorIs(t, a.Verify(), ErrVerify)
}

func TestInspectGarbage(t *testing.T) {
	_, err := Inspect(bytes.NewReader([]byte("!<arch>\nthis is not a header")))
	assert.Error(t, err)
}

func TestInspectTruncatedMember(t *testing.T) {
	// The header announces 8 GiB, the file holds three bytes.
	hdr := fmt.Sprintf("%-16s%-12d%-6s%-6s%-8s%-10d`\n", "data.tar.gz", 0, "0", "0", arFileMode, int64(1)<<33)
	_, err := Inspect(bytes.NewReader([]byte(arMagic + hdr + "abc")))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.ErrorContains(t, err, "data.tar.gz")
}
