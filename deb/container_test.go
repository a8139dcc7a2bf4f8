package deb

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testModTime = time.Unix(1700000000, 0)

func testMembers(sizes ...int) []Member {
	names := []string{"debian-binary", "control.tar.gz", "data.tar.gz"}
	members := make([]Member, len(sizes))
	for i, size := range sizes {
		members[i] = Member{
			Name:    names[i%len(names)],
			ModTime: testModTime,
			Data:    bytes.Repeat([]byte{byte('a' + i)}, size),
		}
	}
	return members
}

func TestCountingWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := &countingWriter{w: &buf}

	n, err := cw.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, int64(5), cw.n)
	assert.Equal(t, "hello", buf.String())
}

func TestArHeader(t *testing.T) {
	hdr, err := arHeader(Member{Name: "debian-binary", ModTime: testModTime, Data: []byte("2.0\n")})
	require.NoError(t, err)

	want := "debian-binary   " + "1700000000  " + "0     " + "0     " + "100644  " + "4         " + "`\n"
	assert.Equal(t, want, string(hdr))
	assert.Len(t, hdr, arHeaderSize)
}

func TestArHeaderName(t *testing.T) {
	_, err := arHeader(Member{Name: "a-name-longer-than-16", ModTime: testModTime})
	assert.ErrorIs(t, err, ErrMemberName)

	_, err = arHeader(Member{Name: "", ModTime: testModTime})
	assert.ErrorIs(t, err, ErrMemberName)

	_, err = arHeader(Member{Name: "sixteen-bytes-ok", ModTime: testModTime})
	assert.NoError(t, err)
}

func TestAssembleOffsets(t *testing.T) {
	var buf bytes.Buffer
	n, err := Assemble(&buf, testMembers(4, 11, 8), AssembleOptions{})
	require.NoError(t, err)

	out := buf.Bytes()
	assert.Equal(t, int64(len(out)), n)
	assert.Equal(t, "!<arch>\n", string(out[:8]))

	// header, content, pad when odd and not last
	first := 8
	second := first + arHeaderSize + 4
	third := second + arHeaderSize + 11 + 1
	end := third + arHeaderSize + 8
	require.Len(t, out, end)

	assert.True(t, strings.HasPrefix(string(out[first:]), "debian-binary   "))
	assert.True(t, strings.HasPrefix(string(out[second:]), "control.tar.gz  "))
	assert.True(t, strings.HasPrefix(string(out[third:]), "data.tar.gz     "))
	assert.Equal(t, byte('\n'), out[third-1], "odd member must be padded")
	assert.Equal(t, "`\n", string(out[third+58:third+60]))
	assert.Equal(t, strings.Repeat("c", 8), string(out[third+arHeaderSize:]))
}

func TestAssembleFinalMemberPadding(t *testing.T) {
	tests := []struct {
		name string
		opts AssembleOptions
		want int
	}{
		{"unpadded by default", AssembleOptions{}, 8 + 3*arHeaderSize + 4 + 11 + 1 + 9},
		{"padded on request", AssembleOptions{PadFinalMember: true}, 8 + 3*arHeaderSize + 4 + 11 + 1 + 9 + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := Assemble(&buf, testMembers(4, 11, 9), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.Len())
		})
	}
}

func TestAssembleReadableByAr(t *testing.T) {
	members := testMembers(4, 11, 9)
	var buf bytes.Buffer
	_, err := Assemble(&buf, members, AssembleOptions{})
	require.NoError(t, err)

	arR := ar.NewReader(&buf)
	for _, m := range members {
		hdr, err := arR.Next()
		require.NoError(t, err)
		assert.Equal(t, m.Name, hdr.Name)
		assert.Equal(t, int64(len(m.Data)), hdr.Size)
		assert.Equal(t, int64(0644), hdr.Mode)
		assert.Equal(t, testModTime.Unix(), hdr.ModTime.Unix())

		body, err := io.ReadAll(arR)
		require.NoError(t, err)
		assert.Equal(t, m.Data, body)
	}
	_, err = arR.Next()
	assert.Equal(t, io.EOF, err)
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("disk full")
	}
	w.after--
	return len(p), nil
}

func TestAssembleWriteError(t *testing.T) {
	_, err := Assemble(&failingWriter{after: 2}, testMembers(4, 4, 4), AssembleOptions{})
	assert.ErrorContains(t, err, "disk full")
}

func TestWritePackage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo_1.0-amd64.deb")

	n, err := WritePackage(path, testMembers(4, 11, 8), AssembleOptions{})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file may be left behind")
}

func TestWritePackageFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.deb")

	members := testMembers(4, 4, 4)
	members[2].Name = "a-name-longer-than-16"
	_, err := WritePackage(path, members, AssembleOptions{})
	require.ErrorIs(t, err, ErrMemberName)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
