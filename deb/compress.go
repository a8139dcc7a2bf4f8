package deb

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression identifies the compressor applied to the control and data
// archives. Its value is the member name suffix it produces.
type Compression string

const (
	CompressionGzip Compression = "gzip"
	CompressionXz   Compression = "xz"
	CompressionZstd Compression = "zstd"
	CompressionNone Compression = "none"
)

// ParseCompression parses a compression name. The empty string selects
// gzip.
func ParseCompression(name string) (Compression, error) {
	switch Compression(strings.ToLower(name)) {
	case "", CompressionGzip, "gz":
		return CompressionGzip, nil
	case CompressionXz:
		return CompressionXz, nil
	case CompressionZstd, "zst":
		return CompressionZstd, nil
	case CompressionNone:
		return CompressionNone, nil
	default:
		return "", fmt.Errorf("unknown compression %q (want gzip, xz, zstd or none)", name)
	}
}

// Extension returns the file name suffix of compressed members, including
// the dot, or "" for CompressionNone.
func (c Compression) Extension() string {
	switch c {
	case CompressionXz:
		return ".xz"
	case CompressionZstd:
		return ".zst"
	case CompressionNone:
		return ""
	default:
		return ".gz"
	}
}

// MemberName returns the archive member name for base ("control.tar" or
// "data.tar") compressed with c.
func (c Compression) MemberName(base PackageFile) string {
	return string(base) + c.Extension()
}

// newCompressor wraps w so that everything written is compressed with c.
// Closing the returned writer flushes the compressor but not w.
func newCompressor(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionGzip, "":
		// No name, no timestamp: the stream only depends on its input.
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case CompressionXz:
		return xz.NewWriter(w)
	case CompressionZstd:
		return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1), zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	case CompressionNone:
		return nopCloser{w}, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
}

// compressionFromName guesses the compressor of a member from its name.
func compressionFromName(name string) Compression {
	switch {
	case strings.HasSuffix(name, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(name, ".xz"):
		return CompressionXz
	case strings.HasSuffix(name, ".zst"):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// newDecompressor returns a reader yielding the decompressed content of r.
func newDecompressor(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionXz:
		xr, err := xz.NewReader(bufio.NewReader(r))
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return io.NopCloser(r), nil
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
