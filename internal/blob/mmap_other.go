//go:build !unix

package blob

import (
	"io"
	"os"
)

// mapFile falls back to a plain read on platforms without a POSIX mmap;
// callers treat a mapped stream and a fully-buffered stream identically.
func mapFile(f *os.File) ([]byte, error) {
	return io.ReadAll(f)
}
