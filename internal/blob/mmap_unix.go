//go:build unix

package blob

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapFile memory-maps f read-only and returns a copy-free view of its
// contents. golang.org/x/sys/unix is already pulled in transitively
// (gopsutil, vault/api's dependency tree); promoted here to a direct
// import because it's the one place in the pack that actually needs raw
// mmap, and the standard library has no portable mmap wrapper at all.
func mapFile(f *os.File) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return []byte{}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return data, nil
}
