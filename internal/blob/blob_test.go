package blob

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")

	w, err := Open(path, WriteMode, false)
	if err != nil {
		t.Fatalf("Open write: %v", err)
	}
	want := []byte("the quick brown fox")
	if _, err := w.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path, ReadMode, false)
	if err != nil {
		t.Fatalf("Open read: %v", err)
	}
	defer r.Close()
	got := make([]byte, len(want))
	if _, err := r.Read(got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestMemoryStreamGrowsOnWrite(t *testing.T) {
	s := OpenMemory(WriteMode, nil)
	if _, err := s.Write([]byte("hello ")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Write([]byte("world")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if size, _ := s.Size(); size != 11 {
		t.Errorf("Size() = %d, want 11", size)
	}
}

func TestGzipTransparentDecompression(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.gz")

	w, err := Open(path, WriteMode, true)
	if err != nil {
		t.Fatalf("Open write: %v", err)
	}
	want := []byte("compressible compressible compressible data")
	if _, err := w.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path, ReadMode, true)
	if err != nil {
		t.Fatalf("Open read: %v", err)
	}
	defer r.Close()
	got := make([]byte, len(want)+8)
	n, _ := r.Read(got)
	got = got[:n]
	if !bytes.Equal(got, want) {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestPipeSeekFails(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}
	s, err := Open("|cat", WriteMode, false)
	if err != nil {
		t.Skipf("could not open pipe: %v", err)
	}
	if _, err := s.Seek(0, 0); err == nil {
		t.Error("expected seek on a pipe stream to fail")
	}
	s.Close()
}
