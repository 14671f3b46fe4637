package reservoir

import (
	"bytes"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
)

func TestGetRandomKeyProducesDistinctOutput(t *testing.T) {
	r, err := newReservoir("", sha256.New, sha256.Size, false)
	if err != nil {
		t.Fatalf("newReservoir: %v", err)
	}
	a, err := r.GetRandomKey(1024)
	if err != nil {
		t.Fatalf("GetRandomKey: %v", err)
	}
	b, err := r.GetRandomKey(1024)
	if err != nil {
		t.Fatalf("GetRandomKey: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two successive calls produced identical output")
	}
}

func TestGetRandomKeyHandlesSmallRequests(t *testing.T) {
	r, err := newReservoir("", sha256.New, sha256.Size, false)
	if err != nil {
		t.Fatalf("newReservoir: %v", err)
	}
	var collected []byte
	for i := 0; i < 10; i++ {
		chunk, err := r.GetRandomKey(7)
		if err != nil {
			t.Fatalf("GetRandomKey: %v", err)
		}
		if len(chunk) != 7 {
			t.Fatalf("GetRandomKey(7) returned %d bytes", len(chunk))
		}
		collected = append(collected, chunk...)
	}
	if len(collected) != 70 {
		t.Fatalf("collected %d bytes, want 70", len(collected))
	}
}

func TestReservoirPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reservoir.xdm")

	r1, err := newReservoir(path, sha256.New, sha256.Size, false)
	if err != nil {
		t.Fatalf("newReservoir: %v", err)
	}
	first, _ := r1.GetRandomKey(32)
	if err := r1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r2, err := newReservoir(path, sha256.New, sha256.Size, false)
	if err != nil {
		t.Fatalf("reopen newReservoir: %v", err)
	}
	second, _ := r2.GetRandomKey(32)
	if bytes.Equal(first, second) {
		t.Error("reopened reservoir produced the same bytes as before close")
	}
}

func TestReservoirRegeneratesWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reservoir.xdm")
	// spec §8 scenario 6: a missing reservoir file must not abort, it must
	// regenerate from live entropy
	r, err := newReservoir(path, sha256.New, sha256.Size, false)
	if err != nil {
		t.Fatalf("newReservoir with missing file: %v", err)
	}
	if _, err := r.GetRandomKey(16); err != nil {
		t.Fatalf("GetRandomKey: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected reservoir file to exist after Close: %v", err)
	}
}

func TestReservoirRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reservoir.xdm")
	if err := os.WriteFile(path, []byte("not a reservoir file"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// corrupt file should be treated like a missing one: regenerate, not abort
	if _, err := newReservoir(path, sha256.New, sha256.Size, false); err != nil {
		t.Fatalf("newReservoir with corrupt file should regenerate, got: %v", err)
	}
}

func TestPseudoRandomUint64Varies(t *testing.T) {
	r, err := newReservoir("", sha256.New, sha256.Size, false)
	if err != nil {
		t.Fatalf("newReservoir: %v", err)
	}
	a := r.PseudoRandomUint64()
	b := r.PseudoRandomUint64()
	if a == b {
		t.Error("successive pseudo-random values were identical")
	}
}

func TestOpenSingleton(t *testing.T) {
	resetForTest()
	defer resetForTest()
	r1, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r2, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r1 != r2 {
		t.Error("Open did not return the same singleton instance")
	}
}
