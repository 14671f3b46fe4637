package entropy

import (
	"bytes"
	"testing"
)

func TestIncreaseRestoreRoundTrip(t *testing.T) {
	plaintext := bytes.Repeat([]byte("entropy codec round trip fixture "), 64)

	for _, codec := range []Codec{None, ZIP, BZIP, LZMA} {
		for level := 1; level <= 9; level++ {
			chaos, err := Increase(codec, plaintext, level)
			if err != nil {
				t.Fatalf("%s level=%d: Increase: %v", codec, level, err)
			}
			restored, err := Restore(codec, len(plaintext), chaos)
			if err != nil {
				t.Fatalf("%s level=%d: Restore: %v", codec, level, err)
			}
			if !bytes.Equal(restored, plaintext) {
				t.Errorf("%s level=%d: round trip mismatch", codec, level)
			}
		}
	}
}

func TestClampLevel(t *testing.T) {
	cases := map[int]int{-5: 1, 0: 1, 1: 1, 5: 5, 9: 9, 20: 9}
	for in, want := range cases {
		if got := ClampLevel(in); got != want {
			t.Errorf("ClampLevel(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestParseCodecRejectsUnknown(t *testing.T) {
	if _, err := ParseCodec("RLE"); err == nil {
		t.Error("expected error for unknown codec")
	}
}

func TestCompressibleDataShrinks(t *testing.T) {
	// Highly compressible input should shrink under ZIP; this is the
	// signal the encipher pipeline uses to decide the per-chunk entropy
	// byte (spec §4.7).
	compressible := bytes.Repeat([]byte{0x00}, 4096)
	chaos, err := Increase(ZIP, compressible, 9)
	if err != nil {
		t.Fatalf("Increase: %v", err)
	}
	if len(chaos) >= len(compressible) {
		t.Errorf("expected compression to shrink a run of zero bytes, got %d >= %d", len(chaos), len(compressible))
	}
}
