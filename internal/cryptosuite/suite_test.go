package cryptosuite

import (
	"bytes"
	"testing"
)

func allCiphers() []CipherID { return []CipherID{CipherAES, CipherSerpent, CipherTwoFish} }
func allModes() []ModeID {
	return []ModeID{ModeECB, ModeCBC, ModeCFB, ModeCTR, ModeOFB}
}

func keyFor(c CipherID) []byte {
	switch c {
	case CipherTwoFish:
		return bytes.Repeat([]byte{0x42}, 32)
	default:
		return bytes.Repeat([]byte{0x24}, 32)
	}
}

func TestSuiteRoundTrip(t *testing.T) {
	plaintext := []byte("the quick brown fox jumps over the lazy dog, 1234567890!")

	for _, c := range allCiphers() {
		for _, m := range allModes() {
			key := keyFor(c)
			nonce := bytes.Repeat([]byte{0x01}, BlockSizeOf(c))

			enc, err := NewSuite(c, m, key, nonce)
			if err != nil {
				t.Fatalf("%s/%s: NewSuite encrypt: %v", c, m, err)
			}
			ciphertext, err := enc.EncipherChunk(plaintext, true)
			if err != nil {
				t.Fatalf("%s/%s: EncipherChunk: %v", c, m, err)
			}

			dec, err := NewSuite(c, m, key, nonce)
			if err != nil {
				t.Fatalf("%s/%s: NewSuite decrypt: %v", c, m, err)
			}
			got, err := dec.DecipherChunk(ciphertext, true)
			if err != nil {
				t.Fatalf("%s/%s: DecipherChunk: %v", c, m, err)
			}
			if !bytes.Equal(got, plaintext) {
				t.Errorf("%s/%s: round trip mismatch: got %q want %q", c, m, got, plaintext)
			}
		}
	}
}

func TestSuiteMultiChunkStreaming(t *testing.T) {
	chunks := [][]byte{
		bytes.Repeat([]byte{0xAA}, 16),
		bytes.Repeat([]byte{0xBB}, 16),
		[]byte("final partial chunk"),
	}
	key := keyFor(CipherAES)
	nonce := bytes.Repeat([]byte{0x02}, BlockSizeOf(CipherAES))

	for _, m := range allModes() {
		enc, err := NewSuite(CipherAES, m, key, nonce)
		if err != nil {
			t.Fatalf("%s: NewSuite: %v", m, err)
		}
		var ciphertexts [][]byte
		for i, c := range chunks {
			out, err := enc.EncipherChunk(c, i == len(chunks)-1)
			if err != nil {
				t.Fatalf("%s: EncipherChunk[%d]: %v", m, i, err)
			}
			ciphertexts = append(ciphertexts, out)
		}

		dec, err := NewSuite(CipherAES, m, key, nonce)
		if err != nil {
			t.Fatalf("%s: NewSuite decrypt: %v", m, err)
		}
		var got []byte
		for i, c := range ciphertexts {
			out, err := dec.DecipherChunk(c, i == len(ciphertexts)-1)
			if err != nil {
				t.Fatalf("%s: DecipherChunk[%d]: %v", m, i, err)
			}
			got = append(got, out...)
		}
		var want []byte
		for _, c := range chunks {
			want = append(want, c...)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s: multi-chunk round trip mismatch: got %q want %q", m, got, want)
		}
	}
}

func TestNewSuiteRejectsWrongNonceLength(t *testing.T) {
	key := keyFor(CipherAES)
	if _, err := NewSuite(CipherAES, ModeCBC, key, []byte{1, 2, 3}); err == nil {
		t.Error("expected error for short nonce")
	}
}

func TestParseCipherAndModeIDs(t *testing.T) {
	if _, err := ParseCipherID("Rot13"); err == nil {
		t.Error("expected error for unknown cipher")
	}
	if _, err := ParseModeID("GCM"); err == nil {
		t.Error("expected error for unknown mode")
	}
	id, err := ParseCipherID("Serpent")
	if err != nil || id != CipherSerpent {
		t.Errorf("ParseCipherID(Serpent) = %v, %v", id, err)
	}
}
