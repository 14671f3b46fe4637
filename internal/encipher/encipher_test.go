package encipher

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"wizardtoolkit/internal/auth"
	"wizardtoolkit/internal/cryptosuite"
	"wizardtoolkit/internal/decipher"
	"wizardtoolkit/internal/entropy"
	"wizardtoolkit/internal/packet"
	"wizardtoolkit/internal/reservoir"
)

func newTestReservoir(t *testing.T) *reservoir.Reservoir {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reservoir.xdm")
	r, err := reservoir.Open(path)
	if err != nil {
		t.Fatalf("reservoir.Open: %v", err)
	}
	return r
}

func roundTrip(t *testing.T, plaintext []byte, cipher cryptosuite.CipherID, mode cryptosuite.ModeID, hmacAlg packet.HMACAlg, codec entropy.Codec, chunkSize uint64) []byte {
	t.Helper()
	dir := t.TempDir()
	plainPath := filepath.Join(dir, "plain.txt")
	cipherPath := filepath.Join(dir, "cipher.xdc")
	outPath := filepath.Join(dir, "out.txt")

	if err := os.WriteFile(plainPath, plaintext, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	res := newTestReservoir(t)

	encOpts := Options{
		InputPath:    plainPath,
		OutputPath:   cipherPath,
		Cipher:       cipher,
		Mode:         mode,
		KeyHash:      auth.SHA256,
		KeyLength:    256,
		Passphrase:   []byte("correct horse battery staple"),
		EntropyCodec: codec,
		EntropyLevel: 6,
		HMAC:         hmacAlg,
		ChunkSize:    chunkSize,
		Reservoir:    res,
		Version:      "test",
	}
	if err := Run(encOpts); err != nil {
		t.Fatalf("encipher.Run: %v", err)
	}

	decOpts := decipher.Options{
		InputPath:  cipherPath,
		OutputPath: outPath,
		Passphrase: []byte("correct horse battery staple"),
	}
	if err := decipher.Run(decOpts); err != nil {
		t.Fatalf("decipher.Run: %v", err)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return got
}

func TestRoundTripAcrossConfigurations(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 5000)

	cases := []struct {
		name      string
		cipher    cryptosuite.CipherID
		mode      cryptosuite.ModeID
		hmac      packet.HMACAlg
		codec     entropy.Codec
		chunkSize uint64
	}{
		{"aes-ctr-nohmac-noentropy", cryptosuite.CipherAES, cryptosuite.ModeCTR, packet.HMACNone, entropy.None, 4096},
		{"aes-cbc-hmac256-zip", cryptosuite.CipherAES, cryptosuite.ModeCBC, packet.HMACSHA256, entropy.ZIP, 4096},
		{"serpent-cfb-hmac512", cryptosuite.CipherSerpent, cryptosuite.ModeCFB, packet.HMACSHA512, entropy.None, 8192},
		{"twofish-ecb-hmac384-zip", cryptosuite.CipherTwoFish, cryptosuite.ModeECB, packet.HMACSHA384, entropy.ZIP, 2048},
		{"aes-ofb-hmac256", cryptosuite.CipherAES, cryptosuite.ModeOFB, packet.HMACSHA256, entropy.None, 1024},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := roundTrip(t, payload, c.cipher, c.mode, c.hmac, c.codec, c.chunkSize)
			if !bytes.Equal(got, payload) {
				t.Errorf("round trip mismatch for %s: got %d bytes, want %d", c.name, len(got), len(payload))
			}
		})
	}
}

func TestRoundTripEmptyPlaintext(t *testing.T) {
	got := roundTrip(t, nil, cryptosuite.CipherAES, cryptosuite.ModeCTR, packet.HMACSHA256, entropy.None, 4096)
	if len(got) != 0 {
		t.Errorf("expected empty output, got %d bytes", len(got))
	}
}

func TestRoundTripExactChunkMultiple(t *testing.T) {
	payload := bytes.Repeat([]byte{0x42}, 4096*3)
	got := roundTrip(t, payload, cryptosuite.CipherAES, cryptosuite.ModeCBC, packet.HMACSHA256, entropy.None, 4096)
	if !bytes.Equal(got, payload) {
		t.Error("round trip mismatch for exact chunk-size multiple plaintext")
	}
}

func TestRoundTripChunkSizeMinusBlockSize(t *testing.T) {
	// Exercises the padded-final-chunk-happens-to-equal-chunksize ambiguity
	// that readCiphertextChunk's lookahead must resolve correctly.
	payload := bytes.Repeat([]byte{0x7a}, 4096-16)
	got := roundTrip(t, payload, cryptosuite.CipherAES, cryptosuite.ModeCBC, packet.HMACSHA256, entropy.None, 4096)
	if !bytes.Equal(got, payload) {
		t.Error("round trip mismatch for chunksize-minus-blocksize plaintext")
	}
}

func TestWrongPassphraseFailsBeforeChunks(t *testing.T) {
	dir := t.TempDir()
	plainPath := filepath.Join(dir, "plain.txt")
	cipherPath := filepath.Join(dir, "cipher.xdc")
	outPath := filepath.Join(dir, "out.txt")

	if err := os.WriteFile(plainPath, []byte("top secret"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	res := newTestReservoir(t)
	encOpts := Options{
		InputPath:  plainPath,
		OutputPath: cipherPath,
		Cipher:     cryptosuite.CipherAES,
		Mode:       cryptosuite.ModeCTR,
		KeyHash:    auth.SHA256,
		KeyLength:  256,
		Passphrase: []byte("right passphrase"),
		HMAC:       packet.HMACSHA256,
		ChunkSize:  4096,
		Reservoir:  res,
		Version:    "test",
	}
	if err := Run(encOpts); err != nil {
		t.Fatalf("encipher.Run: %v", err)
	}

	decOpts := decipher.Options{
		InputPath:  cipherPath,
		OutputPath: outPath,
		Passphrase: []byte("wrong passphrase"),
	}
	if err := decipher.Run(decOpts); err == nil {
		t.Error("expected decipher to fail with the wrong passphrase")
	}
}

func TestTamperedChunkIsDetected(t *testing.T) {
	dir := t.TempDir()
	plainPath := filepath.Join(dir, "plain.txt")
	cipherPath := filepath.Join(dir, "cipher.xdc")
	outPath := filepath.Join(dir, "out.txt")

	payload := bytes.Repeat([]byte("tamper me"), 1000)
	if err := os.WriteFile(plainPath, payload, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	res := newTestReservoir(t)
	encOpts := Options{
		InputPath:  plainPath,
		OutputPath: cipherPath,
		Cipher:     cryptosuite.CipherAES,
		Mode:       cryptosuite.ModeCTR,
		KeyHash:    auth.SHA256,
		KeyLength:  256,
		Passphrase: []byte("correct horse battery staple"),
		HMAC:       packet.HMACSHA256,
		ChunkSize:  4096,
		Reservoir:  res,
		Version:    "test",
	}
	if err := Run(encOpts); err != nil {
		t.Fatalf("encipher.Run: %v", err)
	}

	raw, err := os.ReadFile(cipherPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// Flip a byte well past the header, inside the final chunk's ciphertext.
	tamperIdx := len(raw) - 50
	raw[tamperIdx] ^= 0xff
	if err := os.WriteFile(cipherPath, raw, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	decOpts := decipher.Options{
		InputPath:  cipherPath,
		OutputPath: outPath,
		Passphrase: []byte("correct horse battery staple"),
	}
	if err := decipher.Run(decOpts); err == nil {
		t.Error("expected decipher to detect the tampered chunk")
	}
}
