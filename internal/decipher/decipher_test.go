package decipher

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"wizardtoolkit/internal/auth"
	"wizardtoolkit/internal/cryptosuite"
	"wizardtoolkit/internal/encipher"
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

func encipherFixture(t *testing.T, plaintext []byte, passphrase string) string {
	t.Helper()
	dir := t.TempDir()
	plainPath := filepath.Join(dir, "plain.txt")
	cipherPath := filepath.Join(dir, "cipher.xdc")

	if err := os.WriteFile(plainPath, plaintext, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	opts := encipher.Options{
		InputPath:    plainPath,
		OutputPath:   cipherPath,
		Cipher:       cryptosuite.CipherAES,
		Mode:         cryptosuite.ModeCBC,
		KeyHash:      auth.SHA256,
		KeyLength:    256,
		Passphrase:   []byte(passphrase),
		EntropyCodec: entropy.ZIP,
		EntropyLevel: 6,
		HMAC:         packet.HMACSHA256,
		ChunkSize:    4096,
		Reservoir:    newTestReservoir(t),
		Version:      "test",
	}
	if err := encipher.Run(opts); err != nil {
		t.Fatalf("encipher.Run: %v", err)
	}
	return cipherPath
}

func TestDecipherProducesOriginalPlaintext(t *testing.T) {
	payload := bytes.Repeat([]byte("some plaintext worth protecting, "), 2000)
	cipherPath := encipherFixture(t, payload, "a strong passphrase")
	outPath := filepath.Join(filepath.Dir(cipherPath), "out.txt")

	if err := Run(Options{InputPath: cipherPath, OutputPath: outPath, Passphrase: []byte("a strong passphrase")}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("decrypted output does not match original plaintext")
	}
}

func TestDecipherRejectsTruncatedStream(t *testing.T) {
	payload := bytes.Repeat([]byte{0x11}, 10000)
	cipherPath := encipherFixture(t, payload, "pw")
	outPath := filepath.Join(filepath.Dir(cipherPath), "out.txt")

	raw, err := os.ReadFile(cipherPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	truncated := raw[:len(raw)-20]
	if err := os.WriteFile(cipherPath, truncated, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := Run(Options{InputPath: cipherPath, OutputPath: outPath, Passphrase: []byte("pw")}); err == nil {
		t.Error("expected Run to reject a truncated ciphertext stream")
	}
}

func TestDecipherRejectsHeaderDigestTamper(t *testing.T) {
	payload := []byte("small file")
	cipherPath := encipherFixture(t, payload, "pw")
	outPath := filepath.Join(filepath.Dir(cipherPath), "out.txt")

	raw, err := os.ReadFile(cipherPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// flip a byte inside the RDF header, before the cipherpacket trailer
	idx := bytes.Index(raw, []byte("<cipher:type>"))
	if idx == -1 {
		t.Fatal("could not locate header field to tamper")
	}
	raw[idx+20] ^= 0x01
	if err := os.WriteFile(cipherPath, raw, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := Run(Options{InputPath: cipherPath, OutputPath: outPath, Passphrase: []byte("pw")}); err == nil {
		t.Error("expected Run to reject a tampered header before reading any chunk")
	}
}
