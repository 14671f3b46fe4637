package packet

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"testing"

	"wizardtoolkit/internal/auth"
	"wizardtoolkit/internal/cryptosuite"
	"wizardtoolkit/internal/entropy"
	"wizardtoolkit/internal/log"
)

func sampleDescriptor() *Descriptor {
	return &Descriptor{
		ProtocolMajor:      CurrentProtocolMajor,
		ProtocolMinor:      CurrentProtocolMinor,
		Cipher:             cryptosuite.CipherAES,
		Mode:               cryptosuite.ModeCTR,
		Nonce:              bytes.Repeat([]byte{0x09}, 16),
		AuthenticateMethod: auth.Secret,
		KeyHash:            auth.SHA256,
		KeyLength:          256,
		KeyID:              bytes.Repeat([]byte{0xAB}, 32),
		EntropyCodec:       entropy.ZIP,
		EntropyLevel:       9,
		HMAC:               HMACSHA256,
		ChunkSize:          262144,
		CreateDate:         1700000000,
		ModifyDate:         1700000100,
		Timestamp:          1700000200,
		Version:            "wizardtoolkit-test",
		AboutPath:          "secret-plans.txt",
	}
}

func TestGenerateParseRoundTrip(t *testing.T) {
	d := sampleDescriptor()
	wire, _, err := Generate(d)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	warn := log.NewCollector(nil)
	got, err := Parse(bufio.NewReader(bytes.NewReader(wire)), warn)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if warn.HasWarnings() {
		t.Errorf("unexpected warnings: %v", warn.Warnings())
	}

	if got.Cipher != d.Cipher || got.Mode != d.Mode || got.KeyHash != d.KeyHash {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if !bytes.Equal(got.Nonce, d.Nonce) {
		t.Errorf("nonce mismatch: got %x want %x", got.Nonce, d.Nonce)
	}
	if !bytes.Equal(got.KeyID, d.KeyID) {
		t.Errorf("key id mismatch")
	}
	if got.ChunkSize != d.ChunkSize || got.EntropyLevel != d.EntropyLevel {
		t.Errorf("scalar field mismatch: got %+v", got)
	}
	if got.AboutPath != d.AboutPath {
		t.Errorf("AboutPath mismatch: got %q want %q", got.AboutPath, d.AboutPath)
	}
}

func TestParseRejectsTamperedHeaderByte(t *testing.T) {
	d := sampleDescriptor()
	wire, _, err := Generate(d)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// flip one byte inside the RDF body
	tampered := append([]byte(nil), wire...)
	for i := len(tampered) - 40; i < len(tampered)-20; i++ {
		if tampered[i] >= 'a' && tampered[i] <= 'z' {
			tampered[i] ^= 0x01
			break
		}
	}

	warn := log.NewCollector(nil)
	if _, err := Parse(bufio.NewReader(bytes.NewReader(tampered)), warn); err == nil {
		t.Error("expected digest mismatch to be rejected")
	}
}

func TestParseAcceptsRdfDescriptionBackCompat(t *testing.T) {
	d := sampleDescriptor()
	rdfBody := renderRDF(d)
	legacy := bytes.Replace(rdfBody, []byte("cipher:Content"), []byte("rdf:Description"), -1)

	sum := sha256sum(legacy)
	var wire bytes.Buffer
	wire.WriteString("<?cipherpacket digest=\"")
	wire.WriteString(sum)
	wire.WriteString("\" bytes=\"")
	wire.WriteString(itoa(len(legacy)))
	wire.WriteString("\"?>\n")
	wire.Write(legacy)
	wire.WriteString("\n<?cipherpacket?>\f\n")

	warn := log.NewCollector(nil)
	got, err := Parse(bufio.NewReader(&wire), warn)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Cipher != d.Cipher {
		t.Errorf("expected rdf:Description fallback to parse fields correctly")
	}
}

func TestParseWarnsOnUnknownField(t *testing.T) {
	d := sampleDescriptor()
	rdfBody := renderRDF(d)
	withExtra := bytes.Replace(rdfBody, []byte("</cipher:Content>"),
		[]byte("<cipher:future-field>xyz</cipher:future-field>\n  </cipher:Content>"), 1)

	sum := sha256sum(withExtra)
	var wire bytes.Buffer
	wire.WriteString("<?cipherpacket digest=\"")
	wire.WriteString(sum)
	wire.WriteString("\" bytes=\"")
	wire.WriteString(itoa(len(withExtra)))
	wire.WriteString("\"?>\n")
	wire.Write(withExtra)
	wire.WriteString("\n<?cipherpacket?>\f\n")

	warn := log.NewCollector(nil)
	if _, err := Parse(bufio.NewReader(&wire), warn); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !warn.HasWarnings() {
		t.Error("expected a warning about the unknown field")
	}
}

func sha256sum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func itoa(n int) string { return strconv.Itoa(n) }
