// Package packet implements the cipher-packet envelope (spec §4.6, §6.1,
// component C6): generating and parsing the self-describing RDF/XML
// header that prefixes every ciphertext stream, including its SHA-256
// integrity digest. The teacher carries no RDF anywhere (its header is a
// binary struct protected by Reed-Solomon, see internal/header/format.go)
// so this package is new; its tolerant-scan-then-verify-then-parse
// discipline is grounded in spec §4.6 itself and in the teacher's general
// habit (internal/header/writer.go) of writing a digest over serialized
// bytes before anything else touches them.
package packet

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"wizardtoolkit/internal/auth"
	"wizardtoolkit/internal/cryptosuite"
	"wizardtoolkit/internal/entropy"
	"wizardtoolkit/internal/errkind"
)

// HMACAlg names the hash driving per-chunk authentication (spec §3
// ContentDescriptor.hmac). None disables per-chunk authentication.
type HMACAlg int

const (
	HMACNone HMACAlg = iota
	HMACSHA256
	HMACSHA384
	HMACSHA512
)

func (h HMACAlg) String() string {
	switch h {
	case HMACNone:
		return "None"
	case HMACSHA256:
		return "SHA256"
	case HMACSHA384:
		return "SHA384"
	case HMACSHA512:
		return "SHA512"
	default:
		return "Unknown"
	}
}

// ParseHMACAlg maps a cipher packet's textual hmac field to an HMACAlg.
func ParseHMACAlg(s string) (HMACAlg, error) {
	switch s {
	case "None":
		return HMACNone, nil
	case "SHA256":
		return HMACSHA256, nil
	case "SHA384":
		return HMACSHA384, nil
	case "SHA512":
		return HMACSHA512, nil
	default:
		return 0, errkind.New(errkind.KindOption, "hmac", fmt.Errorf("unknown hmac algorithm %q", s))
	}
}

// DigestSize returns the MAC output length in bytes, or 0 for HMACNone.
func (h HMACAlg) DigestSize() int {
	switch h {
	case HMACSHA256:
		return 32
	case HMACSHA384:
		return 48
	case HMACSHA512:
		return 64
	default:
		return 0
	}
}

// NewHash returns a constructor for the hash underlying this HMAC
// algorithm, or nil for HMACNone.
func (h HMACAlg) NewHash() func() hash.Hash {
	switch h {
	case HMACSHA256:
		return sha256.New
	case HMACSHA384:
		return sha512.New384
	case HMACSHA512:
		return sha512.New
	default:
		return nil
	}
}

// Descriptor is the ContentDescriptor of spec §3: every field needed to
// reverse the cipher transform, carried in the cipher packet header.
type Descriptor struct {
	ProtocolMajor, ProtocolMinor uint16

	Cipher cryptosuite.CipherID
	Mode   cryptosuite.ModeID
	Nonce  []byte

	AuthenticateMethod auth.Method
	KeyHash            auth.KeyHash
	KeyLength          uint32
	KeyID              []byte

	EntropyCodec entropy.Codec
	EntropyLevel uint32

	HMAC      HMACAlg
	ChunkSize uint64

	CreateDate, ModifyDate, Timestamp int64
	Version                           string

	// AboutPath is the plaintext filename recorded in rdf:about, purely
	// informational (spec §6.1 cipher:Content rdf:about).
	AboutPath string
}

const (
	CurrentProtocolMajor = 1
	CurrentProtocolMinor = 0
)

// Validate checks the invariants spec §3 lists for ContentDescriptor. Each
// failure is a KindOption Fault; all but the key-length check (delegated to
// auth.ValidateKeyLength) wrap a *errkind.ValidationError naming the
// offending field.
func (d *Descriptor) Validate() error {
	if d.ProtocolMajor != CurrentProtocolMajor {
		return errkind.New(errkind.KindOption, "Validate", errkind.NewValidationError(
			"protocol-major", fmt.Sprintf("unknown protocol major version %d", d.ProtocolMajor)))
	}
	blockSize := cryptosuite.BlockSizeOf(d.Cipher)
	if d.Mode.NeedsNonce() && len(d.Nonce) < blockSize {
		return errkind.New(errkind.KindOption, "Validate", errkind.NewValidationError(
			"nonce", fmt.Sprintf("%d bytes is shorter than blocksize %d required by mode %s", len(d.Nonce), blockSize, d.Mode)))
	}
	if err := auth.ValidateKeyLength(d.KeyLength); err != nil {
		return err
	}
	if d.ChunkSize < 1 {
		return errkind.New(errkind.KindOption, "Validate", errkind.NewValidationError("chunksize", "must be >= 1"))
	}
	if d.EntropyLevel < 1 || d.EntropyLevel > 9 {
		return errkind.New(errkind.KindOption, "Validate", errkind.NewValidationError(
			"entropy-level", fmt.Sprintf("%d out of range [1,9]", d.EntropyLevel)))
	}
	return nil
}
