package auth

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"golang.org/x/crypto/sha3"

	"wizardtoolkit/internal/errkind"
)

// KeyHash names the hash used to stretch a passphrase into a key and to
// compute a key id (spec §3 ContentDescriptor.key_hash).
type KeyHash int

const (
	SHA256 KeyHash = iota
	SHA384
	SHA512
	SHA3256
)

func (k KeyHash) String() string {
	switch k {
	case SHA256:
		return "SHA256"
	case SHA384:
		return "SHA384"
	case SHA512:
		return "SHA512"
	case SHA3256:
		return "SHA3256"
	default:
		return "Unknown"
	}
}

// ParseKeyHash maps a cipher packet's textual key-hash to a KeyHash.
func ParseKeyHash(s string) (KeyHash, error) {
	switch s {
	case "SHA256":
		return SHA256, nil
	case "SHA384":
		return SHA384, nil
	case "SHA512":
		return SHA512, nil
	case "SHA3256":
		return SHA3256, nil
	default:
		return 0, errkind.New(errkind.KindOption, "key-hash", fmt.Errorf("unknown key hash %q", s))
	}
}

func (k KeyHash) new() func() hash.Hash {
	switch k {
	case SHA256:
		return sha256.New
	case SHA384:
		return sha512.New384
	case SHA512:
		return sha512.New
	case SHA3256:
		return sha3.New256
	default:
		return sha256.New
	}
}

// DigestSize returns the output size in bytes of the hash k selects.
func (k KeyHash) DigestSize() int {
	return k.new()().Size()
}

// NewHash returns a constructor for the hash k selects. Exported for
// consumers outside this package that need a plain content digest rather
// than a key-derivation primitive, e.g. internal/filehash.
func (k KeyHash) NewHash() func() hash.Hash {
	return k.new()
}
