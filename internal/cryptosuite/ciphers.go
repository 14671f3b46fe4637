// Package cryptosuite implements the cipher state machine (spec §4.5,
// component C5): block-cipher resolution across AES/Serpent/TwoFish and a
// generic ECB/CBC/CFB/CTR/OFB mode layer built on top of a single
// cipher.Block, the way the standard library's crypto/cipher already
// composes block ciphers with modes for the modes it does provide.
package cryptosuite

import (
	"crypto/aes"
	"fmt"

	"github.com/Picocrypt/serpent"
	"golang.org/x/crypto/twofish"

	"wizardtoolkit/internal/errkind"
)

// CipherID names a symmetric block cipher a cipher packet can select
// (spec §3 ContentDescriptor.cipher).
type CipherID int

const (
	CipherAES CipherID = iota
	CipherSerpent
	CipherTwoFish
)

func (c CipherID) String() string {
	switch c {
	case CipherAES:
		return "AES"
	case CipherSerpent:
		return "Serpent"
	case CipherTwoFish:
		return "TwoFish"
	default:
		return "Unknown"
	}
}

// ParseCipherID maps a cipher packet's textual cipher id to a CipherID.
func ParseCipherID(s string) (CipherID, error) {
	switch s {
	case "AES":
		return CipherAES, nil
	case "Serpent":
		return CipherSerpent, nil
	case "TwoFish":
		return CipherTwoFish, nil
	default:
		return 0, errkind.New(errkind.KindOption, "cipher", fmt.Errorf("unknown cipher %q", s))
	}
}

// BlockSizeOf returns the block size in bytes for cipher id without
// constructing a cipher instance.
func BlockSizeOf(id CipherID) int {
	switch id {
	case CipherAES:
		return aes.BlockSize
	case CipherSerpent:
		return 16
	case CipherTwoFish:
		return twofish.BlockSize
	default:
		return 0
	}
}

// newBlock constructs the underlying block cipher for id with the given
// key. Key length must already satisfy the chosen cipher's requirements
// (checked upstream by the authenticator against key_length).
func newBlock(id CipherID, key []byte) (blockCipher, error) {
	switch id {
	case CipherAES:
		b, err := aes.NewCipher(key)
		if err != nil {
			return nil, errkind.New(errkind.KindCipher, "aes.NewCipher", err)
		}
		return b, nil
	case CipherSerpent:
		b, err := serpent.NewCipher(key)
		if err != nil {
			return nil, errkind.New(errkind.KindCipher, "serpent.NewCipher", err)
		}
		return b, nil
	case CipherTwoFish:
		b, err := twofish.NewCipher(key)
		if err != nil {
			return nil, errkind.New(errkind.KindCipher, "twofish.NewCipher", err)
		}
		return b, nil
	default:
		return nil, errkind.New(errkind.KindOption, "cipher", fmt.Errorf("unsupported cipher id %v", id))
	}
}

// blockCipher is the minimal shape all three ciphers already satisfy
// (crypto/cipher.Block); named locally so this file doesn't need to
// import crypto/cipher just to spell the constraint.
type blockCipher interface {
	BlockSize() int
	Encrypt(dst, src []byte)
	Decrypt(dst, src []byte)
}
