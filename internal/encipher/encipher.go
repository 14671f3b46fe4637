// Package encipher implements the encipher pipeline (spec §4.7, component
// C7): drives the byte stream, authenticator, cipher state machine, and
// cipher-packet envelope for the write path. Grounded in the phase
// structure of the teacher's internal/volume/encrypt.go (preprocess →
// derive keys → write header → process chunks → finalize), adapted from
// Picocrypt's fixed ChaCha20/Serpent cascade to the spec's selectable
// (cipher, mode, hmac, entropy) configuration.
package encipher

import (
	"bufio"
	"crypto/hmac"
	"fmt"
	"io"
	"os"
	"time"

	"wizardtoolkit/internal/auth"
	"wizardtoolkit/internal/blob"
	"wizardtoolkit/internal/cryptosuite"
	"wizardtoolkit/internal/entropy"
	"wizardtoolkit/internal/errkind"
	"wizardtoolkit/internal/log"
	"wizardtoolkit/internal/packet"
	"wizardtoolkit/internal/reservoir"
	"wizardtoolkit/internal/util"
)

// Options configures one encipher run.
type Options struct {
	InputPath      string
	OutputPath     string
	PropertiesPath string // if set, the header is written here instead of OutputPath

	Cipher cryptosuite.CipherID
	Mode   cryptosuite.ModeID

	KeyHash    auth.KeyHash
	KeyLength  uint32
	Passphrase []byte

	EntropyCodec entropy.Codec
	EntropyLevel uint32

	HMAC      packet.HMACAlg
	ChunkSize uint64

	Reservoir *reservoir.Reservoir
	Keyring   auth.Keyring
	Reporter  util.ProgressReporter
	Warnings  *log.Collector
	Version   string
}

// Run executes one encipher pipeline invocation end to end.
func Run(opts Options) error {
	if opts.Reporter == nil {
		opts.Reporter = util.NullReporter{}
	}
	if opts.Warnings == nil {
		opts.Warnings = log.NewCollector(nil)
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = util.DefaultChunkSize
	}

	plainInfo, statErr := os.Stat(opts.InputPath)
	if statErr != nil {
		return errkind.New(errkind.KindFile, "Run", statErr)
	}

	plain, err := blob.Open(opts.InputPath, blob.ReadMode, false)
	if err != nil {
		return err
	}
	defer plain.Close()

	cipherOut, err := blob.Open(opts.OutputPath, blob.WriteMode, false)
	if err != nil {
		return err
	}
	defer cipherOut.Close()

	headerOut := cipherOut
	var propsOut *blob.Stream
	if opts.PropertiesPath != "" {
		propsOut, err = blob.Open(opts.PropertiesPath, blob.WriteMode, false)
		if err != nil {
			return err
		}
		defer propsOut.Close()
		headerOut = propsOut
	}

	info := &auth.Info{
		Method:     auth.Secret,
		KeyHash:    opts.KeyHash,
		KeyLength:  opts.KeyLength,
		Passphrase: opts.Passphrase,
	}
	if err := auth.GenerateKey(info, opts.Keyring); err != nil {
		return err
	}

	blockSize := cryptosuite.BlockSizeOf(opts.Cipher)
	var nonce []byte
	if opts.Mode.NeedsNonce() {
		nonce, err = opts.Reservoir.GetRandomKey(blockSize)
		if err != nil {
			return errkind.New(errkind.KindRandom, "Run", err)
		}
	}

	suite, err := cryptosuite.NewSuite(opts.Cipher, opts.Mode, info.Key, nonce)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	desc := &packet.Descriptor{
		ProtocolMajor:      packet.CurrentProtocolMajor,
		ProtocolMinor:      packet.CurrentProtocolMinor,
		Cipher:             opts.Cipher,
		Mode:               opts.Mode,
		Nonce:              nonce,
		AuthenticateMethod: auth.Secret,
		KeyHash:            opts.KeyHash,
		KeyLength:          opts.KeyLength,
		KeyID:              info.KeyID,
		EntropyCodec:       opts.EntropyCodec,
		EntropyLevel:       opts.EntropyLevel,
		HMAC:               opts.HMAC,
		ChunkSize:          opts.ChunkSize,
		CreateDate:         plainInfo.ModTime().Unix(),
		ModifyDate:         plainInfo.ModTime().Unix(),
		Timestamp:          now,
		Version:            opts.Version,
		AboutPath:          opts.InputPath,
	}

	wire, _, err := packet.Generate(desc)
	if err != nil {
		return err
	}
	if _, err := headerOut.Write(wire); err != nil {
		return err
	}

	opts.Reporter.SetStatus("encrypting")
	total := plainInfo.Size()
	start := time.Now()

	var processed int64
	chunkIndex := 0

	err = forEachChunk(plain, int(opts.ChunkSize), func(chunk []byte, isFinal bool) error {
		payload, entropyByte, err := applyEntropy(opts, chunk)
		if err != nil {
			return err
		}

		// Wire order follows spec §4.7's pseudocode literally: the HMAC
		// precedes the one-byte entropy marker, not the reverse implied by
		// §4.8's decipher sketch.
		if opts.HMAC != packet.HMACNone {
			mac := hmac.New(opts.HMAC.NewHash(), info.Key)
			mac.Write(payload)
			if _, err := cipherOut.Write(mac.Sum(nil)); err != nil {
				return err
			}
		}

		if opts.EntropyCodec != entropy.None {
			if _, err := cipherOut.Write([]byte{byte(entropyByte)}); err != nil {
				return err
			}
		}

		ciphertext, err := suite.EncipherChunk(payload, isFinal)
		if err != nil {
			return err
		}
		if _, err := cipherOut.Write(ciphertext); err != nil {
			return err
		}
		if err := cipherOut.Sync(); err != nil {
			return err
		}

		processed += int64(len(chunk))
		chunkIndex++
		progress, _, eta := util.Statify(processed, total, start)
		opts.Reporter.SetProgress(progress, fmt.Sprintf("chunk %d, eta %s", chunkIndex, eta))
		if opts.Reporter.IsCancelled() {
			return errkind.New(errkind.KindFile, "Run", errkind.ErrCancelled)
		}
		return nil
	})
	if err != nil {
		return err
	}

	opts.Reporter.SetStatus("done")
	return nil
}

// applyEntropy implements the per-chunk branch of spec §4.7: attempt
// compression, and only keep it if it actually shrank the chunk,
// otherwise store verbatim and signal that with entropy.None.
func applyEntropy(opts Options, chunk []byte) (payload []byte, chosen entropy.Codec, err error) {
	if opts.EntropyCodec == entropy.None {
		return chunk, entropy.None, nil
	}
	compressed, err := entropy.Increase(opts.EntropyCodec, chunk, int(opts.EntropyLevel))
	if err != nil {
		return nil, entropy.None, err
	}
	if len(compressed) >= len(chunk) {
		return chunk, entropy.None, nil
	}
	padLen := len(chunk) - len(compressed)
	randomPad, err := opts.Reservoir.GetRandomKey(padLen)
	if err != nil {
		return nil, entropy.None, errkind.New(errkind.KindRandom, "applyEntropy", err)
	}
	payload = append(compressed, randomPad...)
	return payload, opts.EntropyCodec, nil
}

// forEachChunk reads r in chunkSize-byte pieces, invoking fn once per
// chunk with isFinal set on the last one. A zero-byte source invokes fn
// zero times (spec §8 scenario 1: an empty plaintext produces a header
// with no chunks at all). It uses Peek to look one byte past the current
// chunk so the final, possibly short, chunk can be identified without
// requiring the underlying stream to be seekable.
//
// The chunk buffer comes from a util.BufferPool sized to chunkSize: the
// same buffer holds each chunk's plaintext in turn, and Put securely zeros
// it once forEachChunk returns.
func forEachChunk(r *blob.Stream, chunkSize int, fn func(chunk []byte, isFinal bool) error) error {
	br := bufio.NewReaderSize(r, chunkSize+1)
	pool := util.ChunkPool(chunkSize)
	buf := pool.Get()
	defer pool.Put(buf)

	for {
		n, err := io.ReadFull(br, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return errkind.New(errkind.KindFile, "forEachChunk", err)
		}
		if n == 0 {
			return nil
		}
		if n < chunkSize {
			return fn(buf[:n], true)
		}

		if _, peekErr := br.Peek(1); peekErr != nil {
			return fn(buf[:n], true)
		}
		if err := fn(buf[:n], false); err != nil {
			return err
		}
	}
}
