// Package decipher implements the decipher pipeline (spec §4.8, component
// C8): the read-path mirror of internal/encipher, reversing the header
// parse, per-chunk HMAC verification, and entropy restoration. Grounded,
// like its sibling, in the phase structure of the teacher's
// internal/volume/decrypt.go (parse header → derive key → verify →
// process chunks), adapted to the spec's RDF header and selectable
// cipher/mode/hmac/entropy configuration instead of Picocrypt's fixed
// format.
package decipher

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/subtle"
	"fmt"
	"io"
	"time"

	"wizardtoolkit/internal/auth"
	"wizardtoolkit/internal/blob"
	"wizardtoolkit/internal/cryptosuite"
	"wizardtoolkit/internal/entropy"
	"wizardtoolkit/internal/errkind"
	"wizardtoolkit/internal/log"
	"wizardtoolkit/internal/packet"
	"wizardtoolkit/internal/util"
)

// Options configures one decipher run.
type Options struct {
	InputPath      string
	OutputPath     string
	PropertiesPath string // if set, the header is read from here instead of InputPath

	Passphrase []byte

	Keyring  auth.Keyring
	Reporter util.ProgressReporter
	Warnings *log.Collector
}

// Run executes one decipher pipeline invocation end to end. It verifies
// the header digest before any cipher work happens (spec §4.6: a header
// digest mismatch aborts before a single chunk is read) and fails each
// chunk with a *errkind.ChunkError identifying its index on tamper or
// truncation (spec §4.8, §8 scenario 4).
func Run(opts Options) error {
	if opts.Reporter == nil {
		opts.Reporter = util.NullReporter{}
	}
	if opts.Warnings == nil {
		opts.Warnings = log.NewCollector(nil)
	}

	cipherIn, err := blob.Open(opts.InputPath, blob.ReadMode, false)
	if err != nil {
		return err
	}
	defer cipherIn.Close()

	headerIn := cipherIn
	var propsIn *blob.Stream
	if opts.PropertiesPath != "" {
		propsIn, err = blob.Open(opts.PropertiesPath, blob.ReadMode, false)
		if err != nil {
			return err
		}
		defer propsIn.Close()
		headerIn = propsIn
	}

	headerBr := bufio.NewReader(headerIn)
	desc, err := packet.Parse(headerBr, opts.Warnings)
	if err != nil {
		return err
	}

	blockSize := cryptosuite.BlockSizeOf(desc.Cipher)

	// readCiphertextChunk needs to look up to chunksize+blockSize bytes
	// ahead to tell a non-final chunk from a final one padded with a full
	// extra block (spec §9's resolved Open Question 1), which the small
	// default bufio buffer Parse used cannot hold. Re-wrap in a
	// larger-buffered reader, but first drain whatever Parse already
	// pulled into headerBr's buffer so none of it is lost — the same
	// lesson that made packet.Parse take a *bufio.Reader in the first
	// place.
	leftover := make([]byte, headerBr.Buffered())
	io.ReadFull(headerBr, leftover)

	chunkSource := io.Reader(headerIn)
	if len(leftover) > 0 {
		chunkSource = io.MultiReader(bytes.NewReader(leftover), headerIn)
	}
	chunkBr := bufio.NewReaderSize(chunkSource, int(desc.ChunkSize)+blockSize+64)

	// When the header lives in a separate properties file, chunk data is
	// read from the start of the ciphertext stream instead.
	if propsIn != nil {
		chunkBr = bufio.NewReaderSize(cipherIn, int(desc.ChunkSize)+blockSize+64)
	}

	info := &auth.Info{
		Method:     desc.AuthenticateMethod,
		KeyHash:    desc.KeyHash,
		KeyLength:  desc.KeyLength,
		Passphrase: opts.Passphrase,
	}
	if err := auth.AuthenticateKey(info, desc.KeyID, opts.Keyring); err != nil {
		return err
	}

	suite, err := cryptosuite.NewSuite(desc.Cipher, desc.Mode, info.Key, desc.Nonce)
	if err != nil {
		return err
	}

	plainOut, err := blob.Open(opts.OutputPath, blob.WriteMode, false)
	if err != nil {
		return err
	}
	defer plainOut.Close()

	opts.Reporter.SetStatus("decrypting")
	start := time.Now()
	total, _ := cipherIn.Size() // best-effort; ciphertext size approximates plaintext size for progress
	var processed int64
	chunkIndex := 0
	pool := util.ChunkPool(int(desc.ChunkSize))

	for {
		if _, peekErr := chunkBr.Peek(1); peekErr != nil {
			break // clean end of stream: previous chunk was final
		}

		var digest []byte
		if desc.HMAC != packet.HMACNone {
			digest = make([]byte, desc.HMAC.DigestSize())
			if _, err := io.ReadFull(chunkBr, digest); err != nil {
				return errkind.New(errkind.KindAuthenticate, "Run",
					errkind.NewChunkError(chunkIndex, fmt.Errorf("truncated HMAC: %w", err)))
			}
		}

		entropyMarker := entropy.None
		if desc.EntropyCodec != entropy.None {
			var b [1]byte
			if _, err := io.ReadFull(chunkBr, b[:]); err != nil {
				return errkind.New(errkind.KindAuthenticate, "Run",
					errkind.NewChunkError(chunkIndex, fmt.Errorf("truncated entropy marker: %w", err)))
			}
			entropyMarker = entropy.Codec(b[0])
		}

		ciphertext, isFinal, err := readCiphertextChunk(chunkBr, int(desc.ChunkSize), blockSize, suite.NeedsPadding(), pool)
		if err != nil {
			return errkind.New(errkind.KindAuthenticate, "Run", errkind.NewChunkError(chunkIndex, err))
		}

		payload, err := suite.DecipherChunk(ciphertext, isFinal)
		pool.Put(ciphertext) // no-op if ciphertext isn't a full chunkSize buffer (short final chunk)
		if err != nil {
			return errkind.New(errkind.KindAuthenticate, "Run", errkind.NewChunkError(chunkIndex, err))
		}

		if desc.HMAC != packet.HMACNone {
			mac := hmac.New(desc.HMAC.NewHash(), info.Key)
			mac.Write(payload)
			if subtle.ConstantTimeCompare(mac.Sum(nil), digest) != 1 {
				return errkind.New(errkind.KindAuthenticate, "Run",
					errkind.NewChunkError(chunkIndex, errkind.ErrCorruptChunk))
			}
		}

		plaintext := payload
		if entropyMarker != entropy.None {
			plaintext, err = entropy.Restore(entropyMarker, len(payload), payload)
			if err != nil {
				return errkind.New(errkind.KindAuthenticate, "Run", errkind.NewChunkError(chunkIndex, err))
			}
		}

		if _, err := plainOut.Write(plaintext); err != nil {
			return err
		}

		processed += int64(len(plaintext))
		chunkIndex++
		progress, _, eta := util.Statify(processed, total, start)
		opts.Reporter.SetProgress(progress, fmt.Sprintf("chunk %d, eta %s", chunkIndex, eta))
		if opts.Reporter.IsCancelled() {
			return errkind.New(errkind.KindFile, "Run", errkind.ErrCancelled)
		}
	}

	opts.Reporter.SetStatus("done")
	return nil
}

// readCiphertextChunk determines how many of the next bytes on br belong
// to the current chunk and reads exactly that many, without an explicit
// length field on the wire.
//
// A non-final chunk's ciphertext is always exactly chunkSize bytes (the
// pipeline only ever pads the last chunk). A final chunk's ciphertext,
// when the mode pads, is always either <= chunkSize bytes, or exactly
// chunkSize+blockSize bytes (the full extra block added when the last
// plaintext chunk happened to already be block aligned, per the padding
// package's Pad). No valid final chunk ever lands strictly between those
// two, so peeking up to chunkSize+blockSize+1 bytes disambiguates: if
// more than chunkSize+blockSize bytes remain, this chunk must be
// non-final; if exactly chunkSize+blockSize remain, it must be a final
// chunk with the full extra pad block (true whenever each chunk carries at
// least one byte of HMAC digest or entropy marker ahead of its ciphertext,
// which holds for every configuration except HMAC=None with
// EntropyCodec=None, a no-authentication setup this resolution does not
// attempt to cover).
// The chunkSize-sized buffers it returns (the common case: a non-final
// chunk, or a final chunk with no padding overflow) come from pool, which
// the caller returns them to via Put once it's done with the ciphertext;
// the two size-varying final-chunk paths fall back to a fresh allocation
// since they don't match the pool's fixed buffer size.
func readCiphertextChunk(br *bufio.Reader, chunkSize, blockSize int, needsPadding bool, pool *util.BufferPool) (chunk []byte, isFinal bool, err error) {
	if !needsPadding {
		buf := pool.Get()
		n, readErr := io.ReadFull(br, buf)
		if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
			return nil, false, readErr
		}
		if n < chunkSize {
			return buf[:n], true, nil
		}
		if _, peekErr := br.Peek(1); peekErr != nil {
			return buf, true, nil
		}
		return buf, false, nil
	}

	maxFinal := chunkSize + blockSize
	peeked, peekErr := br.Peek(maxFinal)
	avail := len(peeked)

	switch {
	case avail == 0:
		return nil, false, fmt.Errorf("truncated ciphertext: no bytes available for chunk")
	case avail == maxFinal:
		if _, moreErr := br.Peek(maxFinal + 1); moreErr == nil {
			// more than chunkSize+blockSize bytes remain: this chunk is non-final
			out := pool.Get()
			if _, err := io.ReadFull(br, out); err != nil {
				return nil, false, err
			}
			return out, false, nil
		}
		// exactly chunkSize+blockSize bytes remain: final chunk with a full extra pad block
		out := make([]byte, maxFinal)
		if _, err := io.ReadFull(br, out); err != nil {
			return nil, false, err
		}
		return out, true, nil
	case avail == chunkSize:
		out := pool.Get()
		if _, err := io.ReadFull(br, out); err != nil {
			return nil, false, err
		}
		return out, true, nil
	case avail > chunkSize && avail < maxFinal:
		// stream ended with neither a clean chunkSize nor chunkSize+blockSize
		// boundary: truncation or tampering.
		return nil, false, fmt.Errorf("ciphertext chunk boundary corrupt: %d bytes remain, expected %d or %d", avail, chunkSize, maxFinal)
	default: // 0 < avail < chunkSize: the stream ends inside this chunk, so it is a short final chunk
		if peekErr == nil {
			return nil, false, fmt.Errorf("unexpected ciphertext chunk state: %d bytes available", avail)
		}
		out := make([]byte, avail)
		if _, err := io.ReadFull(br, out); err != nil {
			return nil, false, err
		}
		return out, true, nil
	}
}
