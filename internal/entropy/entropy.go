// Package entropy implements the entropy codec (spec §4.2, component
// C2): one uniform interface over three compressors, used to reduce the
// predictability of a chunk before it is authenticated and encrypted.
// The teacher repo has no such layer (Picocrypt never compresses
// plaintext), so this is grounded in archive/zip's codec-selection idiom
// from the teacher's internal/fileops/zip.go (compress/flate family) and
// in the two out-of-pack compressors named directly in the expanded
// specification for BZIP and LZMA, since nothing in the retrieval pack
// supplies a write-capable BZIP2 or any LZMA implementation.
package entropy

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz/lzma"

	"wizardtoolkit/internal/errkind"
)

// Codec names a compressor usable as an entropy back-end (spec §3
// ContentDescriptor.entropy_codec).
type Codec int

const (
	None Codec = iota
	ZIP
	BZIP
	LZMA
)

func (c Codec) String() string {
	switch c {
	case None:
		return "None"
	case ZIP:
		return "ZIP"
	case BZIP:
		return "BZIP"
	case LZMA:
		return "LZMA"
	default:
		return "Unknown"
	}
}

// ParseCodec maps a cipher packet's textual entropy codec to a Codec.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "None":
		return None, nil
	case "ZIP":
		return ZIP, nil
	case "BZIP":
		return BZIP, nil
	case "LZMA":
		return LZMA, nil
	default:
		return 0, errkind.New(errkind.KindOption, "entropy", fmt.Errorf("unknown entropy codec %q", s))
	}
}

// ClampLevel forces level into the valid [1, 9] range (spec §4.2).
func ClampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 9 {
		return 9
	}
	return level
}

// Increase compresses plaintext at the given effort level, returning the
// compressed bytes ("chaos"). The caller compares len(result) against
// len(plaintext) and decides whether compression paid off (spec §4.7: a
// chunk is only ever emitted compressed when it shrank).
func Increase(codec Codec, plaintext []byte, level int) ([]byte, error) {
	level = ClampLevel(level)
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error

	switch codec {
	case None:
		return plaintext, nil
	case ZIP:
		w, err = flate.NewWriter(&buf, zipLevel(level))
	case BZIP:
		w, err = bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: level})
	case LZMA:
		w, err = lzma.NewWriter(&buf)
	default:
		return nil, errkind.New(errkind.KindEntropy, "Increase", fmt.Errorf("unknown codec %v", codec))
	}
	if err != nil {
		return nil, errkind.New(errkind.KindEntropy, "Increase", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, errkind.New(errkind.KindEntropy, "Increase", err)
	}
	if err := w.Close(); err != nil {
		return nil, errkind.New(errkind.KindEntropy, "Increase", err)
	}
	return buf.Bytes(), nil
}

// Restore decompresses chaos back to exactly originalLen bytes of
// plaintext. A length mismatch after decompression is a decipher error
// (spec §4.2: "restore is told the exact original length up-front;
// mismatch is a decipher error").
func Restore(codec Codec, originalLen int, chaos []byte) ([]byte, error) {
	if codec == None {
		if len(chaos) != originalLen {
			return nil, errkind.New(errkind.KindEntropy, "Restore",
				fmt.Errorf("expected %d verbatim bytes, got %d", originalLen, len(chaos)))
		}
		return chaos, nil
	}

	var r io.Reader
	var err error
	switch codec {
	case ZIP:
		r = flate.NewReader(bytes.NewReader(chaos))
	case BZIP:
		r, err = bzip2.NewReader(bytes.NewReader(chaos), nil)
	case LZMA:
		r, err = lzma.NewReader(bytes.NewReader(chaos))
	default:
		return nil, errkind.New(errkind.KindEntropy, "Restore", fmt.Errorf("unknown codec %v", codec))
	}
	if err != nil {
		return nil, errkind.New(errkind.KindEntropy, "Restore", err)
	}
	if rc, ok := r.(io.Closer); ok {
		defer rc.Close()
	}

	out := make([]byte, originalLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, errkind.New(errkind.KindEntropy, "Restore", err)
	}
	// confirm the decompressor is actually exhausted, catching a truncated
	// originalLen that happened to satisfy ReadFull with leftover bytes
	var extra [1]byte
	if n, _ := r.Read(extra[:]); n != 0 {
		return nil, errkind.New(errkind.KindEntropy, "Restore", fmt.Errorf("decompressed length exceeds %d", originalLen))
	}
	return out, nil
}

// zipLevel maps our 1..9 effort scale onto compress/flate's level
// constants, which also run 1..9 with flate.BestCompression == 9.
func zipLevel(level int) int {
	if level < flate.BestSpeed {
		return flate.BestSpeed
	}
	if level > flate.BestCompression {
		return flate.BestCompression
	}
	return level
}
