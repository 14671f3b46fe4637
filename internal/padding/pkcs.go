// Package padding implements the final-block padding rule used by every
// block-chaining cipher mode except CFB (spec §4.5): the pad length minus
// one is written repeatedly, and the last byte holds exactly that value,
// so Unpad can recover the count from the final byte alone.
package padding

import "bytes"

// Pad appends padding to data so its length becomes a multiple of
// blockSize. Per spec §4.5, the appended bytes are (p-1) copies of byte
// (p-1) followed by one byte holding p-1, where p is the pad length; the
// last byte of the final block equals p-1. If data is already block
// aligned, a full extra block of padding is appended (p == blockSize).
func Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	if padLen == 0 {
		padLen = blockSize
	}
	out := make([]byte, 0, len(data)+padLen)
	out = append(out, data...)
	if padLen > 1 {
		out = append(out, bytes.Repeat([]byte{byte(padLen - 1)}, padLen-1)...)
	}
	out = append(out, byte(padLen-1))
	return out
}

// Unpad removes padding from the final block of a block-aligned buffer,
// reading the pad length from the last byte plus one. Returns the
// original data unchanged if the buffer is too short or the recovered pad
// length doesn't fit, signalling corrupt input to the caller (spec §4.5:
// "decipher removes last_byte+1 bytes ... only at EOF").
func Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data) < blockSize {
		return data, false
	}
	padLen := int(data[len(data)-1]) + 1
	if padLen <= 0 || padLen > blockSize || padLen > len(data) {
		return data, false
	}
	return data[:len(data)-padLen], true
}

// PadLen returns the padding byte-count Pad would add for a chunk of the
// given length and block size, without performing the padding. Nothing in
// this repository calls it.
func PadLen(dataLen, blockSize int) int {
	padLen := blockSize - dataLen%blockSize
	if padLen == 0 {
		padLen = blockSize
	}
	return padLen
}
