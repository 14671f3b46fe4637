// Package util provides common constants, buffer pooling, progress
// reporting and formatting helpers shared by the toolkit's pipelines.
// All utilities here are stateless (or self-contained) and thread-safe.
package util

// Size constants for byte calculations.
const (
	KiB = 1 << 10
	MiB = 1 << 20
	GiB = 1 << 30
	TiB = 1 << 40
)

// DefaultChunkSize is the recommended default plaintext chunk size (spec
// §3: "chunksize >= 1; a recommended default is 262144").
const DefaultChunkSize = 262144

// RekeyThreshold is a byte threshold (60 GiB) that nothing in this
// repository reads: no pipeline rekeys or logs a rotation notice. Block
// modes here don't need a hard rekey the way a stream cipher nonce would,
// since the nonce/IV is fixed once per packet.
const RekeyThreshold = 60 * GiB
