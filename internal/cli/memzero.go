package cli

import "github.com/awnumar/memguard"

// ZeroPassphrase overwrites a passphrase buffer in place once a pipeline
// run is done with it (spec §7 policy: "intermediate buffers that might
// hold plaintext or key material are zeroed on all error paths").
// memguard.WipeBytes is the pack's secure-erase primitive for exactly
// this shape of cleanup, grounded in the DOMAIN STACK's "secure
// in-memory key material" entry.
func ZeroPassphrase(b []byte) {
	memguard.WipeBytes(b)
}
