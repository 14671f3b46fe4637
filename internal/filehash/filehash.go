// Package filehash implements the digest RDF pipeline (spec §4.9, §6.3,
// component C9): generate a signable RDF document recording a hash per
// input file, and later authenticate a set of files against such a
// document. Grounded in internal/packet's tolerant-scan-then-parse RDF
// discipline, adapted from a single cipher:Content envelope to an
// aggregate rdf:RDF document holding one digest:Content per file.
package filehash

import "wizardtoolkit/internal/auth"

// Record is one file's entry in a digest RDF document: either produced
// by Generate or recovered by Parse.
type Record struct {
	Path       string
	Timestamp  int64
	ModifyDate int64
	CreateDate int64
	Extent     int64
	Alg        auth.KeyHash
	DigestHex  string
}

// Result is the outcome of authenticating one Record against the file
// currently on disk at Record.Path (spec §4.9 Authenticate mode).
type Result struct {
	Record    Record
	Matched   bool
	Current   string // recomputed digest, hex; empty if the path could not be opened
	OpenError error  // set when the referenced path could not be opened; Matched is false in this case
}

// Diagnostic renders a human-readable line describing a mismatch or open
// failure, per spec §4.9: "path, stored digest, current digest,
// timestamps".
func (r Result) Diagnostic() string {
	if r.OpenError != nil {
		return r.Record.Path + ": could not open: " + r.OpenError.Error()
	}
	if r.Matched {
		return r.Record.Path + ": OK"
	}
	return r.Record.Path + ": MISMATCH stored=" + r.Record.DigestHex + " current=" + r.Current +
		" modify-date=" + formatDate(r.Record.ModifyDate)
}
