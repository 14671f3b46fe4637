package filehash

import (
	"os"
	"path/filepath"
	"testing"

	"wizardtoolkit/internal/auth"
)

func writeTempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestGenerateThenAuthenticateAllMatch(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeTempFile(t, dir, "a.txt", []byte("alpha content")),
		writeTempFile(t, dir, "b.txt", []byte("bravo content, a little longer")),
	}

	wire, records, err := Generate(paths, auth.SHA256)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(records) != len(paths) {
		t.Fatalf("expected %d records, got %d", len(paths), len(records))
	}

	parsed, err := Parse(wire)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed) != len(paths) {
		t.Fatalf("expected %d parsed records, got %d", len(paths), len(parsed))
	}

	for i, rec := range parsed {
		if rec.Path != records[i].Path || rec.DigestHex != records[i].DigestHex {
			t.Errorf("record %d mismatch: got %+v want %+v", i, rec, records[i])
		}
	}

	results := Authenticate(parsed)
	for _, r := range results {
		if !r.Matched {
			t.Errorf("expected match for %s, got %s", r.Record.Path, r.Diagnostic())
		}
	}
}

func TestAuthenticateDetectsModifiedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "c.txt", []byte("original content"))

	wire, _, err := Generate([]string{path}, auth.SHA512)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if err := os.WriteFile(path, []byte("tampered content"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	records, err := Parse(wire)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	results := Authenticate(records)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Matched {
		t.Error("expected mismatch to be detected after file was modified")
	}
}

func TestAuthenticateReportsMissingFileWithoutAborting(t *testing.T) {
	dir := t.TempDir()
	present := writeTempFile(t, dir, "present.txt", []byte("still here"))
	missing := filepath.Join(dir, "gone.txt")
	if err := os.WriteFile(missing, []byte("will be deleted"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	wire, _, err := Generate([]string{missing, present}, auth.SHA256)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := os.Remove(missing); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	records, err := Parse(wire)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	results := Authenticate(records)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].OpenError == nil {
		t.Error("expected an open error for the removed file")
	}
	if !results[1].Matched {
		t.Errorf("expected the present file to still authenticate: %s", results[1].Diagnostic())
	}
}

func TestParseRejectsUnterminatedContent(t *testing.T) {
	if _, err := Parse([]byte("<rdf:RDF><digest:Content rdf:about=\"x\">")); err == nil {
		t.Error("expected an error for an unterminated digest:Content element")
	}
}
