package filehash

import (
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"wizardtoolkit/internal/auth"
	"wizardtoolkit/internal/blob"
	"wizardtoolkit/internal/errkind"
)

const (
	rdfNamespace    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	digestNamespace = "http://wizardtoolkit.example/digest/1.0/"
)

// Generate streams each of paths through alg and returns both the
// aggregate RDF document (spec §6.3) and the per-file Records it
// describes. A file that cannot be opened aborts the whole call: unlike
// Authenticate, Generate has nothing sensible to emit for a file it
// never hashed.
func Generate(paths []string, alg auth.KeyHash) (wire []byte, records []Record, err error) {
	records = make([]Record, 0, len(paths))
	for _, path := range paths {
		rec, err := hashFile(path, alg)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
	}
	return renderDocument(records), records, nil
}

func hashFile(path string, alg auth.KeyHash) (Record, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		return Record{}, errkind.New(errkind.KindFile, "hashFile", statErr)
	}

	stream, err := blob.Open(path, blob.ReadMode, false)
	if err != nil {
		return Record{}, err
	}
	defer stream.Close()

	h := alg.NewHash()()
	n, err := io.Copy(h, stream)
	if err != nil {
		return Record{}, errkind.New(errkind.KindFile, "hashFile", err)
	}

	now := time.Now().Unix()
	return Record{
		Path:       path,
		Timestamp:  now,
		ModifyDate: info.ModTime().Unix(),
		CreateDate: info.ModTime().Unix(),
		Extent:     n,
		Alg:        alg,
		DigestHex:  hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func renderDocument(records []Record) []byte {
	var b strings.Builder
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, "<rdf:RDF xmlns:rdf=%q xmlns:digest=%q>\n", rdfNamespace, digestNamespace)
	for _, rec := range records {
		renderRecord(&b, rec)
	}
	b.WriteString("</rdf:RDF>\n")
	return []byte(b.String())
}

func renderRecord(b *strings.Builder, rec Record) {
	fmt.Fprintf(b, "  <digest:Content rdf:about=%q>\n", escapeAttr(rec.Path))
	fmt.Fprintf(b, "    <digest:timestamp>%s</digest:timestamp>\n", formatDate(rec.Timestamp))
	fmt.Fprintf(b, "    <digest:modify-date>%s</digest:modify-date>\n", formatDate(rec.ModifyDate))
	fmt.Fprintf(b, "    <digest:create-date>%s</digest:create-date>\n", formatDate(rec.CreateDate))
	fmt.Fprintf(b, "    <digest:extent>%d</digest:extent>\n", rec.Extent)
	fmt.Fprintf(b, "    <digest:%s>%s</digest:%s>\n", rec.Alg.String(), rec.DigestHex, rec.Alg.String())
	b.WriteString("  </digest:Content>\n")
}

func formatDate(unixSeconds int64) string {
	return time.Unix(unixSeconds, 0).UTC().Format("2006-01-02T15:04:05")
}

func parseDate(s string) (int64, error) {
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

func escapeAttr(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
