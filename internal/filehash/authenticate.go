package filehash

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"wizardtoolkit/internal/auth"
	"wizardtoolkit/internal/blob"
	"wizardtoolkit/internal/errkind"
)

// knownAlgNames lists the digest:<alg> leaf names Parse recognizes, in
// the order Authenticate mode's "the algorithm whose element name
// appears inside" rule checks them.
var knownAlgNames = []auth.KeyHash{auth.SHA256, auth.SHA384, auth.SHA512, auth.SHA3256}

// Parse recovers the Records an RDF document (spec §6.3) describes.
// Unlike internal/packet, this document carries no outer digest to
// verify — it is meant to be signed or transmitted out of band — so
// Parse only has to tolerate the RDF's tag soup, not authenticate it.
func Parse(wire []byte) ([]Record, error) {
	s := string(wire)
	var records []Record

	const openTag = "<digest:Content"
	for {
		idx := strings.Index(s, openTag)
		if idx == -1 {
			break
		}
		tail := s[idx+len(openTag):]
		closeIdx := strings.IndexByte(tail, '>')
		if closeIdx == -1 {
			return nil, errkind.New(errkind.KindOption, "Parse", fmt.Errorf("unterminated <digest:Content> tag"))
		}
		attrs := tail[:closeIdx]
		about := unescapeXML(extractAttr(attrs, "rdf:about"))

		endTag := "</digest:Content>"
		body := tail[closeIdx+1:]
		endIdx := strings.Index(body, endTag)
		if endIdx == -1 {
			return nil, errkind.New(errkind.KindOption, "Parse", fmt.Errorf("missing closing </digest:Content> for %q", about))
		}

		rec, err := parseRecordBody(body[:endIdx], about)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)

		s = body[endIdx+len(endTag):]
	}
	return records, nil
}

func parseRecordBody(body, about string) (Record, error) {
	rec := Record{Path: about}
	fields, err := scanLeaves(body)
	if err != nil {
		return Record{}, err
	}

	for _, f := range fields {
		switch f.name {
		case "digest:timestamp":
			rec.Timestamp, err = parseDate(f.value)
		case "digest:modify-date":
			rec.ModifyDate, err = parseDate(f.value)
		case "digest:create-date":
			rec.CreateDate, err = parseDate(f.value)
		case "digest:extent":
			var n int64
			n, err = strconv.ParseInt(f.value, 10, 64)
			rec.Extent = n
		default:
			alg, ok := matchAlgName(f.name)
			if !ok {
				continue // unrecognized leaf: ignore, spec only asks for tolerant scanning here
			}
			rec.Alg = alg
			rec.DigestHex = f.value
		}
		if err != nil {
			return Record{}, errkind.New(errkind.KindOption, "parseRecordBody", fmt.Errorf("field %q: %w", f.name, err))
		}
	}
	if rec.DigestHex == "" {
		return Record{}, errkind.New(errkind.KindOption, "parseRecordBody", fmt.Errorf("%q: no recognized digest algorithm element", about))
	}
	return rec, nil
}

func matchAlgName(tag string) (auth.KeyHash, bool) {
	name := strings.TrimPrefix(tag, "digest:")
	for _, alg := range knownAlgNames {
		if alg.String() == name {
			return alg, true
		}
	}
	return 0, false
}

type leaf struct{ name, value string }

func scanLeaves(body string) ([]leaf, error) {
	var out []leaf
	for {
		body = strings.TrimLeft(body, " \t\r\n")
		if body == "" {
			break
		}
		if body[0] != '<' {
			return nil, fmt.Errorf("unexpected content %q", snippet(body))
		}
		gt := strings.IndexByte(body, '>')
		if gt == -1 {
			return nil, fmt.Errorf("unterminated tag")
		}
		tagName := strings.TrimSpace(body[1:gt])
		closeTag := "</" + tagName + ">"
		valueStart := gt + 1
		closeIdx := strings.Index(body[valueStart:], closeTag)
		if closeIdx == -1 {
			return nil, fmt.Errorf("missing closing tag for <%s>", tagName)
		}
		out = append(out, leaf{name: tagName, value: unescapeXML(body[valueStart : valueStart+closeIdx])})
		body = body[valueStart+closeIdx+len(closeTag):]
	}
	return out, nil
}

func snippet(s string) string {
	if len(s) > 24 {
		return s[:24] + "..."
	}
	return s
}

func extractAttr(attrs, name string) string {
	idx := strings.Index(attrs, name)
	if idx == -1 {
		return ""
	}
	rest := attrs[idx+len(name):]
	trimmed := strings.TrimLeft(rest, " \t\r\n")
	if !strings.HasPrefix(trimmed, "=") {
		return ""
	}
	trimmed = strings.TrimLeft(trimmed[1:], " \t\r\n")
	if len(trimmed) == 0 || (trimmed[0] != '"' && trimmed[0] != '\'') {
		return ""
	}
	quote := trimmed[0]
	end := strings.IndexByte(trimmed[1:], quote)
	if end == -1 {
		return ""
	}
	return trimmed[1 : 1+end]
}

func unescapeXML(s string) string {
	r := strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")
	return r.Replace(s)
}

// Authenticate re-hashes the file at each Record's path with the
// algorithm recorded for it and compares hex digests (spec §4.9
// Authenticate mode). A path that cannot be opened is reported in its
// Result rather than aborting the remaining records.
func Authenticate(records []Record) []Result {
	results := make([]Result, 0, len(records))
	for _, rec := range records {
		results = append(results, authenticateOne(rec))
	}
	return results
}

func authenticateOne(rec Record) Result {
	stream, err := blob.Open(rec.Path, blob.ReadMode, false)
	if err != nil {
		return Result{Record: rec, OpenError: err}
	}
	defer stream.Close()

	h := rec.Alg.NewHash()()
	if _, err := io.Copy(h, stream); err != nil {
		return Result{Record: rec, OpenError: err}
	}

	current := hex.EncodeToString(h.Sum(nil))
	return Result{Record: rec, Current: current, Matched: strings.EqualFold(current, rec.DigestHex)}
}
