package packet

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"wizardtoolkit/internal/auth"
	"wizardtoolkit/internal/cryptosuite"
	"wizardtoolkit/internal/entropy"
	"wizardtoolkit/internal/errkind"
	"wizardtoolkit/internal/log"
)

// Parse implements C6's parse half: scan for the opening `<?cipherpacket
// ...?>` processing instruction byte by byte (spec §4.6: "without
// assuming well-formed XML until the ?> that terminates the opening
// processing instruction"), verify the header digest before any RDF
// parsing happens, then walk the RDF body with a minimal recursive-
// descent reader and map each cipher:* element onto a Descriptor field.
// Unknown cipher:* fields are reported through warn but do not abort.
//
// br must be the *bufio.Reader the caller intends to keep reading chunk
// data from afterward — Parse never wraps its own buffer around r, since
// doing so would silently swallow read-ahead bytes that belong to the
// first ciphertext chunk.
func Parse(br *bufio.Reader, warn *log.Collector) (*Descriptor, error) {
	digestHex, bodyLen, err := readOpeningPI(br)
	if err != nil {
		return nil, err
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(br, body); err != nil {
		return nil, errkind.New(errkind.KindAuthenticate, "Parse", fmt.Errorf("short read of cipher packet body: %w", err))
	}

	sum := sha256.Sum256(body)
	if hex.EncodeToString(sum[:]) != strings.ToLower(digestHex) {
		return nil, errkind.New(errkind.KindAuthenticate, "Parse", errkind.ErrCorruptHeader)
	}

	d, err := parseRDFBody(body, warn)
	if err != nil {
		return nil, err
	}

	if err := consumeTrailerPI(br); err != nil {
		return nil, err
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// readOpeningPI scans up to and including "?>" of the opening PI and
// returns the digest and bytes attribute values, tolerant of whitespace
// around '=' and quoting style.
func readOpeningPI(br *bufio.Reader) (digestHex string, bodyLen int, err error) {
	const want = "<?cipherpacket"
	if err := expectLiteral(br, want); err != nil {
		return "", 0, errkind.New(errkind.KindAuthenticate, "readOpeningPI", fmt.Errorf("missing cipherpacket header: %w", err))
	}

	var attrBuf strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			return "", 0, errkind.New(errkind.KindAuthenticate, "readOpeningPI", err)
		}
		attrBuf.WriteByte(b)
		s := attrBuf.String()
		if strings.HasSuffix(s, "?>") {
			s = s[:len(s)-2]
			break
		}
	}
	// consume exactly one newline separating the PI from the RDF body, if present
	if next, err := br.Peek(1); err == nil && next[0] == '\n' {
		br.ReadByte()
	}

	attrs := attrBuf.String()
	attrs = strings.TrimSuffix(attrs, "?>")

	digestHex = extractAttr(attrs, "digest")
	bytesStr := extractAttr(attrs, "bytes")
	if digestHex == "" || bytesStr == "" {
		return "", 0, errkind.New(errkind.KindAuthenticate, "readOpeningPI", fmt.Errorf("missing digest or bytes attribute"))
	}
	n, err := strconv.Atoi(bytesStr)
	if err != nil || n < 0 {
		return "", 0, errkind.New(errkind.KindOption, "readOpeningPI", fmt.Errorf("invalid bytes attribute %q", bytesStr))
	}
	return digestHex, n, nil
}

// extractAttr finds name="value" (single or double quoted, tolerant of
// surrounding whitespace) inside a raw attribute blob.
func extractAttr(attrs, name string) string {
	idx := strings.Index(attrs, name)
	for idx != -1 {
		rest := attrs[idx+len(name):]
		trimmed := strings.TrimLeft(rest, " \t\r\n")
		if strings.HasPrefix(trimmed, "=") {
			trimmed = strings.TrimLeft(trimmed[1:], " \t\r\n")
			if len(trimmed) > 0 && (trimmed[0] == '"' || trimmed[0] == '\'') {
				quote := trimmed[0]
				end := strings.IndexByte(trimmed[1:], quote)
				if end != -1 {
					return trimmed[1 : 1+end]
				}
			}
		}
		next := strings.Index(attrs[idx+1:], name)
		if next == -1 {
			break
		}
		idx = idx + 1 + next
	}
	return ""
}

func expectLiteral(br *bufio.Reader, literal string) error {
	buf := make([]byte, len(literal))
	if _, err := io.ReadFull(br, buf); err != nil {
		return err
	}
	if string(buf) != literal {
		return fmt.Errorf("expected %q, got %q", literal, buf)
	}
	return nil
}

// consumeTrailerPI skips the newline left over from the RDF body and
// consumes the literal "<?cipherpacket?>\f\n" trailer.
func consumeTrailerPI(br *bufio.Reader) error {
	for {
		b, err := br.Peek(1)
		if err != nil || (b[0] != '\n' && b[0] != '\r') {
			break
		}
		br.ReadByte()
	}
	if err := expectLiteral(br, "<?cipherpacket?>"); err != nil {
		return errkind.New(errkind.KindAuthenticate, "consumeTrailerPI", err)
	}
	// tolerate either "\f\n" or a bare "\n" trailer
	if b, err := br.Peek(1); err == nil && b[0] == '\f' {
		br.ReadByte()
	}
	if b, err := br.Peek(1); err == nil && b[0] == '\n' {
		br.ReadByte()
	}
	return nil
}

// field is one parsed <cipher:name>value</cipher:name> leaf element.
type field struct {
	name  string
	value string
}

// parseRDFBody runs the minimal recursive-descent scan: finds the
// cipher:Content (or, failing that, rdf:Description back-compat) root,
// extracts rdf:about, then reads sibling leaf elements until the root
// closes. Malformed content inside the element list is an option error;
// unrecognised field names are warned about, not rejected.
func parseRDFBody(body []byte, warn *log.Collector) (*Descriptor, error) {
	s := string(body)

	rootTag, aboutPath, rest, err := findContentRoot(s)
	if err != nil {
		return nil, err
	}

	fields, err := scanFields(rest, rootTag)
	if err != nil {
		return nil, err
	}

	return descriptorFromFields(fields, aboutPath, warn)
}

func findContentRoot(s string) (rootTag, about, rest string, err error) {
	for _, candidate := range []string{"cipher:Content", "rdf:Description"} {
		openTag := "<" + candidate
		idx := strings.Index(s, openTag)
		if idx == -1 {
			continue
		}
		tail := s[idx+len(openTag):]
		closeIdx := strings.IndexByte(tail, '>')
		if closeIdx == -1 {
			return "", "", "", errkind.New(errkind.KindOption, "findContentRoot",
				errkind.NewHeaderError(candidate, fmt.Errorf("unterminated tag")))
		}
		attrs := tail[:closeIdx]
		about = unescapeXML(extractAttr(attrs, "rdf:about"))
		return candidate, about, tail[closeIdx+1:], nil
	}
	return "", "", "", errkind.New(errkind.KindOption, "findContentRoot",
		errkind.NewHeaderError("cipher:Content", fmt.Errorf("no cipher:Content or rdf:Description element found")))
}

func scanFields(s, rootTag string) ([]field, error) {
	closeTag := "</" + rootTag + ">"
	endIdx := strings.Index(s, closeTag)
	if endIdx == -1 {
		return nil, errkind.New(errkind.KindOption, "scanFields",
			errkind.NewHeaderError(rootTag, fmt.Errorf("missing closing tag")))
	}
	body := s[:endIdx]

	var fields []field
	for {
		body = strings.TrimLeft(body, " \t\r\n")
		if body == "" {
			break
		}
		if body[0] != '<' {
			return nil, errkind.New(errkind.KindOption, "scanFields",
				errkind.NewHeaderError(rootTag, fmt.Errorf("unexpected content %q", snippet(body))))
		}
		gt := strings.IndexByte(body, '>')
		if gt == -1 {
			return nil, errkind.New(errkind.KindOption, "scanFields",
				errkind.NewHeaderError(rootTag, fmt.Errorf("unterminated tag")))
		}
		tagName := strings.TrimSpace(body[1:gt])
		closeTag := "</" + tagName + ">"
		valueStart := gt + 1
		closeIdx := strings.Index(body[valueStart:], closeTag)
		if closeIdx == -1 {
			return nil, errkind.New(errkind.KindOption, "scanFields",
				errkind.NewHeaderError(tagName, fmt.Errorf("missing closing tag")))
		}
		value := unescapeXML(body[valueStart : valueStart+closeIdx])
		fields = append(fields, field{name: tagName, value: value})
		body = body[valueStart+closeIdx+len(closeTag):]
	}
	return fields, nil
}

func snippet(s string) string {
	if len(s) > 24 {
		return s[:24] + "..."
	}
	return s
}

func unescapeXML(s string) string {
	r := strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")
	return r.Replace(s)
}

// descriptorFromFields maps the scanned cipher:* leaf fields onto a
// Descriptor. Per spec §4.6's tie-break rule, "id" wins over the
// deprecated "session" alias, and a duplicate element's last occurrence
// wins.
func descriptorFromFields(fields []field, aboutPath string, warn *log.Collector) (*Descriptor, error) {
	d := &Descriptor{AboutPath: aboutPath, ProtocolMajor: CurrentProtocolMajor, ProtocolMinor: CurrentProtocolMinor}
	seenID := false

	for _, f := range fields {
		name := strings.TrimPrefix(f.name, "cipher:")
		var err error
		switch name {
		case "type":
			d.Cipher, err = cryptosuite.ParseCipherID(f.value)
		case "mode":
			d.Mode, err = cryptosuite.ParseModeID(f.value)
		case "nonce":
			d.Nonce, err = hexDecode(f.value)
		case "authenticate":
			d.AuthenticateMethod, err = auth.ParseMethod(f.value)
		case "id":
			d.KeyID, err = hexDecode(f.value)
			seenID = true
		case "session":
			if !seenID {
				d.KeyID, err = hexDecode(f.value)
			}
		case "key-hash":
			d.KeyHash, err = auth.ParseKeyHash(f.value)
		case "key-length":
			err = setUint32(&d.KeyLength, f.value)
		case "entropy":
			d.EntropyCodec, err = entropy.ParseCodec(f.value)
		case "level":
			err = setUint32(&d.EntropyLevel, f.value)
		case "hmac":
			d.HMAC, err = ParseHMACAlg(f.value)
		case "chunksize":
			err = setUint64(&d.ChunkSize, f.value)
		case "modify-date":
			d.ModifyDate, err = parseDate(f.value)
		case "create-date":
			d.CreateDate, err = parseDate(f.value)
		case "timestamp":
			d.Timestamp, err = parseDate(f.value)
		case "protocol":
			err = setProtocol(d, f.value)
		case "version":
			d.Version = f.value
		default:
			if warn != nil {
				warn.Add("packet.Parse", "unknown cipher packet field ignored", log.String("field", f.name))
			}
			continue
		}
		if err != nil {
			return nil, errkind.New(errkind.KindOption, "descriptorFromFields", errkind.NewHeaderError(f.name, err))
		}
	}
	return d, nil
}

func hexDecode(s string) ([]byte, error) { return hex.DecodeString(s) }

func setUint32(dst *uint32, s string) error {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*dst = uint32(n)
	return nil
}

func setUint64(dst *uint64, s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setProtocol(d *Descriptor, s string) error {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return fmt.Errorf("malformed protocol version %q", s)
	}
	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return err
	}
	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return err
	}
	d.ProtocolMajor = uint16(major)
	d.ProtocolMinor = uint16(minor)
	return nil
}
