package packet

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

const (
	rdfNamespace    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	cipherNamespace = "http://wizardtoolkit.example/cipher/1.0/"
)

// Generate renders d as the wire-format bytes spec §6.1 describes: the
// opening `<?cipherpacket ...?>` processing instruction, the RDF body,
// and the closing `<?cipherpacket?>\f\n` trailer. The returned digest is
// the lowercase hex SHA-256 of the RDF body alone, matching what Parse
// will recompute.
func Generate(d *Descriptor) (wire []byte, digestHex string, err error) {
	if err := d.Validate(); err != nil {
		return nil, "", err
	}

	rdfBody := renderRDF(d)
	sum := sha256.Sum256(rdfBody)
	digestHex = hex.EncodeToString(sum[:])

	var b strings.Builder
	fmt.Fprintf(&b, "<?cipherpacket digest=%q bytes=\"%d\"?>\n", digestHex, len(rdfBody))
	b.Write(rdfBody)
	b.WriteString("\n<?cipherpacket?>\f\n")
	return []byte(b.String()), digestHex, nil
}

func renderRDF(d *Descriptor) []byte {
	var b strings.Builder
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, "<rdf:RDF xmlns:rdf=%q xmlns:cipher=%q>\n", rdfNamespace, cipherNamespace)
	fmt.Fprintf(&b, "  <cipher:Content rdf:about=%q>\n", escapeAttr(d.AboutPath))

	elem := func(name, value string) {
		fmt.Fprintf(&b, "    <cipher:%s>%s</cipher:%s>\n", name, escapeText(value), name)
	}

	elem("type", d.Cipher.String())
	elem("mode", d.Mode.String())
	elem("nonce", hex.EncodeToString(d.Nonce))
	elem("authenticate", d.AuthenticateMethod.String())
	elem("id", hex.EncodeToString(d.KeyID))
	elem("key-hash", d.KeyHash.String())
	elem("key-length", fmt.Sprintf("%d", d.KeyLength))
	elem("entropy", d.EntropyCodec.String())
	elem("level", fmt.Sprintf("%d", d.EntropyLevel))
	elem("hmac", d.HMAC.String())
	elem("chunksize", fmt.Sprintf("%d", d.ChunkSize))
	elem("modify-date", formatDate(d.ModifyDate))
	elem("create-date", formatDate(d.CreateDate))
	elem("timestamp", formatDate(d.Timestamp))
	elem("protocol", fmt.Sprintf("%d.%d", d.ProtocolMajor, d.ProtocolMinor))
	elem("version", d.Version)

	b.WriteString("  </cipher:Content>\n")
	b.WriteString("</rdf:RDF>")
	return []byte(b.String())
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

func escapeText(s string) string { return escapeAttr(s) }
