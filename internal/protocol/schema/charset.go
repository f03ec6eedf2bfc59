package schema

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Charset decodes fixed char arrays into text.
type Charset struct {
	name string
	enc  encoding.Encoding
}

// UTF8 is the default charset. Invalid sequences are dropped.
var UTF8 = Charset{name: "utf-8"}

// LookupCharset resolves a WHATWG encoding label such as "utf-8",
// "windows-1252" or "big5".
func LookupCharset(label string) (Charset, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || label == "utf-8" || label == "utf8" {
		return UTF8, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return Charset{}, fmt.Errorf("schema: unknown charset %q: %w", label, err)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = label
	}
	if name == "utf-8" {
		return UTF8, nil
	}
	return Charset{name: name, enc: enc}, nil
}

func (c Charset) Name() string {
	if c.name == "" {
		return UTF8.name
	}
	return c.name
}

// Decode truncates b at the first NUL byte and decodes the rest best-effort.
// It never fails.
func (c Charset) Decode(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if c.enc == nil {
		return strings.ToValidUTF8(string(b), "")
	}
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "")
	}
	return strings.ReplaceAll(string(out), "\uFFFD", "")
}
