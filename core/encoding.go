package core

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is used when neither the call nor the FS options name one.
const DefaultEncoding = "utf8"

// codec converts between the caller's string and the bytes the host stores.
type codec interface {
	encode(s string) ([]byte, error)
	decode(b []byte) (string, error)
}

type utf8Codec struct{}

func (utf8Codec) encode(s string) ([]byte, error) { return []byte(s), nil }

func (utf8Codec) decode(b []byte) (string, error) {
	return strings.ToValidUTF8(string(b), "�"), nil
}

// textCodec adapts a golang.org/x/text encoding.
type textCodec struct {
	enc encoding.Encoding
}

func (c textCodec) encode(s string) ([]byte, error) {
	return c.enc.NewEncoder().Bytes([]byte(s))
}

func (c textCodec) decode(b []byte) (string, error) {
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// binaryCodec carries raw bytes as a textual representation, like base64.
type binaryCodec struct {
	toText   func([]byte) string
	fromText func(string) ([]byte, error)
}

func (c binaryCodec) encode(s string) ([]byte, error) { return c.fromText(s) }

func (c binaryCodec) decode(b []byte) (string, error) { return c.toText(b), nil }

var (
	latin1Codec  = textCodec{enc: charmap.ISO8859_1}
	utf16leCodec = textCodec{enc: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)}

	base64Codec    = binaryCodec{toText: base64.StdEncoding.EncodeToString, fromText: base64.StdEncoding.DecodeString}
	base64urlCodec = binaryCodec{toText: base64.RawURLEncoding.EncodeToString, fromText: base64.RawURLEncoding.DecodeString}
	hexCodec       = binaryCodec{toText: hex.EncodeToString, fromText: hex.DecodeString}
)

// codecs is keyed by lower-cased encoding name.
var codecs = map[string]codec{
	"utf8":      utf8Codec{},
	"utf-8":     utf8Codec{},
	"latin1":    latin1Codec,
	"binary":    latin1Codec,
	"ascii":     latin1Codec,
	"utf16le":   utf16leCodec,
	"utf-16le":  utf16leCodec,
	"ucs2":      utf16leCodec,
	"ucs-2":     utf16leCodec,
	"base64":    base64Codec,
	"base64url": base64urlCodec,
	"hex":       hexCodec,
}

// Encodings lists the accepted encoding names.
func Encodings() []string {
	return slices.Sorted(maps.Keys(codecs))
}

// resolveCodec looks name up case-insensitively. Unknown names fall back to
// UTF-8 unless strict is set.
func resolveCodec(name string, strict bool) (codec, error) {
	if c, ok := codecs[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c, nil
	}
	if strict {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, name)
	}
	return utf8Codec{}, nil
}
