package ingest

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names a candidate text encoding.
type Encoding string

const (
	UTF8        Encoding = "utf-8"
	Latin1      Encoding = "latin-1"
	ISO88591    Encoding = "iso-8859-1"
	Windows1252 Encoding = "windows-1252"
)

// Encodings lists the candidates in priority order. Earlier entries win ties.
var Encodings = []Encoding{UTF8, Latin1, ISO88591, Windows1252}

// ParseEncoding accepts any of the candidate names.
func ParseEncoding(s string) (Encoding, error) {
	for _, e := range Encodings {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown encoding %q", s)
}

// Reader returns r decoded to UTF-8. With strict set, a UTF-8 source fails on
// the first invalid byte; otherwise invalid bytes become '?'. The single-byte
// charsets decode every byte, so strict has no effect on them.
func (e Encoding) Reader(r io.Reader, strict bool) io.Reader {
	switch e {
	case Latin1, ISO88591:
		return charmap.ISO8859_1.NewDecoder().Reader(r)
	case Windows1252:
		return charmap.Windows1252.NewDecoder().Reader(r)
	default:
		return NewUTF8Sanitizer(r, strict)
	}
}

// Decode converts data to a UTF-8 string.
func (e Encoding) Decode(data []byte, strict bool) (string, error) {
	switch e {
	case Latin1, ISO88591:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		return string(out), err
	case Windows1252:
		out, err := charmap.Windows1252.NewDecoder().Bytes(data)
		return string(out), err
	default:
		out, err := io.ReadAll(NewUTF8Sanitizer(bytes.NewReader(data), strict))
		return string(out), err
	}
}

// decodeLenient decodes data without failing and reports how many invalid
// bytes were replaced. Only UTF-8 can have any.
func (e Encoding) decodeLenient(data []byte) (string, int, error) {
	switch e {
	case Latin1, ISO88591, Windows1252:
		text, err := e.Decode(data, false)
		return text, 0, err
	default:
		s := NewUTF8Sanitizer(bytes.NewReader(data), false)
		out, err := io.ReadAll(s)
		return string(out), s.Replaced, err
	}
}

// Separator is a candidate field delimiter.
type Separator rune

const (
	Comma     Separator = ','
	Semicolon Separator = ';'
	Tab       Separator = '\t'
	Pipe      Separator = '|'
)

// Separators lists the candidates in priority order.
var Separators = []Separator{Comma, Semicolon, Tab, Pipe}

// Name returns the human-readable separator name.
func (s Separator) Name() string {
	switch s {
	case Comma:
		return "comma"
	case Semicolon:
		return "semicolon"
	case Tab:
		return "tab"
	case Pipe:
		return "pipe"
	default:
		return string(rune(s))
	}
}

func (s Separator) String() string { return s.Name() }

// MarshalText renders the separator by name in JSON and YAML output.
func (s Separator) MarshalText() ([]byte, error) {
	return []byte(s.Name()), nil
}

// UnmarshalText accepts a name or the literal delimiter character.
func (s *Separator) UnmarshalText(b []byte) error {
	v, err := ParseSeparator(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeparator accepts a separator name or its literal character.
func ParseSeparator(v string) (Separator, error) {
	for _, s := range Separators {
		if v == s.Name() || v == string(rune(s)) {
			return s, nil
		}
	}
	if v == `\t` {
		return Tab, nil
	}
	return 0, fmt.Errorf("unknown separator %q", v)
}
