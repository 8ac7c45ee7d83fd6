package clean

// dictionary.go defines the repair tables used by the Cleaner.
//
// The character table maps double-encoding artifacts back to the letter they
// came from. The default table is generated rather than typed in: every
// Latin-1 supplement character (accented letters, ordinals, degree sign) is
// encoded as UTF-8 and decoded as latin-1 and windows-1252, which yields
// exactly the sequences a mis-decoded file shows ("Ã§" for "ç", "Ã£" for "ã",
// and so on).
//
// The word table maps tokens whose accents decayed into a replacement marker
// ("munic?pio", "institui��o") back to the canonical word.

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v3"
)

// ReplacementChar is the Unicode replacement character left by lossy decoders.
const ReplacementChar = "�"

// Range of characters whose mojibake forms are repaired.
const (
	firstRepairable = '\u00a0'
	lastRepairable  = '\u00ff'
)

// vocabulary is the canonical domain vocabulary for word-level repair. Only
// words containing a non-ASCII letter can decay, so only those are listed.
var vocabulary = []string{
	"instituição", "descrição", "município", "preço", "genérico", "inserção",
	"código", "unitário", "região", "órgão", "número", "médio", "média",
	"mínimo", "máximo", "período", "mês", "licitação", "aquisição",
	"apresentação", "situação", "informação", "razão", "padrão", "público",
	"pública", "saúde", "farmacêutica", "farmacêutico", "genéricos",
	"referência", "contratação", "homologação", "cotação", "dispensação",
	"fabricação", "validação", "observação", "concentração", "união",
	"distribuição", "tributação", "ações", "básico", "básica", "técnico",
	"técnica", "econômico", "econômica", "fármaco", "catálogo",
	"classificação", "especificação", "serviço", "serviços", "orçamento",
	"vigência", "emissão", "endereço", "não", "são", "será",
}

// DefaultMarkers are the residual-artifact markers counted after cleaning.
var DefaultMarkers = []string{ReplacementChar, "Ã¡", "Ã©", "Ã\u00ad", "Ã³", "Ãº", "Ã§", "Ã£"}

// wordMarkers are the runes an accented letter can decay into.
var wordMarkers = []string{ReplacementChar, "?"}

// Dictionary is the immutable repair configuration injected into a Cleaner.
type Dictionary struct {
	// CharFixes maps artifact substrings to their replacement.
	CharFixes map[string]string `yaml:"char_fixes"`
	// WordFixes maps lowercase corrupted tokens to canonical lowercase words.
	WordFixes map[string]string `yaml:"word_fixes"`
	// Markers are substrings whose presence after cleaning signals a gap.
	Markers []string `yaml:"markers"`
}

// dictionaryFile is the YAML shape. Words expand into WordFixes the same way
// the built-in vocabulary does.
type dictionaryFile struct {
	CharFixes map[string]string `yaml:"char_fixes"`
	WordFixes map[string]string `yaml:"word_fixes"`
	Words     []string          `yaml:"words"`
	Markers   []string          `yaml:"markers"`
	Replace   bool              `yaml:"replace_defaults"`
}

// DefaultDictionary returns the built-in Portuguese dictionary.
func DefaultDictionary() *Dictionary {
	d := &Dictionary{
		CharFixes: mojibakeFixes(firstRepairable, lastRepairable),
		WordFixes: make(map[string]string),
		Markers:   append([]string(nil), DefaultMarkers...),
	}
	d.AddWords(vocabulary...)
	return d
}

// NewDictionary builds a dictionary from explicit tables, for callers and
// tests that want a minimal configuration.
func NewDictionary(charFixes, wordFixes map[string]string, markers []string) *Dictionary {
	d := &Dictionary{
		CharFixes: make(map[string]string, len(charFixes)),
		WordFixes: make(map[string]string, len(wordFixes)),
		Markers:   append([]string(nil), markers...),
	}
	for k, v := range charFixes {
		d.CharFixes[k] = v
	}
	for k, v := range wordFixes {
		d.WordFixes[strings.ToLower(k)] = strings.ToLower(v)
	}
	return d
}

// AddWords registers the decayed forms of each canonical word. Every
// non-ASCII letter is replaced by one marker, or by two for decoders that
// emit one marker per byte. An existing entry is never overwritten.
func (d *Dictionary) AddWords(words ...string) {
	for _, w := range words {
		canon := strings.ToLower(w)
		for _, m := range wordMarkers {
			for _, per := range []int{1, 2} {
				key := decay(canon, strings.Repeat(m, per))
				if key == canon {
					continue
				}
				if _, ok := d.WordFixes[key]; !ok {
					d.WordFixes[key] = canon
				}
			}
		}
	}
}

func decay(word, marker string) string {
	var b strings.Builder
	for _, r := range word {
		if r >= utf8.RuneSelf {
			b.WriteString(marker)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// mojibakeFixes encodes each rune in [lo, hi] as UTF-8 and decodes the bytes
// with the single-byte charsets, mapping each garbled result back to the rune.
func mojibakeFixes(lo, hi rune) map[string]string {
	fixes := make(map[string]string)
	decoders := []*charmap.Charmap{charmap.Windows1252, charmap.ISO8859_1}
	for r := lo; r <= hi; r++ {
		raw := []byte(string(r))
		for _, cm := range decoders {
			garbled, err := cm.NewDecoder().Bytes(raw)
			if err != nil || string(garbled) == string(r) {
				continue
			}
			if strings.ContainsRune(string(garbled), utf8.RuneError) {
				continue
			}
			fixes[string(garbled)] = string(r)
		}
	}
	return fixes
}

// LoadDictionary reads a YAML dictionary. Unless replace_defaults is set, its
// entries extend the built-in dictionary.
func LoadDictionary(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return ParseDictionary(data)
}

// ParseDictionary decodes a YAML dictionary document.
func ParseDictionary(data []byte) (*Dictionary, error) {
	var f dictionaryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}

	d := DefaultDictionary()
	if f.Replace {
		d = NewDictionary(nil, nil, nil)
	}
	for k, v := range f.CharFixes {
		if k == "" {
			return nil, fmt.Errorf("parse dictionary: empty char_fixes key")
		}
		d.CharFixes[k] = v
	}
	for k, v := range f.WordFixes {
		d.WordFixes[strings.ToLower(k)] = strings.ToLower(v)
	}
	d.AddWords(f.Words...)
	for _, m := range f.Markers {
		if m != "" && !contains(d.Markers, m) {
			d.Markers = append(d.Markers, m)
		}
	}
	return d, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// MarshalYAML renders the dictionary in the same shape ParseDictionary reads.
func (d *Dictionary) MarshalYAML() (any, error) {
	return dictionaryFile{
		CharFixes: d.CharFixes,
		WordFixes: d.WordFixes,
		Markers:   d.Markers,
		Replace:   true,
	}, nil
}

// charPairs returns the character fixes ordered longest key first, then
// lexically, so a strings.Replacer prefers the most specific artifact.
func (d *Dictionary) charPairs() []string {
	keys := make([]string, 0, len(d.CharFixes))
	for k := range d.CharFixes {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, d.CharFixes[k])
	}
	return pairs
}
