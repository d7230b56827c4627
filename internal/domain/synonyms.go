package domain

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed synonyms.yaml
var defaultSynonyms []byte

// SynonymTable maps normalized header text to a canonical field.
type SynonymTable map[string]Field

// synonymDocument is the on-disk shape of a synonym table.
type synonymDocument struct {
	Version int                `yaml:"version"`
	Fields  map[Field][]string `yaml:"fields"`
}

// DefaultSynonyms returns the built-in synonym table.
func DefaultSynonyms() SynonymTable {
	t, err := ParseSynonyms(defaultSynonyms)
	if err != nil {
		panic(fmt.Sprintf("embedded synonym table: %v", err))
	}
	return t
}

// ParseSynonyms decodes a YAML synonym document. A header listed under two
// different fields is an error.
func ParseSynonyms(data []byte) (SynonymTable, error) {
	var doc synonymDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode synonym table: %w", err)
	}
	fields := make([]Field, 0, len(doc.Fields))
	for field := range doc.Fields {
		if !field.IsCanonical() {
			return nil, fmt.Errorf("synonym table: unknown canonical field %q", field)
		}
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })

	t := make(SynonymTable)
	add := func(key string, field Field) error {
		if prev, ok := t[key]; ok && prev != field {
			return fmt.Errorf("synonym table: synonym %q maps to both %s and %s", key, prev, field)
		}
		t[key] = field
		return nil
	}
	for _, field := range fields {
		// A canonical name always maps to itself so normalizing canonical
		// headers is the identity.
		if err := add(HeaderKey(string(field)), field); err != nil {
			return nil, err
		}
		for _, name := range doc.Fields[field] {
			key := HeaderKey(name)
			if key == "" {
				continue
			}
			if err := add(key, field); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// LoadSynonyms returns the default table merged with the document at path.
// Entries from the file replace built-in entries with the same key. An empty
// path yields the default table.
func LoadSynonyms(path string) (SynonymTable, error) {
	t := DefaultSynonyms()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonym table: %w", err)
	}
	extra, err := ParseSynonyms(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for k, v := range extra {
		t[k] = v
	}
	return t, nil
}

// Synonyms returns the headers that map to field, sorted.
func (t SynonymTable) Synonyms(field Field) []string {
	var out []string
	for k, v := range t {
		if v == field {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// HeaderKey is the lookup key for a raw header: Unicode NFC, lower case,
// surrounding whitespace trimmed. Inner whitespace is kept so multi-word
// synonyms like "zip code" match.
func HeaderKey(header string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFC.String(header)))
}
