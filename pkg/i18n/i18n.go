// Package i18n holds the page localization table: language code -> text key ->
// localized string.
package i18n

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed locales.yaml
var defaultLocales []byte

// DefaultLang is used when no language is selected.
const DefaultLang = "en"

// Table is read-only after load.
type Table map[string]map[string]string

// Lookup returns the localized text for key in lang.
func (t Table) Lookup(lang, key string) (string, bool) {
	v, ok := t[lang][key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Text returns the localized text, or the key itself when untranslated.
func (t Table) Text(lang, key string) string {
	if v, ok := t.Lookup(lang, key); ok {
		return v
	}
	return key
}

// Parse decodes a YAML (or JSON) localization table.
func Parse(b []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse locales: %w", err)
	}
	if t == nil {
		t = Table{}
	}
	return t, nil
}

// Load reads a table from path; an empty path yields the embedded default.
func Load(path string) (Table, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locales %s: %w", path, err)
	}
	return Parse(b)
}

// Default is the embedded table shipped with the page.
func Default() Table {
	t, err := Parse(defaultLocales)
	if err != nil {
		panic(err)
	}
	return t
}
