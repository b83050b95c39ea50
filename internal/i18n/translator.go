// Package i18n holds the UI strings for English, Vietnamese and Chinese.
package i18n

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"hanzi-quiz-service/internal/domain"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// DefaultLanguage is used when a user has not chosen one.
const DefaultLanguage = domain.LanguageEnglish

// Languages lists the supported languages in display order.
var Languages = []domain.Language{domain.LanguageEnglish, domain.LanguageVietnamese, domain.LanguageChinese}

// Translator looks up UI strings per language.
type Translator struct {
	tables map[domain.Language]map[string]string
}

// Load reads the embedded translation tables.
func Load() (*Translator, error) {
	tables := make(map[domain.Language]map[string]string, len(Languages))
	for _, lang := range Languages {
		raw, err := localeFS.ReadFile("locales/" + string(lang) + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("read %s translations: %w", lang, err)
		}
		table := map[string]string{}
		if err := yaml.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("parse %s translations: %w", lang, err)
		}
		tables[lang] = table
	}
	if err := checkTables(tables); err != nil {
		return nil, err
	}
	return &Translator{tables: tables}, nil
}

// checkTables requires every language to define exactly the default
// language's keys, each with a non-empty value.
func checkTables(tables map[domain.Language]map[string]string) error {
	want := sortedKeys(tables[DefaultLanguage])
	if len(want) == 0 {
		return fmt.Errorf("%s translations are empty", DefaultLanguage)
	}
	for _, lang := range Languages {
		table := tables[lang]
		for _, k := range want {
			if table[k] == "" {
				return fmt.Errorf("%s translations: missing %q", lang, k)
			}
		}
		if len(table) != len(want) {
			for _, k := range sortedKeys(table) {
				if _, ok := tables[DefaultLanguage][k]; !ok {
					return fmt.Errorf("%s translations: unexpected key %q", lang, k)
				}
			}
		}
	}
	return nil
}

// MustLoad is Load for program start-up.
func MustLoad() *Translator {
	t, err := Load()
	if err != nil {
		panic(err)
	}
	return t
}

// Translate returns the string for key in lang with every {{name}} placeholder
// replaced by params[name]. A missing key yields the key itself.
func (t *Translator) Translate(lang domain.Language, key string, params map[string]any) string {
	text, ok := t.tables[lang][key]
	if !ok || text == "" {
		text = key
	}
	for name, value := range params {
		text = strings.ReplaceAll(text, "{{"+name+"}}", fmt.Sprint(value))
	}
	return text
}

// Table returns a copy of every string for lang.
func (t *Translator) Table(lang domain.Language) map[string]string {
	src := t.tables[lang]
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func sortedKeys(table map[string]string) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Localizer binds a Translator to one language.
type Localizer struct {
	tr   *Translator
	lang domain.Language
}

func (t *Translator) For(lang domain.Language) Localizer {
	return Localizer{tr: t, lang: lang}
}

func (l Localizer) Language() domain.Language { return l.lang }

// T translates key with optional name/value pairs: T("welcome", "username", "student1").
func (l Localizer) T(key string, kv ...any) string {
	var params map[string]any
	if len(kv) > 1 {
		params = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			params[fmt.Sprint(kv[i])] = kv[i+1]
		}
	}
	return l.tr.Translate(l.lang, key, params)
}
