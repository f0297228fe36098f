// Package i18n holds the localized strings used in reports and emails.
package i18n

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"assessment-service/internal/domain"
)

//go:embed locales.yaml
var embeddedLocales []byte

type EmailStrings struct {
	Subject         string `yaml:"subject"`
	Greeting        string `yaml:"greeting"`
	Body            string `yaml:"body"`
	AttachmentNote  string `yaml:"attachment_note"`
	AppointmentText string `yaml:"appointment_text"`
	Closing         string `yaml:"closing"`
}

type PDFLabels struct {
	PersonalInfo      string `yaml:"personal_info"`
	Name              string `yaml:"name"`
	Email             string `yaml:"email"`
	Company           string `yaml:"company"`
	Position          string `yaml:"position"`
	AssessmentResults string `yaml:"assessment_results"`
	Details           string `yaml:"details"`
	Score             string `yaml:"score"`
	Question          string `yaml:"question"`
	Answer            string `yaml:"answer"`
	Disclaimer        string `yaml:"disclaimer"`
	DisclaimerText    string `yaml:"disclaimer_text"`
	Generated         string `yaml:"generated"`
}

// Strings is the full set of texts for one locale.
type Strings struct {
	Locale string                         `yaml:"-"`
	Email  EmailStrings                   `yaml:"email"`
	PDF    PDFLabels                      `yaml:"pdf"`
	Bands  map[domain.MaturityBand]string `yaml:"bands"`
}

// Narrative returns the band text, or the band title when the locale has none.
func (s Strings) Narrative(b domain.MaturityBand) string {
	if text, ok := s.Bands[b]; ok && text != "" {
		return text
	}
	return b.Title()
}

type file struct {
	Default string             `yaml:"default"`
	Locales map[string]Strings `yaml:"locales"`
}

// Bundle resolves a requested locale to the closest supported one.
type Bundle struct {
	tags    []language.Tag
	strings []Strings
	matcher language.Matcher
}

// Default returns the embedded bundle (en, fr, ar).
func Default() *Bundle {
	b, err := Parse(embeddedLocales)
	if err != nil {
		panic(fmt.Sprintf("i18n: embedded locales: %v", err))
	}
	return b
}

// LoadFile reads a locales file with the same layout as the embedded one.
func LoadFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locales %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a locales document. The default locale is matched first and every
// locale must carry a narrative for each band.
func Parse(data []byte) (*Bundle, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode locales: %w", err)
	}
	if len(f.Locales) == 0 {
		return nil, fmt.Errorf("locales: no locales defined")
	}
	if f.Default == "" {
		f.Default = "en"
	}
	if _, ok := f.Locales[f.Default]; !ok {
		return nil, fmt.Errorf("locales: default %q not defined", f.Default)
	}

	b := &Bundle{}
	add := func(code string, s Strings) error {
		tag, err := language.Parse(code)
		if err != nil {
			return fmt.Errorf("locales: %q: %w", code, err)
		}
		for _, band := range domain.Bands {
			if s.Bands[band] == "" {
				return fmt.Errorf("locales: %q lacks narrative for band %q", code, band)
			}
		}
		s.Locale = code
		b.tags = append(b.tags, tag)
		b.strings = append(b.strings, s)
		return nil
	}
	if err := add(f.Default, f.Locales[f.Default]); err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(f.Locales))
	for code := range f.Locales {
		if code != f.Default {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	for _, code := range codes {
		if err := add(code, f.Locales[code]); err != nil {
			return nil, err
		}
	}
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

// Lookup returns the strings for the best match of locale. locale may be a bare
// tag ("fr", "ar-AE") or an Accept-Language value; anything unusable yields the default.
func (b *Bundle) Lookup(locale string) Strings {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return b.strings[0]
	}
	prefs, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(prefs) == 0 {
		return b.strings[0]
	}
	_, idx, conf := b.matcher.Match(prefs...)
	if conf == language.No {
		return b.strings[0]
	}
	return b.strings[idx]
}

// Locales lists the supported locale codes, default first.
func (b *Bundle) Locales() []string {
	out := make([]string, len(b.strings))
	for i, s := range b.strings {
		out[i] = s.Locale
	}
	return out
}
