package i18n

import (
	"strings"
	"testing"

	"assessment-service/internal/domain"
)

func TestDefaultBundleLocales(t *testing.T) {
	b := Default()
	got := b.Locales()
	if len(got) != 3 || got[0] != "en" {
		t.Fatalf("expected en first of 3 locales, got %v", got)
	}
}

func TestLookupMatchesClosestLocale(t *testing.T) {
	b := Default()
	cases := map[string]string{
		"":                        "en",
		"fr":                      "fr",
		"fr-CA":                   "fr",
		"ar-AE":                   "ar",
		"de":                      "en",
		"not a tag!!":             "en",
		"de-DE,fr;q=0.8,en;q=0.5": "fr",
	}
	for in, want := range cases {
		if got := b.Lookup(in).Locale; got != want {
			t.Fatalf("Lookup(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNarrativesPresentForEveryBand(t *testing.T) {
	b := Default()
	for _, loc := range b.Locales() {
		s := b.Lookup(loc)
		for _, band := range domain.Bands {
			if s.Narrative(band) == band.Title() {
				t.Fatalf("locale %s has no narrative for %s", loc, band)
			}
		}
	}
	if !strings.HasPrefix(b.Lookup("en").Narrative(domain.BandUrgent), "Urgent Action Required") {
		t.Fatalf("unexpected english urgent narrative")
	}
}

func TestParseRejectsMissingBand(t *testing.T) {
	doc := []byte(`
default: en
locales:
  en:
    bands:
      urgent: "u"
      basic: "b"
      solid: "s"
`)
	if _, err := Parse(doc); err == nil {
		t.Fatalf("expected error for missing advanced narrative")
	}
}

func TestParseRejectsUnknownDefault(t *testing.T) {
	doc := []byte(`
default: de
locales:
  en:
    bands: {urgent: u, basic: b, solid: s, advanced: a}
`)
	if _, err := Parse(doc); err == nil {
		t.Fatalf("expected error for undefined default locale")
	}
}
