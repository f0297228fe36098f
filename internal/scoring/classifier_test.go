package scoring

import (
	"testing"

	"assessment-service/internal/domain"
)

func TestClassifyIsTotalAndMonotonic(t *testing.T) {
	c := MustClassifier(DefaultThresholds)
	prev := -1
	for pct := 0; pct <= 100; pct++ {
		band := c.Classify(pct)
		if !band.Valid() {
			t.Fatalf("pct %d mapped to unknown band %q", pct, band)
		}
		if band.Rank() < prev {
			t.Fatalf("pct %d dropped to lower band %s", pct, band)
		}
		if c.Classify(pct) != band {
			t.Fatalf("pct %d classified inconsistently", pct)
		}
		prev = band.Rank()
	}
}

func TestClassifyBoundaries(t *testing.T) {
	c := MustClassifier(nil)
	cases := map[int]domain.MaturityBand{
		-5:  domain.BandUrgent,
		0:   domain.BandUrgent,
		34:  domain.BandUrgent,
		35:  domain.BandBasic,
		64:  domain.BandBasic,
		65:  domain.BandSolid,
		84:  domain.BandSolid,
		85:  domain.BandAdvanced,
		100: domain.BandAdvanced,
		140: domain.BandAdvanced,
	}
	for pct, want := range cases {
		if got := c.Classify(pct); got != want {
			t.Fatalf("Classify(%d) = %s, want %s", pct, got, want)
		}
	}
}

func TestCustomThresholdsInAnyOrder(t *testing.T) {
	c, err := NewClassifier([]Threshold{
		{Band: domain.BandAdvanced, Min: 90},
		{Band: domain.BandUrgent, Min: 0},
		{Band: domain.BandSolid, Min: 50},
		{Band: domain.BandBasic, Min: 20},
	})
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	if got := c.Classify(85); got != domain.BandSolid {
		t.Fatalf("expected solid under custom thresholds, got %s", got)
	}
}

func TestNewClassifierRejectsGapsAndDuplicates(t *testing.T) {
	bad := [][]Threshold{
		{{Band: domain.BandUrgent, Min: 10}, {Band: domain.BandBasic, Min: 35}, {Band: domain.BandSolid, Min: 65}, {Band: domain.BandAdvanced, Min: 85}},
		{{Band: domain.BandUrgent, Min: 0}, {Band: domain.BandBasic, Min: 35}, {Band: domain.BandSolid, Min: 35}, {Band: domain.BandAdvanced, Min: 85}},
		{{Band: domain.BandUrgent, Min: 0}, {Band: domain.BandUrgent, Min: 35}, {Band: domain.BandSolid, Min: 65}, {Band: domain.BandAdvanced, Min: 85}},
		{{Band: domain.BandUrgent, Min: 0}, {Band: domain.BandBasic, Min: 35}},
		{{Band: domain.BandUrgent, Min: 0}, {Band: domain.BandBasic, Min: 35}, {Band: domain.BandSolid, Min: 65}, {Band: "expert", Min: 85}},
	}
	for i, th := range bad {
		if _, err := NewClassifier(th); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestSegmentsCoverFullRange(t *testing.T) {
	segs := MustClassifier(nil).Segments()
	if len(segs) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segs))
	}
	if segs[0].From != 0 || segs[3].To != 100 {
		t.Fatalf("segments must span 0..100: %+v", segs)
	}
	for i := 1; i < len(segs); i++ {
		if segs[i].From != segs[i-1].To {
			t.Fatalf("gap between segments %d and %d: %+v", i-1, i, segs)
		}
	}
	if segs[0].Label != "Critical" || segs[3].Label != "Good" {
		t.Fatalf("unexpected labels %+v", segs)
	}
}
