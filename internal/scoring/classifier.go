package scoring

import (
	"fmt"
	"sort"

	"assessment-service/internal/domain"
)

// Threshold is the inclusive lower bound of a band in percent.
type Threshold struct {
	Band domain.MaturityBand `yaml:"band" json:"band"`
	Min  int                 `yaml:"min" json:"min"`
}

// DefaultThresholds: >=85 Advanced, >=65 Solid, >=35 Basic, else Urgent.
var DefaultThresholds = []Threshold{
	{Band: domain.BandUrgent, Min: 0},
	{Band: domain.BandBasic, Min: 35},
	{Band: domain.BandSolid, Min: 65},
	{Band: domain.BandAdvanced, Min: 85},
}

// Classifier maps percentages to bands. Bands are half-open intervals [Min, next.Min) covering 0..100.
type Classifier struct {
	thresholds []Threshold
}

// NewClassifier validates thresholds: each band once, lowest band starting at 0,
// bounds strictly increasing in band order and within 0..100.
func NewClassifier(thresholds []Threshold) (*Classifier, error) {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	if len(thresholds) != len(domain.Bands) {
		return nil, fmt.Errorf("classifier: expected %d thresholds, got %d", len(domain.Bands), len(thresholds))
	}
	sorted := append([]Threshold(nil), thresholds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Band.Rank() < sorted[j].Band.Rank() })
	for i, th := range sorted {
		if !th.Band.Valid() {
			return nil, fmt.Errorf("classifier: unknown band %q", th.Band)
		}
		if th.Band != domain.Bands[i] {
			return nil, fmt.Errorf("classifier: band %q missing or repeated", domain.Bands[i])
		}
		if th.Min < 0 || th.Min > 100 {
			return nil, fmt.Errorf("classifier: band %q threshold %d outside 0..100", th.Band, th.Min)
		}
		if i == 0 && th.Min != 0 {
			return nil, fmt.Errorf("classifier: lowest band %q must start at 0", th.Band)
		}
		if i > 0 && th.Min <= sorted[i-1].Min {
			return nil, fmt.Errorf("classifier: band %q threshold %d must exceed %d", th.Band, th.Min, sorted[i-1].Min)
		}
	}
	return &Classifier{thresholds: sorted}, nil
}

// MustClassifier panics on invalid thresholds; for package-level defaults and tests.
func MustClassifier(thresholds []Threshold) *Classifier {
	c, err := NewClassifier(thresholds)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the band whose threshold is the highest one not above pct.
func (c *Classifier) Classify(pct int) domain.MaturityBand {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	band := c.thresholds[0].Band
	for _, th := range c.thresholds {
		if pct >= th.Min {
			band = th.Band
		}
	}
	return band
}

// Thresholds returns the ordered thresholds, lowest band first.
func (c *Classifier) Thresholds() []Threshold {
	return append([]Threshold(nil), c.thresholds...)
}

// Segment is one coloured arc of the result gauge.
type Segment struct {
	Band  domain.MaturityBand
	Label string
	From  int
	To    int
}

var gaugeLabels = map[domain.MaturityBand]string{
	domain.BandUrgent:   "Critical",
	domain.BandBasic:    "Poor",
	domain.BandSolid:    "Fair",
	domain.BandAdvanced: "Good",
}

// Segments returns the gauge segments derived from the thresholds.
func (c *Classifier) Segments() []Segment {
	out := make([]Segment, 0, len(c.thresholds))
	for i, th := range c.thresholds {
		to := 100
		if i+1 < len(c.thresholds) {
			to = c.thresholds[i+1].Min
		}
		out = append(out, Segment{Band: th.Band, Label: gaugeLabels[th.Band], From: th.Min, To: to})
	}
	return out
}
