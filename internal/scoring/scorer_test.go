package scoring

import (
	"errors"
	"strconv"
	"testing"

	"assessment-service/internal/catalog"
	"assessment-service/internal/domain"
)

func allAnswers(c domain.Catalog, value string) *domain.AnswerSet {
	set := domain.NewAnswerSet()
	for _, q := range c.Questions {
		set.Set(q.ID, value)
	}
	return set
}

func TestScoreBoundaries(t *testing.T) {
	c := catalog.Default()
	classifier := MustClassifier(nil)

	none, err := Score(c, allAnswers(c, "0"))
	if err != nil {
		t.Fatalf("score all no: %v", err)
	}
	if none.Percentage != 0 || classifier.Classify(none.Percentage) != domain.BandUrgent {
		t.Fatalf("expected 0%% urgent, got %+v", none)
	}

	all, err := Score(c, allAnswers(c, "1"))
	if err != nil {
		t.Fatalf("score all yes: %v", err)
	}
	if all != (domain.ScoreResult{TotalPoints: 15, MaxPoints: 15, Percentage: 100}) {
		t.Fatalf("unexpected result %+v", all)
	}
	if band := classifier.Classify(all.Percentage); band != domain.BandAdvanced {
		t.Fatalf("expected advanced, got %s", band)
	}
}

func TestScoreIsIdempotent(t *testing.T) {
	c := catalog.Default()
	set := domain.NewAnswerSet()
	for i, q := range c.Questions {
		set.Set(q.ID, strconv.Itoa(i%2))
	}
	first, err := Score(c, set)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	second, err := Score(c, set)
	if err != nil {
		t.Fatalf("score again: %v", err)
	}
	if first != second {
		t.Fatalf("score changed between calls: %+v vs %+v", first, second)
	}
	if first.TotalPoints != 7 || first.Percentage != 47 {
		t.Fatalf("expected 7 points / 47%%, got %+v", first)
	}
}

func TestScoreRejectsInvalidValues(t *testing.T) {
	c := catalog.Default()

	set := domain.NewAnswerSet()
	set.Set("q1", "yes")
	if _, err := Score(c, set); !errors.Is(err, domain.ErrInvalidAnswerValue) {
		t.Fatalf("expected invalid answer value, got %v", err)
	}

	set = domain.NewAnswerSet()
	set.Set("q99", "1")
	if _, err := Score(c, set); !errors.Is(err, domain.ErrInvalidAnswerValue) {
		t.Fatalf("expected invalid answer value for unknown question, got %v", err)
	}
}

func TestScoreWeightedOptions(t *testing.T) {
	c := domain.Catalog{ID: "tiers", Questions: []domain.Question{
		{ID: "a", Options: []domain.Option{{Value: "0"}, {Value: "3"}, {Value: "5"}, {Value: "8"}}},
		{ID: "b", Options: []domain.Option{{Value: "0"}, {Value: "3"}, {Value: "5"}, {Value: "8"}}},
	}}
	set := domain.NewAnswerSet()
	set.Set("a", "5")
	set.Set("b", "3")
	got, err := Score(c, set)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if got != (domain.ScoreResult{TotalPoints: 8, MaxPoints: 16, Percentage: 50}) {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestPercentageRoundsHalfUp(t *testing.T) {
	cases := []struct{ total, max, want int }{
		{1, 8, 13},  // 12.5
		{1, 15, 7},  // 6.67
		{2, 15, 13}, // 13.33
		{1, 200, 1}, // 0.5
		{0, 0, 0},
		{15, 15, 100},
	}
	for _, tc := range cases {
		if got := Percentage(tc.total, tc.max); got != tc.want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", tc.total, tc.max, got, tc.want)
		}
	}
}
