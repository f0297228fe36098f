// Package scoring reduces answer sets to scores and maps percentages to maturity bands.
package scoring

import (
	"fmt"
	"strconv"

	"assessment-service/internal/domain"
)

// Score sums the points of every answered question and normalizes against the catalog maximum.
// Any answer that does not resolve to a numeric option of a catalog question fails the whole score.
func Score(c domain.Catalog, answers *domain.AnswerSet) (domain.ScoreResult, error) {
	total := 0
	for _, a := range answers.Entries() {
		points, err := Points(c, a.QuestionID, a.Value)
		if err != nil {
			return domain.ScoreResult{}, err
		}
		total += points
	}
	max := c.MaxScore()
	return domain.ScoreResult{
		TotalPoints: total,
		MaxPoints:   max,
		Percentage:  Percentage(total, max),
	}, nil
}

// Points resolves the point value of one answer.
func Points(c domain.Catalog, questionID, value string) (int, error) {
	q, ok := c.Lookup(questionID)
	if !ok {
		return 0, fmt.Errorf("%w: unknown question %q", domain.ErrInvalidAnswerValue, questionID)
	}
	opt, ok := q.Option(value)
	if !ok {
		return 0, fmt.Errorf("%w: question %q has no option %q", domain.ErrInvalidAnswerValue, questionID, value)
	}
	points, err := strconv.Atoi(opt.Value)
	if err != nil {
		return 0, fmt.Errorf("%w: question %q option %q is not numeric", domain.ErrInvalidAnswerValue, questionID, value)
	}
	return points, nil
}

// Percentage is round-half-up(total/max*100) computed on integers, clamped to 0..100.
func Percentage(total, max int) int {
	if max <= 0 || total <= 0 {
		return 0
	}
	if total >= max {
		return 100
	}
	return (total*200 + max) / (2 * max)
}
