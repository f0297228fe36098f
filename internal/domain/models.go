package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Option is one selectable answer of a question; Value is the point value encoded as an integer string.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Points parses the option value.
func (o Option) Points() (int, error) {
	return strconv.Atoi(o.Value)
}

// Question models a single catalog entry with its ordered options.
type Question struct {
	ID      string   `json:"id" yaml:"id"`
	Text    string   `json:"text" yaml:"text"`
	Options []Option `json:"options" yaml:"options"`
}

// Option returns the option whose value matches, if any.
func (q Question) Option(value string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.Value == value {
			return opt, true
		}
	}
	return Option{}, false
}

// MaxPoints is the highest point value among the options.
func (q Question) MaxPoints() int {
	best, found := 0, false
	for _, opt := range q.Options {
		p, err := opt.Points()
		if err != nil {
			continue
		}
		if !found || p > best {
			best, found = p, true
		}
	}
	return best
}

// Catalog is the ordered, immutable list of questions served to respondents.
type Catalog struct {
	ID        string     `json:"id" yaml:"id"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Len returns the number of questions.
func (c Catalog) Len() int { return len(c.Questions) }

// Lookup finds a question by id.
func (c Catalog) Lookup(id string) (Question, bool) {
	if i := c.Index(id); i >= 0 {
		return c.Questions[i], true
	}
	return Question{}, false
}

// Index returns the zero-based position of a question id, or -1.
func (c Catalog) Index(id string) int {
	for i := range c.Questions {
		if c.Questions[i].ID == id {
			return i
		}
	}
	return -1
}

// MaxScore sums the best attainable points of every question.
func (c Catalog) MaxScore() int {
	total := 0
	for _, q := range c.Questions {
		total += q.MaxPoints()
	}
	return total
}

// Validate checks the structural invariants of a catalog loaded from configuration.
func (c Catalog) Validate() error {
	if len(c.Questions) == 0 {
		return fmt.Errorf("%w: catalog %q has no questions", ErrInvalidCatalog, c.ID)
	}
	seen := make(map[string]struct{}, len(c.Questions))
	for _, q := range c.Questions {
		if q.ID == "" {
			return fmt.Errorf("%w: question without id", ErrInvalidCatalog)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidCatalog, q.ID)
		}
		seen[q.ID] = struct{}{}
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: question %q has no options", ErrInvalidCatalog, q.ID)
		}
		values := make(map[string]struct{}, len(q.Options))
		for _, opt := range q.Options {
			if _, err := opt.Points(); err != nil {
				return fmt.Errorf("%w: question %q option %q is not an integer", ErrInvalidCatalog, q.ID, opt.Value)
			}
			if _, dup := values[opt.Value]; dup {
				return fmt.Errorf("%w: question %q repeats option value %q", ErrInvalidCatalog, q.ID, opt.Value)
			}
			values[opt.Value] = struct{}{}
		}
	}
	return nil
}

// Answer is a single (question, raw option value) pair.
type Answer struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

// AnswerSet maps question ids to chosen option values and remembers the order answers were first given.
// Overwriting an answer keeps its original position.
type AnswerSet struct {
	order  []string
	values map[string]string
}

// NewAnswerSet builds an empty set.
func NewAnswerSet() *AnswerSet {
	return &AnswerSet{values: make(map[string]string)}
}

// AnswerSetFromMap builds a set from an unordered map, ordering entries by catalog position and
// placing ids unknown to the catalog after them in lexical order.
func AnswerSetFromMap(c Catalog, m map[string]string) *AnswerSet {
	set := NewAnswerSet()
	for _, q := range c.Questions {
		if v, ok := m[q.ID]; ok {
			set.Set(q.ID, v)
		}
	}
	var extra []string
	for id := range m {
		if c.Index(id) < 0 {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		set.Set(id, m[id])
	}
	return set
}

// Set records or overwrites the value for a question id.
func (a *AnswerSet) Set(questionID, value string) {
	if a.values == nil {
		a.values = make(map[string]string)
	}
	if _, ok := a.values[questionID]; !ok {
		a.order = append(a.order, questionID)
	}
	a.values[questionID] = value
}

// Get returns the value recorded for a question id.
func (a *AnswerSet) Get(questionID string) (string, bool) {
	if a == nil {
		return "", false
	}
	v, ok := a.values[questionID]
	return v, ok
}

// Len returns the number of answered questions.
func (a *AnswerSet) Len() int {
	if a == nil {
		return 0
	}
	return len(a.order)
}

// Entries returns the answers in insertion order.
func (a *AnswerSet) Entries() []Answer {
	if a == nil {
		return nil
	}
	out := make([]Answer, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, Answer{QuestionID: id, Value: a.values[id]})
	}
	return out
}

// Map returns a copy of the answers as a plain map.
func (a *AnswerSet) Map() map[string]string {
	out := make(map[string]string, a.Len())
	if a == nil {
		return out
	}
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy.
func (a *AnswerSet) Clone() *AnswerSet {
	out := NewAnswerSet()
	for _, e := range a.Entries() {
		out.Set(e.QuestionID, e.Value)
	}
	return out
}

// MarshalJSON encodes the set as an ordered list so round-trips keep insertion order.
func (a *AnswerSet) MarshalJSON() ([]byte, error) {
	entries := a.Entries()
	if entries == nil {
		entries = []Answer{}
	}
	return json.Marshal(entries)
}

// UnmarshalJSON accepts the ordered list form produced by MarshalJSON.
func (a *AnswerSet) UnmarshalJSON(data []byte) error {
	var entries []Answer
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*a = AnswerSet{values: make(map[string]string, len(entries))}
	for _, e := range entries {
		a.Set(e.QuestionID, e.Value)
	}
	return nil
}

// Respondent is the person filling out the assessment.
type Respondent struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Company  string `json:"company"`
	Position string `json:"position"`
}

// ScoreResult is derived from an answer set and never mutated afterwards.
type ScoreResult struct {
	TotalPoints int `json:"totalPoints"`
	MaxPoints   int `json:"maxPoints"`
	Percentage  int `json:"percentage"`
}

// MaturityBand is one of the four ordered maturity categories.
type MaturityBand string

const (
	BandUrgent   MaturityBand = "urgent"
	BandBasic    MaturityBand = "basic"
	BandSolid    MaturityBand = "solid"
	BandAdvanced MaturityBand = "advanced"
)

// Bands lists the bands from lowest to highest maturity.
var Bands = []MaturityBand{BandUrgent, BandBasic, BandSolid, BandAdvanced}

// Rank returns the position of the band in Bands, or -1 for unknown values.
func (b MaturityBand) Rank() int {
	for i, known := range Bands {
		if known == b {
			return i
		}
	}
	return -1
}

// Valid reports whether b is one of the four known bands.
func (b MaturityBand) Valid() bool { return b.Rank() >= 0 }

// Title is the English display name of the band.
func (b MaturityBand) Title() string {
	switch b {
	case BandUrgent:
		return "Urgent"
	case BandBasic:
		return "Basic"
	case BandSolid:
		return "Solid"
	case BandAdvanced:
		return "Advanced"
	}
	return string(b)
}

// SubmissionEvent is emitted once a respondent completes the questionnaire.
type SubmissionEvent struct {
	ID          string       `json:"id"`
	Respondent  Respondent   `json:"respondent"`
	Answers     *AnswerSet   `json:"answers"`
	Score       ScoreResult  `json:"score"`
	Band        MaturityBand `json:"band"`
	Locale      string       `json:"locale"`
	SubmittedAt time.Time    `json:"submittedAt"`
}

// ConsultationRequest is a follow-up booking made from the results page.
type ConsultationRequest struct {
	FirstName string              `json:"firstName"`
	LastName  string              `json:"lastName"`
	Email     string              `json:"email"`
	Phone     string              `json:"phone"`
	Context   ConsultationContext `json:"context"`
}

// ConsultationContext carries what the respondent already shared during the assessment.
type ConsultationContext struct {
	PersonalInfo *Respondent `json:"personalInfo,omitempty"`
	Score        *int        `json:"score,omitempty"`
}
