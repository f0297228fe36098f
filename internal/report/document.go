// Package report builds the paginated assessment report and renders it to PDF.
package report

import (
	"fmt"
	"strings"
	"time"

	"assessment-service/internal/domain"
	"assessment-service/internal/i18n"
	"assessment-service/internal/scoring"
)

const (
	// FirstChunkSize is the row capacity of the first question page, which also carries the table title.
	FirstChunkSize = 11
	// ChunkSize is the row capacity of every following question page.
	ChunkSize = 15

	UnknownQuestion = "Unknown question"
	UnknownAnswer   = "Unknown answer"
)

type PageKind int

const (
	PageCover PageKind = iota
	PageSummary
	PageQuestionTable
)

func (k PageKind) String() string {
	switch k {
	case PageCover:
		return "cover"
	case PageSummary:
		return "summary"
	case PageQuestionTable:
		return "questions"
	}
	return fmt.Sprintf("page(%d)", int(k))
}

// Row is one resolved question/answer line of the table.
type Row struct {
	Number     int
	QuestionID string
	Value      string
	Question   string
	Answer     string
}

// Page is one page of the document. Rows is only set on question pages.
type Page struct {
	Kind        PageKind
	Rows        []Row
	TableHeader bool
	Footer      bool
}

// Brand holds the letterhead strings and optional artwork.
type Brand struct {
	Name        string
	Tagline     string
	Title       string
	Copyright   string
	Description string
	CoverImage  string
	LogoImage   string
}

// DefaultBrand is the letterhead used when nothing is configured.
func DefaultBrand() Brand {
	return Brand{
		Name:        "RSM in Kuwait",
		Tagline:     "Audit | Tax | Consulting Services",
		Title:       "CBK CORF Assessment by RSM in Kuwait",
		Copyright:   "© 2025 RSM in Kuwait. All rights reserved.",
		Description: "RSM is a powerful network of assurance, tax and consulting experts with offices all over the world.",
	}
}

// Document is the immutable report model. It is built per request and discarded after rendering.
type Document struct {
	Respondent  domain.Respondent
	Score       domain.ScoreResult
	Band        domain.MaturityBand
	Narrative   string
	Segments    []scoring.Segment
	Labels      i18n.PDFLabels
	Locale      string
	Brand       Brand
	GeneratedAt time.Time
	Pages       []Page
}

// QuestionPages returns the question table pages in order.
func (d *Document) QuestionPages() []Page {
	var out []Page
	for _, p := range d.Pages {
		if p.Kind == PageQuestionTable {
			out = append(out, p)
		}
	}
	return out
}

// Rows flattens every question table row.
func (d *Document) Rows() []Row {
	var out []Row
	for _, p := range d.QuestionPages() {
		out = append(out, p.Rows...)
	}
	return out
}

// Options tunes composition. Zero values fall back to defaults.
type Options struct {
	Classifier *scoring.Classifier
	Strings    *i18n.Strings
	Brand      *Brand
	Now        func() time.Time
}

// Compose builds the report document. It fails with domain.ErrIncompleteSubmission before
// doing any work when respondent fields or answers are missing; answers that cannot be
// resolved against the catalog are rendered with placeholders instead.
func Compose(r domain.Respondent, answers *domain.AnswerSet, score domain.ScoreResult, c domain.Catalog, opts Options) (*Document, error) {
	r = r.Normalize()
	var missing []string
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.Email == "" {
		missing = append(missing, "email")
	}
	if r.Company == "" {
		missing = append(missing, "company")
	}
	if r.Position == "" {
		missing = append(missing, "position")
	}
	if answers.Len() == 0 {
		missing = append(missing, "answers")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrIncompleteSubmission, strings.Join(missing, ", "))
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = scoring.MustClassifier(nil)
	}
	var strs i18n.Strings
	if opts.Strings != nil {
		strs = *opts.Strings
	} else {
		strs = i18n.Default().Lookup("")
	}
	brand := DefaultBrand()
	if opts.Brand != nil {
		brand = *opts.Brand
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	band := classifier.Classify(score.Percentage)
	doc := &Document{
		Respondent:  r,
		Score:       score,
		Band:        band,
		Narrative:   strs.Narrative(band),
		Segments:    classifier.Segments(),
		Labels:      strs.PDF,
		Locale:      strs.Locale,
		Brand:       brand,
		GeneratedAt: now(),
	}
	doc.Pages = append(doc.Pages, Page{Kind: PageCover}, Page{Kind: PageSummary})

	chunks := Chunk(ResolveRows(c, answers))
	for i, rows := range chunks {
		doc.Pages = append(doc.Pages, Page{
			Kind:        PageQuestionTable,
			Rows:        rows,
			TableHeader: i == 0,
		})
	}
	doc.Pages[len(doc.Pages)-1].Footer = true
	return doc, nil
}

// ResolveRows orders answers by catalog position, then ids unknown to the catalog in the
// order they were answered, and resolves each to its question text and option label.
func ResolveRows(c domain.Catalog, answers *domain.AnswerSet) []Row {
	rows := make([]Row, 0, answers.Len())
	for _, q := range c.Questions {
		value, ok := answers.Get(q.ID)
		if !ok {
			continue
		}
		label := UnknownAnswer
		if opt, found := q.Option(value); found && opt.Label != "" {
			label = opt.Label
		}
		rows = append(rows, Row{QuestionID: q.ID, Value: value, Question: q.Text, Answer: label})
	}
	for _, a := range answers.Entries() {
		if c.Index(a.QuestionID) >= 0 {
			continue
		}
		rows = append(rows, Row{QuestionID: a.QuestionID, Value: a.Value, Question: UnknownQuestion, Answer: UnknownAnswer})
	}
	for i := range rows {
		rows[i].Number = i + 1
	}
	return rows
}

// Chunk splits rows into pages of FirstChunkSize then ChunkSize rows.
func Chunk(rows []Row) [][]Row {
	var out [][]Row
	size := FirstChunkSize
	for len(rows) > 0 {
		n := size
		if n > len(rows) {
			n = len(rows)
		}
		out = append(out, rows[:n:n])
		rows = rows[n:]
		size = ChunkSize
	}
	return out
}

// AttachmentName derives the download file name from the company name.
func AttachmentName(company string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.TrimSpace(company) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			underscore = false
		default:
			if !underscore && b.Len() > 0 {
				b.WriteByte('_')
				underscore = true
			}
		}
	}
	name := strings.TrimRight(b.String(), "_")
	if name == "" {
		name = "Company"
	}
	return name + "_Cyber_Self_Assessment_Report.pdf"
}
