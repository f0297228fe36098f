package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"assessment-service/internal/domain"
	"assessment-service/internal/i18n"
	"assessment-service/internal/report"
	"assessment-service/internal/scoring"
)

// AssessmentService contains the questionnaire use cases: the wizard, stateless intake and report download.
type AssessmentService struct {
	sessions   SessionRepository
	catalogs   CatalogRepository
	catalogID  string
	sink       SubmissionSink
	validator  *domain.RespondentValidator
	classifier *scoring.Classifier
	bundle     *i18n.Bundle
	brand      report.Brand
	now        func() time.Time
	newID      func() string
}

type Option func(*AssessmentService)

func WithValidator(v *domain.RespondentValidator) Option {
	return func(s *AssessmentService) { s.validator = v }
}

func WithClassifier(c *scoring.Classifier) Option {
	return func(s *AssessmentService) { s.classifier = c }
}

func WithBundle(b *i18n.Bundle) Option {
	return func(s *AssessmentService) { s.bundle = b }
}

func WithBrand(b report.Brand) Option {
	return func(s *AssessmentService) { s.brand = b }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AssessmentService) { s.now = now }
}

// WithIDGenerator replaces uuid generation for sessions and submissions.
func WithIDGenerator(fn func() string) Option {
	return func(s *AssessmentService) { s.newID = fn }
}

func NewAssessmentService(sessions SessionRepository, catalogs CatalogRepository, catalogID string, sink SubmissionSink, opts ...Option) *AssessmentService {
	s := &AssessmentService{
		sessions:   sessions,
		catalogs:   catalogs,
		catalogID:  catalogID,
		sink:       sink,
		validator:  domain.NewRespondentValidator(nil),
		classifier: scoring.MustClassifier(nil),
		bundle:     i18n.Default(),
		brand:      report.DefaultBrand(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionView is what clients see of a session after every transition.
type SessionView struct {
	ID         string             `json:"id"`
	Stage      Stage              `json:"stage"`
	Cursor     int                `json:"cursor,omitempty"`
	Total      int                `json:"total"`
	Question   *domain.Question   `json:"question,omitempty"`
	Selected   string             `json:"selected,omitempty"`
	Respondent *domain.Respondent `json:"respondent,omitempty"`
	Answers    *domain.AnswerSet  `json:"answers"`
	Result     *Result            `json:"result,omitempty"`
}

func newView(st SessionState, c domain.Catalog) SessionView {
	v := SessionView{
		ID:         st.ID,
		Stage:      st.Stage,
		Total:      c.Len(),
		Respondent: st.Respondent,
		Answers:    st.Answers,
		Result:     st.Result,
	}
	if st.Stage == StageAnsweringQuestion && st.Cursor >= 1 && st.Cursor <= c.Len() {
		q := c.Questions[st.Cursor-1]
		v.Cursor = st.Cursor
		v.Question = &q
		v.Selected, _ = st.Answers.Get(q.ID)
	}
	return v
}

// Catalog returns the active catalog.
func (s *AssessmentService) Catalog(ctx context.Context) (domain.Catalog, error) {
	return s.catalogs.GetCatalog(ctx, s.catalogID)
}

// Start opens a new session in CollectingPersonalInfo.
func (s *AssessmentService) Start(ctx context.Context, locale string) (SessionView, error) {
	c, err := s.Catalog(ctx)
	if err != nil {
		return SessionView{}, err
	}
	session := NewSessionWithClock(s.newID(), c.ID, s.bundle.Lookup(locale).Locale, s.now)
	if err := s.sessions.Save(ctx, session); err != nil {
		return SessionView{}, fmt.Errorf("save session: %w", err)
	}
	return newView(session.Snapshot(), c), nil
}

// Get returns the current view of a session.
func (s *AssessmentService) Get(ctx context.Context, id string) (SessionView, error) {
	session, c, err := s.load(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return newView(session.Snapshot(), c), nil
}

// SubmitPersonalInfo validates the respondent and moves the session to the first question.
func (s *AssessmentService) SubmitPersonalInfo(ctx context.Context, id string, r domain.Respondent) (SessionView, error) {
	session, c, err := s.load(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	if err := session.submitPersonalInfo(s.validator, r); err != nil {
		return SessionView{}, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return SessionView{}, fmt.Errorf("save session: %w", err)
	}
	return newView(session.Snapshot(), c), nil
}

// Answer records the answer for the current question. Answering the last question scores the
// session, stores it as completed and only then hands the submission to the sink, so a failed save
// never emits an event.
func (s *AssessmentService) Answer(ctx context.Context, id, questionID, value string) (SessionView, error) {
	session, c, err := s.load(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	last, err := session.answer(c, questionID, value)
	if err != nil {
		return SessionView{}, err
	}
	if !last {
		if err := s.sessions.Save(ctx, session); err != nil {
			return SessionView{}, fmt.Errorf("save session: %w", err)
		}
		return newView(session.Snapshot(), c), nil
	}

	st := session.Snapshot()
	ev, err := s.buildEvent(c, *st.Respondent, st.Answers, st.Locale)
	if err != nil {
		return SessionView{}, err
	}
	if err := session.complete(Result{
		SubmissionID: ev.ID,
		Score:        ev.Score,
		Band:         ev.Band,
		Narrative:    s.bundle.Lookup(ev.Locale).Narrative(ev.Band),
	}); err != nil {
		return SessionView{}, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		session.reopen()
		return SessionView{}, fmt.Errorf("save session: %w", err)
	}
	if s.sink != nil {
		s.sink.Enqueue(ev)
	}
	log.Printf("session %s completed: submission=%s score=%d/%d band=%s", id, ev.ID, ev.Score.TotalPoints, ev.Score.MaxPoints, ev.Band)
	return newView(session.Snapshot(), c), nil
}

// Back moves to the previous question; it is a no-op on the first question.
func (s *AssessmentService) Back(ctx context.Context, id string) (SessionView, error) {
	session, c, err := s.load(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	if err := session.back(); err != nil {
		return SessionView{}, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return SessionView{}, fmt.Errorf("save session: %w", err)
	}
	return newView(session.Snapshot(), c), nil
}

// Abandon drops a session.
func (s *AssessmentService) Abandon(ctx context.Context, id string) error {
	return s.sessions.Delete(ctx, id)
}

func (s *AssessmentService) load(ctx context.Context, id string) (*Session, domain.Catalog, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, domain.Catalog{}, err
	}
	c, err := s.catalogs.GetCatalog(ctx, session.Snapshot().CatalogID)
	if err != nil {
		return nil, domain.Catalog{}, err
	}
	return session, c, nil
}

// Submission is a whole questionnaire posted in one request.
type Submission struct {
	Respondent  domain.Respondent
	Answers     map[string]string
	ClientScore *int
	Locale      string
}

// Submit validates and scores a one-shot submission. The score is always recomputed; a client
// value that disagrees is logged and ignored.
func (s *AssessmentService) Submit(ctx context.Context, sub Submission) (domain.SubmissionEvent, error) {
	if err := s.validator.Validate(sub.Respondent); err != nil {
		return domain.SubmissionEvent{}, err
	}
	if len(sub.Answers) == 0 {
		return domain.SubmissionEvent{}, fmt.Errorf("%w: no answers", domain.ErrIncompleteSubmission)
	}
	c, err := s.Catalog(ctx)
	if err != nil {
		return domain.SubmissionEvent{}, err
	}
	ev, err := s.buildEvent(c, sub.Respondent.Normalize(), domain.AnswerSetFromMap(c, sub.Answers), s.bundle.Lookup(sub.Locale).Locale)
	if err != nil {
		return domain.SubmissionEvent{}, err
	}
	if sub.ClientScore != nil && *sub.ClientScore != ev.Score.TotalPoints {
		log.Printf("submission %s: client score %d differs from computed %d", ev.ID, *sub.ClientScore, ev.Score.TotalPoints)
	}
	return ev, nil
}

func (s *AssessmentService) buildEvent(c domain.Catalog, r domain.Respondent, answers *domain.AnswerSet, locale string) (domain.SubmissionEvent, error) {
	score, err := scoring.Score(c, answers)
	if err != nil {
		return domain.SubmissionEvent{}, err
	}
	return domain.SubmissionEvent{
		ID:          s.newID(),
		Respondent:  r,
		Answers:     answers.Clone(),
		Score:       score,
		Band:        s.classifier.Classify(score.Percentage),
		Locale:      locale,
		SubmittedAt: s.now().UTC(),
	}, nil
}

// ReportRequest asks for a report download.
type ReportRequest struct {
	Respondent domain.Respondent
	Answers    map[string]string
	Locale     string
}

// Report composes the downloadable report. Answers that cannot be resolved are rendered with
// placeholders and left out of the score rather than failing the download.
func (s *AssessmentService) Report(ctx context.Context, req ReportRequest) (*report.Document, error) {
	if !req.Respondent.Complete() || len(req.Answers) == 0 {
		return nil, fmt.Errorf("%w: respondent details and answers are required", domain.ErrIncompleteSubmission)
	}
	c, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	answers := domain.AnswerSetFromMap(c, req.Answers)
	valid := domain.NewAnswerSet()
	for _, a := range answers.Entries() {
		if _, err := scoring.Points(c, a.QuestionID, a.Value); err == nil {
			valid.Set(a.QuestionID, a.Value)
		}
	}
	score, err := scoring.Score(c, valid)
	if err != nil {
		return nil, err
	}
	strs := s.bundle.Lookup(req.Locale)
	return report.Compose(req.Respondent, answers, score, c, report.Options{
		Classifier: s.classifier,
		Strings:    &strs,
		Brand:      &s.brand,
		Now:        s.now,
	})
}
