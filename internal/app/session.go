package app

import (
	"fmt"
	"sync"
	"time"

	"assessment-service/internal/domain"
)

// Stage is the wizard state of a session.
type Stage string

const (
	StageCollectingPersonalInfo Stage = "collecting_personal_info"
	StageAnsweringQuestion      Stage = "answering_question"
	StageCompleted              Stage = "completed"
)

// SessionState is the serializable form of a session, used by the stores.
type SessionState struct {
	ID         string             `json:"id"`
	CatalogID  string             `json:"catalogId"`
	Locale     string             `json:"locale,omitempty"`
	Stage      Stage              `json:"stage"`
	Cursor     int                `json:"cursor"`
	Respondent *domain.Respondent `json:"respondent,omitempty"`
	Answers    *domain.AnswerSet  `json:"answers"`
	Result     *Result            `json:"result,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// Result is attached to a session once it completes.
type Result struct {
	SubmissionID string              `json:"submissionId"`
	Score        domain.ScoreResult  `json:"score"`
	Band         domain.MaturityBand `json:"band"`
	Narrative    string              `json:"narrative"`
}

// Session walks one respondent through CollectingPersonalInfo, AnsweringQuestion(1..N) and Completed.
// Cursor is 1-based and only meaningful while answering.
type Session struct {
	mu    sync.Mutex
	state SessionState
	now   func() time.Time
}

// NewSession starts a session in CollectingPersonalInfo.
func NewSession(id, catalogID, locale string) *Session {
	return NewSessionWithClock(id, catalogID, locale, time.Now)
}

// NewSessionWithClock is used by tests for deterministic timestamps.
func NewSessionWithClock(id, catalogID, locale string, now func() time.Time) *Session {
	ts := now()
	return &Session{
		now: now,
		state: SessionState{
			ID:        id,
			CatalogID: catalogID,
			Locale:    locale,
			Stage:     StageCollectingPersonalInfo,
			Answers:   domain.NewAnswerSet(),
			CreatedAt: ts,
			UpdatedAt: ts,
		},
	}
}

// RestoreSession rebuilds a session from a stored snapshot.
func RestoreSession(state SessionState) *Session {
	if state.Answers == nil {
		state.Answers = domain.NewAnswerSet()
	}
	return &Session{state: state, now: time.Now}
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ID
}

// Snapshot returns a deep copy of the state.
func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() SessionState {
	st := s.state
	st.Answers = s.state.Answers.Clone()
	if s.state.Respondent != nil {
		r := *s.state.Respondent
		st.Respondent = &r
	}
	if s.state.Result != nil {
		res := *s.state.Result
		st.Result = &res
	}
	return st
}

func (s *Session) submitPersonalInfo(v *domain.RespondentValidator, r domain.Respondent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Stage == StageCompleted {
		return domain.ErrSessionAlreadyCompleted
	}
	if err := v.Validate(r); err != nil {
		return err
	}
	r = r.Normalize()
	s.state.Respondent = &r
	if s.state.Stage == StageCollectingPersonalInfo {
		s.state.Stage = StageAnsweringQuestion
		s.state.Cursor = 1
	}
	s.state.UpdatedAt = s.now()
	return nil
}

// answer records value for the current question and reports whether it was the last one.
// The session stays on the last question until complete attaches the result.
func (s *Session) answer(c domain.Catalog, questionID, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state.Stage {
	case StageCompleted:
		return false, domain.ErrSessionAlreadyCompleted
	case StageCollectingPersonalInfo:
		return false, domain.ErrPersonalInfoRequired
	}
	if s.state.Cursor < 1 || s.state.Cursor > c.Len() {
		return false, fmt.Errorf("session %s: cursor %d outside catalog of %d questions", s.state.ID, s.state.Cursor, c.Len())
	}
	current := c.Questions[s.state.Cursor-1]
	if questionID != current.ID {
		return false, fmt.Errorf("%w: expected %s, got %s", domain.ErrOutOfOrderAnswer, current.ID, questionID)
	}
	if _, ok := current.Option(value); !ok {
		return false, fmt.Errorf("%w: question %s does not offer %q", domain.ErrInvalidAnswerValue, current.ID, value)
	}

	s.state.Answers.Set(questionID, value)
	s.state.UpdatedAt = s.now()
	if s.state.Cursor < c.Len() {
		s.state.Cursor++
		return false, nil
	}
	return true, nil
}

func (s *Session) back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state.Stage {
	case StageCompleted:
		return domain.ErrSessionAlreadyCompleted
	case StageCollectingPersonalInfo:
		return nil
	}
	if s.state.Cursor > 1 {
		s.state.Cursor--
		s.state.UpdatedAt = s.now()
	}
	return nil
}

// complete moves the session to Completed with its result. It fails if another caller got there
// first, so a session completes once.
func (s *Session) complete(res Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Stage == StageCompleted {
		return domain.ErrSessionAlreadyCompleted
	}
	s.state.Stage = StageCompleted
	s.state.Result = &res
	s.state.UpdatedAt = s.now()
	return nil
}

// reopen undoes complete when the completed state could not be stored.
func (s *Session) reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Stage = StageAnsweringQuestion
	s.state.Result = nil
}
