package http

import (
	"encoding/json"
	"fmt"
	"strconv"

	"assessment-service/internal/domain"
)

// answerMap accepts answer values sent either as strings or as JSON numbers.
type answerMap map[string]string

func (m *answerMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(answerMap, len(raw))
	for id, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[id] = s
			continue
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return fmt.Errorf("answer %q must be a string or number", id)
		}
		if _, err := strconv.Atoi(n.String()); err != nil {
			return fmt.Errorf("answer %q must be an integer", id)
		}
		out[id] = n.String()
	}
	*m = out
	return nil
}

type assessmentRequest struct {
	PersonalInfo domain.Respondent `json:"personalInfo"`
	Answers      answerMap         `json:"answers"`
	Score        *int              `json:"score,omitempty"`
	Locale       string            `json:"locale,omitempty"`
}

type assessmentResponse struct {
	ID         string              `json:"id"`
	Score      domain.ScoreResult  `json:"score"`
	Band       domain.MaturityBand `json:"band"`
	Deliveries any                 `json:"deliveries"`
}

// reportRequest tolerates the client's questions list and score; both are recomputed from the catalog.
type reportRequest struct {
	PersonalInfo domain.Respondent `json:"personalInfo"`
	Answers      answerMap         `json:"answers"`
	Score        *int              `json:"score,omitempty"`
	Questions    json.RawMessage   `json:"questions,omitempty"`
	Locale       string            `json:"locale,omitempty"`
}

type catalogResponse struct {
	ID        string            `json:"id"`
	Questions []domain.Question `json:"questions"`
	MaxScore  int               `json:"maxScore"`
}

type startSessionRequest struct {
	Locale string `json:"locale,omitempty"`
}

type answerRequest struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}
