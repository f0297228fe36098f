package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"assessment-service/internal/domain"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed input that never reached the domain.
var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	if status >= http.StatusInternalServerError {
		log.Printf("http: %v", err)
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	}
	writeJSON(w, status, body)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &verr),
		errors.Is(err, domain.ErrInvalidAnswerValue),
		errors.Is(err, domain.ErrIncompleteSubmission):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOutOfOrderAnswer),
		errors.Is(err, domain.ErrSessionAlreadyCompleted),
		errors.Is(err, domain.ErrPersonalInfoRequired):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDeliveryFailure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}
