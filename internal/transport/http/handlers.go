package http

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"assessment-service/internal/app"
	"assessment-service/internal/domain"
	"assessment-service/internal/report"
)

// Deliverer sends a completed submission through every channel and reports each outcome.
type Deliverer interface {
	Deliver(ctx context.Context, ev domain.SubmissionEvent) (app.Outcome, error)
}

// Booker books consultations.
type Booker interface {
	Book(ctx context.Context, req domain.ConsultationRequest) (app.BookingOutcome, error)
}

// Handler serves the REST API.
type Handler struct {
	assessments   *app.AssessmentService
	deliverer     Deliverer
	consultations Booker
	renderer      app.Renderer
}

func NewHandler(assessments *app.AssessmentService, deliverer Deliverer, consultations Booker, renderer app.Renderer) *Handler {
	return &Handler{
		assessments:   assessments,
		deliverer:     deliverer,
		consultations: consultations,
		renderer:      renderer,
	}
}

// SubmitAssessment scores a complete questionnaire and delivers it synchronously.
// The status reflects the respondent email only; other channels are reported in the body.
func (h *Handler) SubmitAssessment(w http.ResponseWriter, r *http.Request) {
	var req assessmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	locale := req.Locale
	if locale == "" {
		locale = r.Header.Get("Accept-Language")
	}
	ev, err := h.assessments.Submit(r.Context(), app.Submission{
		Respondent:  req.PersonalInfo,
		Answers:     req.Answers,
		ClientScore: req.Score,
		Locale:      locale,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.deliverer.Deliver(r.Context(), ev)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if out.Failed(app.ChannelRespondentEmail) {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, assessmentResponse{
		ID:         ev.ID,
		Score:      ev.Score,
		Band:       ev.Band,
		Deliveries: out.Deliveries,
	})
}

// DownloadReport renders the PDF report for direct download.
func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	locale := req.Locale
	if locale == "" {
		locale = r.Header.Get("Accept-Language")
	}
	doc, err := h.assessments.Report(r.Context(), app.ReportRequest{
		Respondent: req.PersonalInfo,
		Answers:    req.Answers,
		Locale:     locale,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := h.renderer.Render(r.Context(), doc, &buf); err != nil {
		writeError(w, fmt.Errorf("render report: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.AttachmentName(doc.Respondent.Company)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("http: write report: %v", err)
	}
}

// BookConsultation answers 502 only when no channel delivered.
func (h *Handler) BookConsultation(w http.ResponseWriter, r *http.Request) {
	var req domain.ConsultationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.consultations.Book(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if out.AllFailed() {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, out)
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := h.assessments.Catalog(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{ID: c.ID, Questions: c.Questions, MaxScore: c.MaxScore()})
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	locale := req.Locale
	if locale == "" {
		locale = r.Header.Get("Accept-Language")
	}
	view, err := h.assessments.Start(r.Context(), locale)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.assessments.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) SubmitPersonalInfo(w http.ResponseWriter, r *http.Request) {
	var req domain.Respondent
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	view, err := h.assessments.SubmitPersonalInfo(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	view, err := h.assessments.Answer(r.Context(), mux.Vars(r)["id"], req.QuestionID, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) GoBack(w http.ResponseWriter, r *http.Request) {
	view, err := h.assessments.Back(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) AbandonSession(w http.ResponseWriter, r *http.Request) {
	if err := h.assessments.Abandon(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
