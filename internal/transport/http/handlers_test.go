package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"assessment-service/internal/app"
	"assessment-service/internal/catalog"
	"assessment-service/internal/domain"
	"assessment-service/internal/infra/memory"
	"assessment-service/internal/notify"
	"assessment-service/internal/report"
)

type testEnv struct {
	server     *httptest.Server
	outbox     *memory.Outbox
	sheets     *memory.SheetStore
	dispatcher *app.Dispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	c := catalog.Default()
	catalogs := memory.NewCatalogRepository(catalog.NewStaticLoader(c), time.Minute)
	outbox := memory.NewOutbox()
	sheets := memory.NewSheetStore()
	composer, err := notify.NewComposer(nil, notify.Settings{Title: "Assessment", BrandName: "RSM"})
	if err != nil {
		t.Fatalf("composer: %v", err)
	}
	renderer := report.NewPDFRenderer("", "")
	dispatcher := app.NewDispatcher(app.DispatcherConfig{
		Mail:               outbox,
		Rows:               sheets,
		Renderer:           renderer,
		Composer:           composer,
		Catalogs:           catalogs,
		CatalogID:          c.ID,
		InternalRecipients: []string{"ops@example.com"},
	})
	t.Cleanup(func() { _ = dispatcher.Close(context.Background()) })
	service := app.NewAssessmentService(memory.NewSessionStore(time.Hour), catalogs, c.ID, dispatcher)
	consultations := app.NewConsultationService(outbox, sheets, composer, "", []string{"grc@example.com"})

	router := NewRouter(RouterConfig{
		Handler: NewHandler(service, dispatcher, consultations, renderer),
		WS:      NewWSHandler(service, nil),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{server: server, outbox: outbox, sheets: sheets, dispatcher: dispatcher}
}

func (e *testEnv) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	resp, err := http.Post(e.server.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func allAnswers(value string) map[string]any {
	out := map[string]any{}
	for i := 1; i <= 15; i++ {
		out[fmt.Sprintf("q%d", i)] = value
	}
	return out
}

var acme = map[string]string{"name": "A B", "email": "a@acme.com", "company": "Acme", "position": "CISO"}

func TestSubmitAssessmentDelivers(t *testing.T) {
	env := newTestEnv(t)
	answers := allAnswers("1")
	answers["q3"] = 1 // numeric values are accepted
	resp := env.post(t, "/api/assessments", map[string]any{
		"personalInfo": acme,
		"answers":      answers,
		"score":        3,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		ID         string             `json:"id"`
		Score      domain.ScoreResult `json:"score"`
		Band       string             `json:"band"`
		Deliveries map[string]struct {
			Status string `json:"status"`
		} `json:"deliveries"`
	}
	decode(t, resp, &body)
	if body.ID == "" || body.Score.TotalPoints != 15 || body.Score.Percentage != 100 || body.Band != "advanced" {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Deliveries[app.ChannelRespondentEmail].Status != "delivered" {
		t.Fatalf("unexpected deliveries %+v", body.Deliveries)
	}
	if len(env.outbox.Messages()) != 2 || len(env.sheets.Rows("Sheet1")) != 2 {
		t.Fatalf("expected emails and sheet row written")
	}
}

func TestSubmitAssessmentRespondentEmailFailure(t *testing.T) {
	env := newTestEnv(t)
	env.outbox.Fail = func(m notify.Message) error {
		if len(m.Attachments) > 0 {
			return errors.New("mailbox unavailable")
		}
		return nil
	}
	resp := env.post(t, "/api/assessments", map[string]any{"personalInfo": acme, "answers": allAnswers("0")})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if len(env.sheets.Rows("Sheet1")) != 2 {
		t.Fatalf("sheet row must still be written")
	}
}

func TestSubmitAssessmentRejectsInput(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name   string
		body   any
		status int
	}{
		{"malformed json", `{"personalInfo":`, http.StatusBadRequest},
		{"fractional answer", map[string]any{"personalInfo": acme, "answers": map[string]any{"q1": 0.5}}, http.StatusBadRequest},
		{"free mail", map[string]any{
			"personalInfo": map[string]string{"name": "A B", "email": "a@gmail.com", "company": "Acme", "position": "CISO"},
			"answers":      allAnswers("1"),
		}, http.StatusUnprocessableEntity},
		{"no answers", map[string]any{"personalInfo": acme, "answers": map[string]any{}}, http.StatusUnprocessableEntity},
		{"invalid value", map[string]any{"personalInfo": acme, "answers": map[string]any{"q1": "7"}}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.post(t, "/api/assessments", tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
	if len(env.outbox.Messages()) != 0 {
		t.Fatalf("rejected submissions must not send mail")
	}
}

func TestSubmitAssessmentValidationFields(t *testing.T) {
	env := newTestEnv(t)
	resp := env.post(t, "/api/assessments", map[string]any{
		"personalInfo": map[string]string{"name": "A", "email": "a@acme.com", "company": "Acme", "position": "CISO"},
		"answers":      allAnswers("1"),
	})
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, resp, &body)
	if _, ok := body.Fields["name"]; !ok || len(body.Fields) != 1 {
		t.Fatalf("expected name field error, got %v", body.Fields)
	}
}

func TestDownloadReport(t *testing.T) {
	env := newTestEnv(t)
	resp := env.post(t, "/api/reports", map[string]any{
		"personalInfo": acme,
		"answers":      allAnswers("1"),
		"score":        15,
		"questions":    []map[string]string{{"id": "q1", "text": "ignored"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `filename="Acme_Cyber_Self_Assessment_Report.pdf"`) {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("body is not a pdf")
	}
	if len(env.outbox.Messages()) != 0 {
		t.Fatalf("downloads must not send mail")
	}
}

func TestDownloadReportLocales(t *testing.T) {
	env := newTestEnv(t)
	for _, locale := range []string{"en", "fr", "ar"} {
		resp := env.post(t, "/api/reports", map[string]any{
			"personalInfo": map[string]string{"name": "Zoé Lefèvre", "email": "zoe@societe.fr", "company": "Société Générale", "position": "RSSI"},
			"answers":      allAnswers("0"),
			"locale":       locale,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", locale, resp.StatusCode)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			t.Fatalf("%s: read: %v", locale, err)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
			t.Fatalf("%s: body is not a pdf", locale)
		}
	}
}

func TestDownloadReportIncomplete(t *testing.T) {
	env := newTestEnv(t)
	resp := env.post(t, "/api/reports", map[string]any{"personalInfo": map[string]string{"name": "A B"}, "answers": allAnswers("1")})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestBookConsultation(t *testing.T) {
	env := newTestEnv(t)
	resp := env.post(t, "/api/consultations", map[string]any{
		"firstName": "Jane", "lastName": "Doe", "email": "jane@acme.com", "phone": "+965 5555 1234",
		"context": map[string]any{"personalInfo": acme, "score": 12},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if rows := env.sheets.Rows("Sheet2"); len(rows) != 2 || rows[1][6] != "12" {
		t.Fatalf("unexpected consultation sheet %v", rows)
	}

	resp = env.post(t, "/api/consultations", map[string]any{"firstName": "Jane", "lastName": "Doe", "email": "bad"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	env.outbox.Fail = func(notify.Message) error { return errors.New("down") }
	env.sheets.Fail = map[string]error{"Sheet2": errors.New("down")}
	resp = env.post(t, "/api/consultations", map[string]any{"firstName": "Jane", "lastName": "Doe", "email": "jane@acme.com"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 when every channel fails, got %d", resp.StatusCode)
	}
}

func TestGetCatalog(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/api/catalog")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		ID        string            `json:"id"`
		Questions []domain.Question `json:"questions"`
		MaxScore  int               `json:"maxScore"`
	}
	decode(t, resp, &body)
	if body.ID != "cbk-corf" || len(body.Questions) != 15 || body.MaxScore != 15 {
		t.Fatalf("unexpected catalog %s/%d/%d", body.ID, len(body.Questions), body.MaxScore)
	}
}

func TestSessionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	resp := env.post(t, "/api/sessions", map[string]string{"locale": "fr"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var view app.SessionView
	decode(t, resp, &view)
	if view.Stage != app.StageCollectingPersonalInfo {
		t.Fatalf("unexpected stage %s", view.Stage)
	}
	base := "/api/sessions/" + view.ID

	resp = env.post(t, base+"/answers", map[string]string{"questionId": "q1", "value": "1"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 before personal info, got %d", resp.StatusCode)
	}

	resp = env.post(t, base+"/personal-info", acme)
	decode(t, resp, &view)
	if view.Stage != app.StageAnsweringQuestion || view.Question.ID != "q1" {
		t.Fatalf("unexpected view %+v", view)
	}

	resp = env.post(t, base+"/answers", map[string]string{"questionId": "q1", "value": "1"})
	decode(t, resp, &view)
	resp = env.post(t, base+"/back", "")
	decode(t, resp, &view)
	if view.Cursor != 1 || view.Selected != "1" {
		t.Fatalf("expected back on q1 with selection, got %+v", view)
	}

	for i := 1; i <= 15; i++ {
		resp = env.post(t, base+"/answers", map[string]string{"questionId": fmt.Sprintf("q%d", i), "value": "0"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("answer q%d: status %d", i, resp.StatusCode)
		}
		decode(t, resp, &view)
	}
	if view.Stage != app.StageCompleted || view.Result == nil || view.Result.Band != domain.BandUrgent {
		t.Fatalf("unexpected completed view %+v", view)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := env.dispatcher.Close(ctx); err != nil {
		t.Fatalf("drain dispatcher: %v", err)
	}
	var emailed notify.Message
	for _, m := range env.outbox.Messages() {
		if len(m.Attachments) > 0 {
			emailed = m
		}
	}
	if len(emailed.Attachments) == 0 || !bytes.HasPrefix(emailed.Attachments[0].Data, []byte("%PDF-")) {
		t.Fatalf("expected the french report to be emailed")
	}

	resp, err := http.Get(env.server.URL + base)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected completed session readable, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, env.server.URL+base, nil)
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", del.StatusCode)
	}

	missing, err := http.Get(env.server.URL + base)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req, _ := http.NewRequest(http.MethodOptions, env.server.URL+"/api/assessments", nil)
	req.Header.Set("Origin", "https://assessment.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "https://assessment.example.com" {
		t.Fatalf("unexpected preflight response %d %v", resp.StatusCode, resp.Header)
	}
}

func TestHealthz(t *testing.T) {
	router := NewRouter(RouterConfig{Handler: &Handler{}, Checks: map[string]HealthCheck{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "redis") {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	NewRouter(RouterConfig{Handler: &Handler{}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrSessionNotFound:                                    http.StatusNotFound,
		fmt.Errorf("wrap: %w", domain.ErrOutOfOrderAnswer):           http.StatusConflict,
		domain.ErrSessionAlreadyCompleted:                            http.StatusConflict,
		domain.ErrInvalidAnswerValue:                                 http.StatusUnprocessableEntity,
		&domain.ValidationError{Fields: map[string]string{"a": "b"}}: http.StatusUnprocessableEntity,
		domain.ErrDeliveryFailure:                                    http.StatusBadGateway,
		errors.New("boom"):                                           http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Fatalf("statusFor(%v)=%d want %d", err, got, want)
		}
	}
}
