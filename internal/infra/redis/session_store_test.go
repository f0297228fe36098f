package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"assessment-service/internal/app"
	"assessment-service/internal/domain"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	ctx := context.Background()

	answers := domain.NewAnswerSet()
	answers.Set("q2", "0")
	answers.Set("q1", "1")
	session := app.RestoreSession(app.SessionState{
		ID:         "s-1",
		CatalogID:  "cbk-corf",
		Locale:     "fr",
		Stage:      app.StageAnsweringQuestion,
		Cursor:     3,
		Respondent: &domain.Respondent{Name: "Jane Doe", Email: "jane@acme.com", Company: "Acme", Position: "CISO"},
		Answers:    answers,
	})
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("assessment:session:s-1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("assessment:session:s-1"); ttl != time.Minute {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	got, err := store.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	st := got.Snapshot()
	if st.Stage != app.StageAnsweringQuestion || st.Cursor != 3 || st.Locale != "fr" || st.Respondent.Company != "Acme" {
		t.Fatalf("unexpected state %+v", st)
	}
	entries := st.Answers.Entries()
	if len(entries) != 2 || entries[0].QuestionID != "q2" || entries[1].Value != "1" {
		t.Fatalf("answers lost insertion order: %+v", entries)
	}

	if err := store.Delete(ctx, "s-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("assessment:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestSessionStoreExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	ctx := context.Background()
	if err := store.Save(ctx, app.NewSession("s-2", "cbk-corf", "en")); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, "s-2"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
