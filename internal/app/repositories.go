package app

import (
	"context"

	"assessment-service/internal/domain"
	"assessment-service/internal/notify"
)

// SessionRepository abstracts how wizard sessions are stored (in-memory, Redis).
type SessionRepository interface {
	Save(ctx context.Context, session *Session) error
	// Get returns domain.ErrSessionNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// CatalogRepository loads catalogs (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context, id string) (domain.Catalog, error)
}

// SubmissionSink receives completed submissions. Enqueue must not block on delivery.
type SubmissionSink interface {
	Enqueue(ev domain.SubmissionEvent)
}

// EmailSender delivers one message over a mail transport.
type EmailSender interface {
	Send(ctx context.Context, msg notify.Message) error
}

// RowAppender appends a row to a named sheet, first making sure row 1 equals header.
type RowAppender interface {
	Append(ctx context.Context, sheet string, header, row []string) error
}
