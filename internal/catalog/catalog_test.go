package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"assessment-service/internal/domain"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	if c.ID != "cbk-corf" {
		t.Fatalf("unexpected catalog id %q", c.ID)
	}
	if c.Len() != 15 {
		t.Fatalf("expected 15 questions, got %d", c.Len())
	}
	if c.MaxScore() != 15 {
		t.Fatalf("expected max score 15, got %d", c.MaxScore())
	}
	for i, q := range c.Questions {
		if want := "q" + strconv.Itoa(i+1); q.ID != want {
			t.Fatalf("question %d: expected id %s, got %s", i, want, q.ID)
		}
		if yes, ok := q.Option("1"); !ok || yes.Label != "Yes" {
			t.Fatalf("question %s: missing Yes option", q.ID)
		}
	}
}

func TestLoadFileRejectsInvalidCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := []byte("id: broken\nquestions:\n  - id: q1\n    text: x\n    options: []\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); !errors.Is(err, domain.ErrInvalidCatalog) {
		t.Fatalf("expected invalid catalog, got %v", err)
	}
}

func TestStaticLoader(t *testing.T) {
	loader := NewStaticLoader(Default())
	if _, err := loader.LoadCatalog(context.Background(), "cbk-corf"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := loader.LoadCatalog(context.Background(), "missing"); !errors.Is(err, domain.ErrCatalogNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type failingLoader struct{ err error }

func (l failingLoader) LoadCatalog(context.Context, string) (domain.Catalog, error) {
	return domain.Catalog{}, l.err
}

func TestChainFallsThroughOnlyOnNotFound(t *testing.T) {
	ctx := context.Background()
	chain := Chain{NewStaticLoader(), NewStaticLoader(Default())}
	c, err := chain.LoadCatalog(ctx, "cbk-corf")
	if err != nil || c.ID != "cbk-corf" {
		t.Fatalf("expected fallback to the embedded catalog, got %v", err)
	}

	boom := errors.New("connection refused")
	chain = Chain{failingLoader{err: boom}, NewStaticLoader(Default())}
	if _, err := chain.LoadCatalog(ctx, "cbk-corf"); !errors.Is(err, boom) {
		t.Fatalf("expected backend error to surface, got %v", err)
	}

	if _, err := (Chain{}).LoadCatalog(ctx, "x"); !errors.Is(err, domain.ErrCatalogNotFound) {
		t.Fatalf("expected ErrCatalogNotFound, got %v", err)
	}
}
