package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"assessment-service/internal/domain"
)

// CatalogStore loads and saves catalog JSONB in Postgres.
type CatalogStore struct {
	pool *pgxpool.Pool
}

func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

func (s *CatalogStore) LoadCatalog(ctx context.Context, id string) (domain.Catalog, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM catalogs WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Catalog{}, fmt.Errorf("%w: %s", domain.ErrCatalogNotFound, id)
	}
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	var c domain.Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Catalog{}, fmt.Errorf("unmarshal catalog: %w", err)
	}
	if c.ID == "" {
		c.ID = id
	}
	if err := c.Validate(); err != nil {
		return domain.Catalog{}, err
	}
	return c, nil
}

// SaveCatalog upserts a validated catalog.
func (s *CatalogStore) SaveCatalog(ctx context.Context, c domain.Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO catalogs (id, data, updated_at) VALUES ($1, $2::jsonb, now())
ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`, c.ID, string(data))
	if err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}
