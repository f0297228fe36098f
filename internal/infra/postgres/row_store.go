package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// RowStore records submission and consultation rows when no spreadsheet is configured.
// Each named sheet keeps its current header; rows are stored as JSON arrays in insertion order.
type RowStore struct {
	pool *pgxpool.Pool
}

func NewRowStore(pool *pgxpool.Pool) *RowStore {
	return &RowStore{pool: pool}
}

func (s *RowStore) Append(ctx context.Context, sheet string, header, row []string) error {
	h, err := json.Marshal(header)
	if err != nil {
		return err
	}
	r, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO sheet_headers (sheet, header) VALUES ($1, $2::jsonb)
ON CONFLICT (sheet) DO UPDATE SET header=EXCLUDED.header WHERE sheet_headers.header <> EXCLUDED.header`, sheet, string(h)); err != nil {
			return fmt.Errorf("ensure header: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO sheet_rows (sheet, data) VALUES ($1, $2::jsonb)`, sheet, string(r)); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
		return nil
	})
}

// Rows returns the header followed by every row of a sheet.
func (s *RowStore) Rows(ctx context.Context, sheet string) ([][]string, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT header FROM sheet_headers WHERE sheet=$1`, sheet).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load header: %w", err)
	}
	var header []string
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("unmarshal header: %w", err)
	}
	out := [][]string{header}

	rows, err := s.pool.Query(ctx, `SELECT data FROM sheet_rows WHERE sheet=$1 ORDER BY id`, sheet)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var row []string
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, fmt.Errorf("unmarshal row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
