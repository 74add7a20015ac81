package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vbonduro/pinboard/internal/domain"
)

// ErrNotFound is returned by updates and deletes that match no row.
var ErrNotFound = errors.New("board item not found")

// ItemStore persists board items in the board_items table. Every method is a
// single statement; there are no multi-item transactions.
type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

func (s *ItemStore) Insert(ctx context.Context, kind domain.Kind, x, y, w, h float64, payload domain.Payload, z int) (int64, error) {
	data, err := encodePayload(payload)
	if err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO board_items (kind, x, y, w, h, z, payload) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(kind), x, y, w, h, z, data)
	if err != nil {
		return 0, fmt.Errorf("failed to insert board item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

func (s *ItemStore) GetByID(ctx context.Context, id int64) (*domain.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, x, y, w, h, z, payload, created_at, updated_at FROM board_items WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get board item: %w", err)
	}
	return rec, nil
}

// LoadAll returns every row ordered by paint order, then id, so stacking is
// stable across reloads.
func (s *ItemStore) LoadAll(ctx context.Context) ([]*domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, x, y, w, h, z, payload, created_at, updated_at FROM board_items
		ORDER BY z ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load board items: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var records []*domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan board item: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating board items: %w", err)
	}

	return records, nil
}

func (s *ItemStore) UpdateGeometry(ctx context.Context, id int64, x, y, w, h float64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE board_items SET x = ?, y = ?, w = ?, h = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, x, y, w, h, id)
	if err != nil {
		return fmt.Errorf("failed to update board item geometry: %w", err)
	}
	return checkAffected(result)
}

func (s *ItemStore) UpdatePayload(ctx context.Context, id int64, payload domain.Payload) error {
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE board_items SET payload = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, data, id)
	if err != nil {
		return fmt.Errorf("failed to update board item payload: %w", err)
	}
	return checkAffected(result)
}

func (s *ItemStore) UpdateZ(ctx context.Context, id int64, z int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE board_items SET z = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, z, id)
	if err != nil {
		return fmt.Errorf("failed to update board item z: %w", err)
	}
	return checkAffected(result)
}

func (s *ItemStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM board_items WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete board item: %w", err)
	}
	return checkAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row. A payload that is not valid JSON does not fail
// the scan; the record comes back flagged Corrupt instead.
func scanRecord(row rowScanner) (*domain.Record, error) {
	rec := &domain.Record{}
	var kind, payload string
	if err := row.Scan(&rec.ID, &kind, &rec.X, &rec.Y, &rec.W, &rec.H, &rec.Z, &payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Kind = domain.Kind(kind)

	var p domain.Payload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		rec.Corrupt = true
		return rec, nil
	}
	rec.Payload = p
	return rec, nil
}

func encodePayload(payload domain.Payload) (string, error) {
	if payload == nil {
		return "{}", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(data), nil
}

func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
