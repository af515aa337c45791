// Package store persists built RBF models in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/rbfsurf/pkg/rbf"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// ErrNotFound is returned when no model has the requested id.
var ErrNotFound = errors.New("store: model not found")

const schema = `
CREATE TABLE IF NOT EXISTS models (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	samples    INTEGER NOT NULL,
	centers    INTEGER NOT NULL,
	rank       INTEGER NOT NULL,
	residual   REAL NOT NULL,
	center_pos BLOB NOT NULL,
	coeffs     BLOB NOT NULL
)`

// Record describes a stored model without its payload.
type Record struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Samples  int       `json:"samples"`
	Centers  int       `json:"centers"`
	Rank     int       `json:"rank"`
	Residual float64   `json:"residual"`
}

// Store is a SQLite-backed model catalogue. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a built model under a new id and returns the id.
func (s *Store) Save(ctx context.Context, name string, m *rbf.Model) (string, error) {
	stats, err := m.Stats()
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO models(id, name, created_at, samples, centers, rank, residual, center_pos, coeffs)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, time.Now().UnixNano(),
		stats.Samples, m.Len(), stats.Rank, stats.Residual,
		encodeVecs(m.Centers()), encodeFloats(m.Coefficients()),
	)
	if err != nil {
		return "", fmt.Errorf("store: save %q: %w", name, err)
	}
	return id, nil
}

// Load rebuilds the model stored under id. The options are passed to
// rbf.Restore, which checks that the payload is consistent and finite.
func (s *Store) Load(ctx context.Context, id string, opts ...rbf.Option) (*rbf.Model, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}

	var posBlob, coeffBlob []byte
	err := s.db.QueryRowContext(ctx, `SELECT center_pos, coeffs FROM models WHERE id = ?`, id).Scan(&posBlob, &coeffBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", id, err)
	}

	centers, err := decodeVecs(posBlob)
	if err != nil {
		return nil, err
	}
	coeffs, err := decodeFloats(coeffBlob)
	if err != nil {
		return nil, err
	}
	return rbf.Restore(centers, coeffs, opts...)
}

// List returns every stored model, newest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, samples, centers, rank, residual FROM models ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var created int64
		if err := rows.Scan(&r.ID, &r.Name, &created, &r.Samples, &r.Centers, &r.Rank, &r.Residual); err != nil {
			return nil, err
		}
		r.Created = time.Unix(0, created)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the model stored under id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
