// Package sqlite provides a durable AnchorStore backed by SQLite via the
// pure-Go modernc.org driver. It is the default persistence backend for
// anchor memory: no server, one file per conversation corpus.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"github.com/scrypster/salient/internal/storage"
	"github.com/scrypster/salient/pkg/types"
)

// AnchorStore implements storage.AnchorStore on a SQLite database.
// Capacity is enforced inside the insert transaction: after every Add, rows
// beyond the capacity when ordered by score descending are deleted.
type AnchorStore struct {
	db       *sql.DB
	capacity int
}

const schema = `
CREATE TABLE IF NOT EXISTS anchors (
	id         TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	score      REAL NOT NULL,
	topic      TEXT NOT NULL DEFAULT '',
	spoken_at  TIMESTAMP,
	embedding  BLOB,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_anchors_score ON anchors(score DESC);
`

// NewAnchorStore opens (creating if necessary) a SQLite anchor store at
// path with the given capacity.
func NewAnchorStore(path string, capacity int) (*AnchorStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: database path is required", storage.ErrInvalidInput)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be >= 1, got %d", storage.ErrInvalidInput, capacity)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &AnchorStore{db: db, capacity: capacity}, nil
}

// Add upserts an anchor and evicts the lowest-scored rows beyond capacity
// in the same transaction.
func (s *AnchorStore) Add(ctx context.Context, anchor types.Anchor) error {
	if anchor.ID == "" {
		return fmt.Errorf("%w: anchor ID is required", storage.ErrInvalidInput)
	}
	if anchor.Text == "" {
		return fmt.Errorf("%w: anchor text is required", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var spokenAt interface{}
	if anchor.Timestamp != nil {
		spokenAt = anchor.Timestamp.UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO anchors (id, text, score, topic, spoken_at, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			score = excluded.score,
			topic = excluded.topic,
			spoken_at = excluded.spoken_at,
			embedding = excluded.embedding
	`, anchor.ID, anchor.Text, anchor.Score, anchor.Topic, spokenAt, serializeEmbedding(anchor.Embedding))
	if err != nil {
		return fmt.Errorf("failed to insert anchor: %w", err)
	}

	// Evict everything past capacity, lowest score first.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM anchors WHERE id NOT IN (
			SELECT id FROM anchors ORDER BY score DESC, id ASC LIMIT ?
		)
	`, s.capacity)
	if err != nil {
		return fmt.Errorf("failed to enforce capacity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Top returns the n highest-scored anchors.
func (s *AnchorStore) Top(ctx context.Context, n int) ([]types.Anchor, error) {
	if n <= 0 {
		return []types.Anchor{}, nil
	}
	return s.query(ctx, n)
}

// All returns every stored anchor, sorted descending by score.
func (s *AnchorStore) All(ctx context.Context) ([]types.Anchor, error) {
	return s.query(ctx, s.capacity)
}

func (s *AnchorStore) query(ctx context.Context, limit int) ([]types.Anchor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, score, topic, spoken_at, embedding
		FROM anchors
		ORDER BY score DESC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query anchors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	anchors := []types.Anchor{}
	for rows.Next() {
		var (
			a        types.Anchor
			spokenAt sql.NullTime
			blob     []byte
		)
		if err := rows.Scan(&a.ID, &a.Text, &a.Score, &a.Topic, &spokenAt, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan anchor: %w", err)
		}
		if spokenAt.Valid {
			t := spokenAt.Time
			a.Timestamp = &t
		}
		a.Embedding = deserializeEmbedding(blob)
		anchors = append(anchors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate anchors: %w", err)
	}
	return anchors, nil
}

// Count returns the number of stored anchors.
func (s *AnchorStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM anchors`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count anchors: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *AnchorStore) Close() error {
	return s.db.Close()
}

// serializeEmbedding packs a float32 vector as little-endian bytes.
// Returns nil for an empty vector so the column stays NULL.
func serializeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeEmbedding unpacks a little-endian float32 vector. Returns nil
// for empty or malformed blobs.
func deserializeEmbedding(buf []byte) []float32 {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// Compile-time assertion.
var _ storage.AnchorStore = (*AnchorStore)(nil)
