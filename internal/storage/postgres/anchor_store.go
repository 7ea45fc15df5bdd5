// Package postgres provides a durable AnchorStore backed by PostgreSQL.
// When the pgvector extension is available, anchor embeddings are stored in
// a vector column and the store additionally implements
// storage.SimilaritySearcher for cosine-distance retrieval.
package postgres

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/scrypster/salient/internal/storage"
	"github.com/scrypster/salient/pkg/types"
)

// AnchorStore implements storage.AnchorStore on PostgreSQL.
type AnchorStore struct {
	db                *sql.DB
	capacity          int
	pgvectorAvailable bool
}

// NewAnchorStore creates a Postgres anchor store. Run EnsureSchema first;
// its return value supplies pgvectorAvailable.
func NewAnchorStore(db *sql.DB, capacity int, pgvectorAvailable bool) (*AnchorStore, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: database connection is required", storage.ErrInvalidInput)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be >= 1, got %d", storage.ErrInvalidInput, capacity)
	}
	return &AnchorStore{db: db, capacity: capacity, pgvectorAvailable: pgvectorAvailable}, nil
}

// Open connects to Postgres with the given DSN, ensures the schema, and
// returns a ready store.
func Open(ctx context.Context, dsn string, capacity, dimension int) (*AnchorStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	available, err := EnsureSchema(ctx, db, dimension)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewAnchorStore(db, capacity, available)
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

	if s.pgvectorAvailable && len(anchor.Embedding) > 0 {
		vec := pgvector.NewVector(anchor.Embedding)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO anchors (id, text, score, topic, spoken_at, embedding, embedding_vec)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT(id) DO UPDATE SET
				text = excluded.text,
				score = excluded.score,
				topic = excluded.topic,
				spoken_at = excluded.spoken_at,
				embedding = excluded.embedding,
				embedding_vec = excluded.embedding_vec
		`, anchor.ID, anchor.Text, anchor.Score, anchor.Topic, spokenAt,
			serializeEmbedding(anchor.Embedding), vec)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO anchors (id, text, score, topic, spoken_at, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT(id) DO UPDATE SET
				text = excluded.text,
				score = excluded.score,
				topic = excluded.topic,
				spoken_at = excluded.spoken_at,
				embedding = excluded.embedding
		`, anchor.ID, anchor.Text, anchor.Score, anchor.Topic, spokenAt,
			serializeEmbedding(anchor.Embedding))
	}
	if err != nil {
		return fmt.Errorf("failed to insert anchor: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM anchors WHERE id NOT IN (
			SELECT id FROM anchors ORDER BY score DESC, id ASC LIMIT $1
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
	return s.query(ctx, `
		SELECT id, text, score, topic, spoken_at, embedding
		FROM anchors
		ORDER BY score DESC, id ASC
		LIMIT $1
	`, n)
}

// All returns every stored anchor, sorted descending by score.
func (s *AnchorStore) All(ctx context.Context) ([]types.Anchor, error) {
	return s.query(ctx, `
		SELECT id, text, score, topic, spoken_at, embedding
		FROM anchors
		ORDER BY score DESC, id ASC
		LIMIT $1
	`, s.capacity)
}

// TopSimilar returns up to n anchors nearest to the query vector by cosine
// distance. Requires pgvector; returns an error when unavailable so callers
// can fall back to Top.
func (s *AnchorStore) TopSimilar(ctx context.Context, query []float32, n int) ([]types.Anchor, error) {
	if !s.pgvectorAvailable {
		return nil, fmt.Errorf("pgvector is not available on this store")
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: query vector is required", storage.ErrInvalidInput)
	}
	if n <= 0 {
		return []types.Anchor{}, nil
	}

	vec := pgvector.NewVector(query)
	return s.query(ctx, `
		SELECT id, text, score, topic, spoken_at, embedding
		FROM anchors
		WHERE embedding_vec IS NOT NULL
		ORDER BY embedding_vec <=> $2
		LIMIT $1
	`, n, vec)
}

func (s *AnchorStore) query(ctx context.Context, q string, args ...interface{}) ([]types.Anchor, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
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

// serializeEmbedding packs a float32 vector as little-endian bytes for the
// BYTEA column, which survives even when pgvector is absent.
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

// Compile-time assertions.
var (
	_ storage.AnchorStore        = (*AnchorStore)(nil)
	_ storage.SimilaritySearcher = (*AnchorStore)(nil)
)
