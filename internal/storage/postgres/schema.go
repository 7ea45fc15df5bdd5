package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// EnsureSchema creates the anchors table and, when the pgvector extension
// is installable, the vector column and its cosine-distance index. It
// returns whether pgvector ended up available; callers pass that into
// NewAnchorStore so similarity queries know which path to take.
func EnsureSchema(ctx context.Context, db *sql.DB, dimension int) (pgvectorAvailable bool, err error) {
	if dimension <= 0 {
		return false, fmt.Errorf("dimension must be positive, got %d", dimension)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS anchors (
			id         TEXT PRIMARY KEY,
			text       TEXT NOT NULL,
			score      DOUBLE PRECISION NOT NULL,
			topic      TEXT NOT NULL DEFAULT '',
			spoken_at  TIMESTAMPTZ,
			embedding  BYTEA,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return false, fmt.Errorf("failed to create anchors table: %w", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_anchors_score ON anchors(score DESC)`); err != nil {
		return false, fmt.Errorf("failed to create score index: %w", err)
	}

	// pgvector is optional: without it the store still works, minus
	// TopSimilar.
	if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		log.Printf("postgres: pgvector extension unavailable, similarity search disabled: %v", err)
		return false, nil
	}

	query := fmt.Sprintf(`ALTER TABLE anchors ADD COLUMN IF NOT EXISTS embedding_vec vector(%d)`, dimension)
	if _, err := db.ExecContext(ctx, query); err != nil {
		log.Printf("postgres: failed to add embedding_vec column, similarity search disabled: %v", err)
		return false, nil
	}

	if _, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_anchors_embedding_vec
		ON anchors USING ivfflat (embedding_vec vector_cosine_ops)
	`); err != nil {
		// Index creation can fail on tiny tables; queries still work via
		// sequential scan.
		log.Printf("postgres: failed to create ivfflat index (continuing without): %v", err)
	}

	return true, nil
}
