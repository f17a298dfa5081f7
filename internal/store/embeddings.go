package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// textHash keys cache rows so that chat content is never stored.
func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Lookup returns cached vectors for the texts that have one, keyed by text.
func (s *Store) Lookup(ctx context.Context, model string, texts []string) (map[string][]float64, error) {
	byHash := make(map[string]string, len(texts))
	hashes := make([]string, 0, len(texts))
	for _, t := range texts {
		h := textHash(t)
		if _, ok := byHash[h]; !ok {
			hashes = append(hashes, h)
		}
		byHash[h] = t
	}

	rows, err := s.pool.Query(ctx, `
		SELECT text_hash, embedding::text
		FROM embedding_cache
		WHERE model = $1 AND text_hash = ANY($2)`,
		model, hashes,
	)
	if err != nil {
		return nil, fmt.Errorf("query embedding cache: %w", err)
	}
	defer rows.Close()

	hits := make(map[string][]float64)
	for rows.Next() {
		var hash, literal string
		if err := rows.Scan(&hash, &literal); err != nil {
			return nil, fmt.Errorf("scan embedding row: %w", err)
		}
		vec, err := parsePgVector(literal)
		if err != nil {
			continue // skip rows with unreadable vectors
		}
		hits[byHash[hash]] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embedding rows: %w", err)
	}

	return hits, nil
}

// Save upserts vectors keyed by text.
func (s *Store) Save(ctx context.Context, model string, entries map[string][]float64) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for text, vec := range entries {
		_, err = tx.Exec(ctx, `
			INSERT INTO embedding_cache (model, text_hash, embedding)
			VALUES ($1, $2, $3::vector)
			ON CONFLICT (model, text_hash) DO UPDATE SET embedding = EXCLUDED.embedding`,
			model, textHash(text), pgVector(vec),
		)
		if err != nil {
			return fmt.Errorf("insert embedding: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
