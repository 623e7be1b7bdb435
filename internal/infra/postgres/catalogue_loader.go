package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"iqplay/internal/domain"
)

// CatalogueLoader loads question pools from the questions table.
type CatalogueLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogueLoader(pool *pgxpool.Pool) *CatalogueLoader {
	return &CatalogueLoader{pool: pool}
}

func (l *CatalogueLoader) LoadPool(ctx context.Context, category string, tier domain.Tier) ([]domain.Question, error) {
	tier = domain.ParseTier(string(tier))
	rows, err := l.pool.Query(ctx, `SELECT data FROM questions WHERE category=$1 AND tier=$2 ORDER BY id`, category, string(tier))
	if err != nil {
		return nil, fmt.Errorf("load pool: %w", err)
	}
	defer rows.Close()

	var pool []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q, err := decodeQuestion(raw)
		if err != nil {
			return nil, fmt.Errorf("load pool %s/%s: %w", category, tier, err)
		}
		pool = append(pool, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrPoolNotFound, category, tier)
	}
	return pool, nil
}

// decodeQuestion parses a stored row and checks it against the question rules.
func decodeQuestion(raw []byte) (domain.Question, error) {
	var q domain.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question: %w", err)
	}
	if err := q.Validate(); err != nil {
		return domain.Question{}, fmt.Errorf("question %q: %w", q.Text, err)
	}
	return q, nil
}

// Import upserts every question of the catalogue in one transaction and
// returns how many rows were written.
func (l *CatalogueLoader) Import(ctx context.Context, catalogue domain.Catalogue) (int, error) {
	batch := &pgx.Batch{}
	for category, tiers := range catalogue {
		for tier, questions := range tiers {
			for _, q := range questions {
				if err := q.Validate(); err != nil {
					return 0, fmt.Errorf("import %s/%s question %q: %w", category, tier, q.Text, err)
				}
				raw, err := json.Marshal(q)
				if err != nil {
					return 0, fmt.Errorf("encode question: %w", err)
				}
				batch.Queue(`
					INSERT INTO questions (category, tier, text, data)
					VALUES ($1, $2, $3, $4::jsonb)
					ON CONFLICT (category, tier, text) DO UPDATE SET data = EXCLUDED.data`,
					category, string(tier), q.Text, string(raw))
			}
		}
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("import catalogue: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, fmt.Errorf("import catalogue: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("import catalogue: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("import catalogue: %w", err)
	}
	return batch.Len(), nil
}
