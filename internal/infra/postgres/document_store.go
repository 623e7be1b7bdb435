package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
	"iqplay/internal/domain"
)

// DocumentStore keeps documents as JSONB rows keyed by (collection, id).
type DocumentStore struct {
	pool *pgxpool.Pool
}

func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (domain.Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM documents WHERE collection=$1 AND id=$2`, collection, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return domain.ParseDocument(raw)
}

func (s *DocumentStore) List(ctx context.Context, collection string) (map[string]domain.Document, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, data FROM documents WHERE collection=$1`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	out := make(map[string]domain.Document)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		doc, err := domain.ParseDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", collection, id, err)
		}
		out[id] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return out, nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, id string, doc domain.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

// incrementSQL adds every numeric field of $4 to the stored document in one
// statement. A missing row is created from the seed $3 merged with $4; the
// row lock taken by ON CONFLICT serializes concurrent increments.
const incrementSQL = `
INSERT INTO documents AS d (collection, id, data, updated_at)
VALUES ($1, $2, $3::jsonb || $4::jsonb, now())
ON CONFLICT (collection, id) DO UPDATE SET
    data = d.data || (
        SELECT jsonb_object_agg(delta.key, COALESCE((d.data->>delta.key)::numeric, 0) + delta.value::numeric)
        FROM jsonb_each_text($4::jsonb) AS delta
    ),
    updated_at = now()`

func (s *DocumentStore) Increment(ctx context.Context, collection, id string, delta map[string]decimal.Decimal, seed domain.Document) error {
	if len(delta) == 0 {
		return nil
	}
	if seed == nil {
		seed = domain.Document{}
	}
	seedRaw, err := json.Marshal(seed)
	if err != nil {
		return fmt.Errorf("encode seed %s/%s: %w", collection, id, err)
	}
	amounts := make(map[string]json.Number, len(delta))
	for field, d := range delta {
		amounts[field] = json.Number(d.String())
	}
	deltaRaw, err := json.Marshal(amounts)
	if err != nil {
		return fmt.Errorf("encode delta %s/%s: %w", collection, id, err)
	}

	if _, err := s.pool.Exec(ctx, incrementSQL, collection, id, string(seedRaw), string(deltaRaw)); err != nil {
		return fmt.Errorf("increment %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection=$1 AND id=$2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
