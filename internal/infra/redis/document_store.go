package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"iqplay/internal/domain"
)

// DocumentStore keeps each document as a Redis hash whose field values are
// JSON encoded:
//
//	HSET doc:{collection}:{id} {field} {json value}
//
// Numeric ledger fields hold bare JSON numbers so HINCRBYFLOAT can add to
// them in place.
type DocumentStore struct {
	client *redis.Client
}

func NewDocumentStore(client *redis.Client) *DocumentStore {
	return &DocumentStore{client: client}
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (domain.Document, error) {
	fields, err := s.client.HGetAll(ctx, s.key(collection, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrDocumentNotFound
	}
	doc, err := decodeFields(fields)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// List scans the collection's keys and reads every hash in one pipeline.
func (s *DocumentStore) List(ctx context.Context, collection string) (map[string]domain.Document, error) {
	prefix := s.key(collection, "")
	var keys []string
	iter := s.client.Scan(ctx, 0, globEscape(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	out := make(map[string]domain.Document, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.HGetAll(ctx, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// deleted between SCAN and HGETALL
			continue
		}
		id := strings.TrimPrefix(keys[i], prefix)
		doc, err := decodeFields(fields)
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", collection, id, err)
		}
		out[id] = doc
	}
	return out, nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, id string, doc domain.Document) error {
	values, err := encodeFields(doc)
	if err != nil {
		return err
	}
	key := s.key(collection, id)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Increment seeds missing fields with HSETNX and adds delta with HINCRBYFLOAT
// inside one MULTI block, so concurrent settlements never lose an update.
func (s *DocumentStore) Increment(ctx context.Context, collection, id string, delta map[string]decimal.Decimal, seed domain.Document) error {
	seedValues, err := encodeFields(seed)
	if err != nil {
		return err
	}
	key := s.key(collection, id)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for field, raw := range seedValues {
			if _, isDelta := delta[field]; isDelta {
				continue
			}
			pipe.HSetNX(ctx, key, field, raw)
		}
		for field, d := range delta {
			pipe.HIncrByFloat(ctx, key, field, d.InexactFloat64())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("increment %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	n, err := s.client.Del(ctx, s.key(collection, id)).Result()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (s *DocumentStore) key(collection, id string) string {
	return "doc:" + collection + ":" + id
}

func decodeFields(fields map[string]string) (domain.Document, error) {
	doc := make(domain.Document, len(fields))
	for field, raw := range fields {
		parsed, err := domain.ParseDocument([]byte(`{"v":` + raw + `}`))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
		doc[field] = parsed["v"]
	}
	return doc, nil
}

func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func encodeFields(doc domain.Document) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(doc))
	for field, v := range doc {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", field, err)
		}
		values[field] = string(raw)
	}
	return values, nil
}
