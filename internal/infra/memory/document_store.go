package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/shopspring/decimal"
	"iqplay/internal/domain"
)

// DocumentStore keeps documents in process. Documents are deep-copied on the
// way in and out so callers never share state with the store.
type DocumentStore struct {
	mu   sync.Mutex
	docs map[string]map[string]domain.Document
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]map[string]domain.Document)}
}

func (s *DocumentStore) Get(_ context.Context, collection, id string) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc.Clone()
}

func (s *DocumentStore) List(_ context.Context, collection string) (map[string]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.Document, len(s.docs[collection]))
	for id, doc := range s.docs[collection] {
		cp, err := doc.Clone()
		if err != nil {
			return nil, err
		}
		out[id] = cp
	}
	return out, nil
}

func (s *DocumentStore) Set(_ context.Context, collection, id string, doc domain.Document) error {
	cp, err := doc.Clone()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection(collection)[id] = cp
	return nil
}

func (s *DocumentStore) Increment(_ context.Context, collection, id string, delta map[string]decimal.Decimal, seed domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(collection)
	doc, ok := coll[id]
	if !ok {
		cp, err := seed.Clone()
		if err != nil {
			return err
		}
		doc = cp
	}
	next := make(domain.Document, len(doc)+len(delta))
	for k, v := range doc {
		next[k] = v
	}
	for field, d := range delta {
		cur, err := doc.Number(field)
		if err != nil {
			return err
		}
		next[field] = json.Number(cur.Add(d).String())
	}
	coll[id] = next
	return nil
}

func (s *DocumentStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[collection][id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(s.docs[collection], id)
	return nil
}

func (s *DocumentStore) collection(name string) map[string]domain.Document {
	coll, ok := s.docs[name]
	if !ok {
		coll = make(map[string]domain.Document)
		s.docs[name] = coll
	}
	return coll
}
