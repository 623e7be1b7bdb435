package app

import (
	"context"

	"github.com/shopspring/decimal"
	"iqplay/internal/domain"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	// Put registers a new round. It fails with domain.ErrSessionActive while
	// an unfinished round holds the game, on this instance or another one.
	Put(session *Session) error
	Get(gameID string) (*Session, bool)
	// Release marks the game's round as finished so a new one may start
	// anywhere. The session itself stays readable until Delete.
	Release(gameID string)
	Delete(gameID string)
}

// CatalogueRepository returns the question pool for a category and tier.
type CatalogueRepository interface {
	Pool(ctx context.Context, category string, tier domain.Tier) ([]domain.Question, error)
}

// DocumentStore is the durable keyed document storage.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (domain.Document, error)
	// List returns every document of a collection keyed by id.
	List(ctx context.Context, collection string) (map[string]domain.Document, error)
	// Set overwrites the whole document.
	Set(ctx context.Context, collection, id string, doc domain.Document) error
	// Increment atomically adds delta to each named numeric field, creating the
	// document from seed first when it does not exist. Seed fields never
	// overwrite an existing document.
	Increment(ctx context.Context, collection, id string, delta map[string]decimal.Decimal, seed domain.Document) error
	Delete(ctx context.Context, collection, id string) error
}

// Identity returns the signed-in user, or nil when nobody is signed in.
type Identity interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// Metrics receives engine counters. A nil Metrics is valid.
type Metrics interface {
	SessionStarted()
	SessionCompleted()
	SessionAbandoned()
	AnswerRecorded(outcome string)
	PersistenceFailed(op string)
}

type nopMetrics struct{}

func (nopMetrics) SessionStarted()          {}
func (nopMetrics) SessionCompleted()        {}
func (nopMetrics) SessionAbandoned()        {}
func (nopMetrics) AnswerRecorded(string)    {}
func (nopMetrics) PersistenceFailed(string) {}
