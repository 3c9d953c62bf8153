package ports

import (
	"context"

	"learnengine/domain/core/aggregates"
	"learnengine/domain/core/entities"
	"learnengine/domain/core/valueobjects"
	"learnengine/domain/events"
)

// BaseRepository reads the authored content graph for a domain.
// The learn core never writes through this port; the mind-map editor owns
// the documents.
type BaseRepository interface {
	// GetByDomain retrieves the base document for a domain
	GetByDomain(ctx context.Context, domainID string) (*entities.BaseDoc, error)

	// GetSkills retrieves the optional skills variant of the base
	GetSkills(ctx context.Context, domainID string) (*entities.BaseDoc, error)
}

// CardRepository reads leaf content units. Read-only from the core's
// perspective.
type CardRepository interface {
	// GetByNodeID retrieves all cards attached to a graph node
	GetByNodeID(ctx context.Context, domainID, baseID, nodeID string) ([]entities.Card, error)

	// GetByID retrieves a single card
	GetByID(ctx context.Context, domainID, cardID string) (*entities.Card, error)
}

// DAGRepository persists materialized DAG payloads keyed by
// (domain, base, branch).
type DAGRepository interface {
	// Get retrieves a cached DAG, or nil when no entry exists
	Get(ctx context.Context, key valueobjects.DAGKey) (*aggregates.DAGDoc, error)

	// Put upserts a payload, fully replacing any previous entry
	Put(ctx context.Context, doc *aggregates.DAGDoc) error
}

// LearnStateRepository persists the single mutable state record per
// (domain, user).
type LearnStateRepository interface {
	// Get retrieves the state, creating it lazily on first read
	Get(ctx context.Context, key valueobjects.StateKey) (*aggregates.LearnState, error)

	// Update persists the state with a compare-and-swap on the version
	// it was read at. Returns a conflict error when another writer got
	// there first; callers re-read and re-apply.
	Update(ctx context.Context, state *aggregates.LearnState, readVersion int64) error
}

// LearnResultRepository is the append-only attempt log.
type LearnResultRepository interface {
	// Append inserts one result; results are never mutated
	Append(ctx context.Context, result *entities.LearnResult) error

	// ListByUser retrieves results newest-first, bounded by limit
	ListByUser(ctx context.Context, domainID, userID string, limit int) ([]entities.LearnResult, error)

	// PracticeDates returns the distinct UTC days with at least one result
	PracticeDates(ctx context.Context, domainID, userID string) (map[string]struct{}, error)
}

// LearnProgressRepository tracks the monotonic per-card pass flag.
type LearnProgressRepository interface {
	// MarkPassed idempotently upserts passed=true for a card
	MarkPassed(ctx context.Context, progress *entities.LearnProgress) error

	// IsPassed reports whether a card is passed for a user
	IsPassed(ctx context.Context, domainID, userID, cardID string) (bool, error)

	// ListPassed returns the set of passed card ids for a user
	ListPassed(ctx context.Context, domainID, userID string) (map[string]bool, error)
}

// StatsRepository accumulates daily consumption counters.
type StatsRepository interface {
	// IncrementDaily adds the delta onto the (domain, user, date) row
	IncrementDaily(ctx context.Context, delta *entities.DailyStats) error

	// GetDay retrieves one day's counters, zero-valued when absent
	GetDay(ctx context.Context, domainID, userID, date string) (*entities.DailyStats, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	EventPublisher
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}

// Translator resolves a message key to a display string. The core uses it
// only for placeholder titles; the identity function is a valid substitute.
type Translator func(key string) string
