// Package memory provides mutex-guarded in-process implementations of the
// persistence ports. They back the service tests and local development;
// semantics mirror the DynamoDB implementations, including the CAS on
// learn state.
package memory

import (
	"context"
	"sort"
	"sync"

	"learnengine/application/ports"
	"learnengine/domain/core/aggregates"
	"learnengine/domain/core/entities"
	"learnengine/domain/core/valueobjects"
	"learnengine/domain/events"
	pkgerrors "learnengine/pkg/errors"
	"learnengine/pkg/utils"
)

// BaseRepository serves fixed base documents.
type BaseRepository struct {
	mu     sync.RWMutex
	docs   map[string]*entities.BaseDoc
	skills map[string]*entities.BaseDoc
}

// NewBaseRepository creates an empty in-memory base store.
func NewBaseRepository() *BaseRepository {
	return &BaseRepository{
		docs:   make(map[string]*entities.BaseDoc),
		skills: make(map[string]*entities.BaseDoc),
	}
}

// SetBase installs the main document for a domain.
func (r *BaseRepository) SetBase(doc *entities.BaseDoc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.DomainID] = doc
}

// SetSkills installs the skills variant for a domain.
func (r *BaseRepository) SetSkills(doc *entities.BaseDoc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills[doc.DomainID] = doc
}

func (r *BaseRepository) GetByDomain(ctx context.Context, domainID string) (*entities.BaseDoc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.docs[domainID], nil
}

func (r *BaseRepository) GetSkills(ctx context.Context, domainID string) (*entities.BaseDoc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.skills[domainID], nil
}

// CardRepository serves cards keyed by owning node.
type CardRepository struct {
	mu      sync.RWMutex
	byNode  map[string][]entities.Card
	byID    map[string]entities.Card
	domains map[string]string
}

// NewCardRepository creates an empty in-memory card store.
func NewCardRepository() *CardRepository {
	return &CardRepository{
		byNode:  make(map[string][]entities.Card),
		byID:    make(map[string]entities.Card),
		domains: make(map[string]string),
	}
}

func nodeKey(domainID, baseID, nodeID string) string {
	return domainID + "/" + baseID + "/" + nodeID
}

// AddCard attaches a card to a node.
func (r *CardRepository) AddCard(domainID, baseID string, card entities.Card) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := nodeKey(domainID, baseID, card.NodeID)
	r.byNode[k] = append(r.byNode[k], card)
	r.byID[card.ID] = card
	r.domains[card.ID] = domainID
}

func (r *CardRepository) GetByNodeID(ctx context.Context, domainID, baseID, nodeID string) ([]entities.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cards := r.byNode[nodeKey(domainID, baseID, nodeID)]
	return append([]entities.Card(nil), cards...), nil
}

func (r *CardRepository) GetByID(ctx context.Context, domainID, cardID string) (*entities.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.domains[cardID] != domainID {
		return nil, nil
	}
	card, ok := r.byID[cardID]
	if !ok {
		return nil, nil
	}
	return &card, nil
}

// DAGRepository stores materialized payloads by composite key.
type DAGRepository struct {
	mu   sync.RWMutex
	docs map[string]*aggregates.DAGDoc
	// Puts counts writes, for rebuild-frequency assertions.
	Puts int
}

// NewDAGRepository creates an empty in-memory DAG store.
func NewDAGRepository() *DAGRepository {
	return &DAGRepository{docs: make(map[string]*aggregates.DAGDoc)}
}

func (r *DAGRepository) Get(ctx context.Context, key valueobjects.DAGKey) (*aggregates.DAGDoc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.docs[key.String()], nil
}

func (r *DAGRepository) Put(ctx context.Context, doc *aggregates.DAGDoc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.Key.String()] = doc
	r.Puts++
	return nil
}

// LearnStateRepository keeps one state per key with CAS semantics.
type LearnStateRepository struct {
	mu     sync.Mutex
	states map[string]*aggregates.LearnState
}

// NewLearnStateRepository creates an empty in-memory state store.
func NewLearnStateRepository() *LearnStateRepository {
	return &LearnStateRepository{states: make(map[string]*aggregates.LearnState)}
}

func (r *LearnStateRepository) Get(ctx context.Context, key valueobjects.StateKey) (*aggregates.LearnState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.states[key.String()]; ok {
		copied := *s
		copied.SectionOrder = append([]string(nil), s.SectionOrder...)
		copied.ReviewQueue = append([]string(nil), s.ReviewQueue...)
		return &copied, nil
	}
	s := aggregates.NewLearnState(key)
	r.states[key.String()] = s
	copied := *s
	return &copied, nil
}

func (r *LearnStateRepository) Update(ctx context.Context, state *aggregates.LearnState, readVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := valueobjects.StateKey{DomainID: state.DomainID, UserID: state.UserID}.String()
	current, ok := r.states[k]
	if ok && current.StateVersion != readVersion {
		return pkgerrors.NewConflictError("learn state was modified concurrently")
	}
	copied := *state
	copied.SectionOrder = append([]string(nil), state.SectionOrder...)
	copied.ReviewQueue = append([]string(nil), state.ReviewQueue...)
	r.states[k] = &copied
	return nil
}

// LearnResultRepository is an append-only in-memory log.
type LearnResultRepository struct {
	mu      sync.Mutex
	results map[string][]entities.LearnResult
}

// NewLearnResultRepository creates an empty in-memory result log.
func NewLearnResultRepository() *LearnResultRepository {
	return &LearnResultRepository{results: make(map[string][]entities.LearnResult)}
}

func resultKey(domainID, userID string) string {
	return domainID + "/" + userID
}

func (r *LearnResultRepository) Append(ctx context.Context, result *entities.LearnResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := resultKey(result.DomainID, result.UserID)
	r.results[k] = append(r.results[k], *result)
	return nil
}

func (r *LearnResultRepository) ListByUser(ctx context.Context, domainID, userID string, limit int) ([]entities.LearnResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := append([]entities.LearnResult(nil), r.results[resultKey(domainID, userID)]...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *LearnResultRepository) PracticeDates(ctx context.Context, domainID, userID string) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dates := make(map[string]struct{})
	for _, res := range r.results[resultKey(domainID, userID)] {
		dates[utils.UTCDate(res.CreatedAt)] = struct{}{}
	}
	return dates, nil
}

// LearnProgressRepository keeps the monotonic pass set.
type LearnProgressRepository struct {
	mu     sync.RWMutex
	passed map[string]map[string]bool
}

// NewLearnProgressRepository creates an empty in-memory progress store.
func NewLearnProgressRepository() *LearnProgressRepository {
	return &LearnProgressRepository{passed: make(map[string]map[string]bool)}
}

func (r *LearnProgressRepository) MarkPassed(ctx context.Context, progress *entities.LearnProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := resultKey(progress.DomainID, progress.UserID)
	if r.passed[k] == nil {
		r.passed[k] = make(map[string]bool)
	}
	r.passed[k][progress.CardID] = true
	return nil
}

func (r *LearnProgressRepository) IsPassed(ctx context.Context, domainID, userID, cardID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.passed[resultKey(domainID, userID)][cardID], nil
}

func (r *LearnProgressRepository) ListPassed(ctx context.Context, domainID, userID string) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool)
	for id, v := range r.passed[resultKey(domainID, userID)] {
		if v {
			out[id] = true
		}
	}
	return out, nil
}

// StatsRepository accumulates daily counters in memory.
type StatsRepository struct {
	mu   sync.Mutex
	days map[string]*entities.DailyStats
}

// NewStatsRepository creates an empty in-memory stats store.
func NewStatsRepository() *StatsRepository {
	return &StatsRepository{days: make(map[string]*entities.DailyStats)}
}

func dayKey(domainID, userID, date string) string {
	return domainID + "/" + userID + "/" + date
}

func (r *StatsRepository) IncrementDaily(ctx context.Context, delta *entities.DailyStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := dayKey(delta.DomainID, delta.UserID, delta.Date)
	day, ok := r.days[k]
	if !ok {
		day = &entities.DailyStats{DomainID: delta.DomainID, UserID: delta.UserID, Date: delta.Date}
		r.days[k] = day
	}
	day.Nodes += delta.Nodes
	day.Cards += delta.Cards
	day.Problems += delta.Problems
	day.Practices += delta.Practices
	day.TotalTimeMs += delta.TotalTimeMs
	return nil
}

func (r *StatsRepository) GetDay(ctx context.Context, domainID, userID, date string) (*entities.DailyStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if day, ok := r.days[dayKey(domainID, userID, date)]; ok {
		copied := *day
		return &copied, nil
	}
	return &entities.DailyStats{DomainID: domainID, UserID: userID, Date: date}, nil
}

// EventRecorder captures published events for assertions.
type EventRecorder struct {
	mu     sync.Mutex
	Events []events.DomainEvent
}

// NewEventRecorder creates an empty recorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) Publish(ctx context.Context, event events.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
	return nil
}

func (r *EventRecorder) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, batch...)
	return nil
}

// Types reported by the recorder, for convenience in tests.
func (r *EventRecorder) TypeCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range r.Events {
		counts[e.GetEventType()]++
	}
	return counts
}

var (
	_ ports.BaseRepository          = (*BaseRepository)(nil)
	_ ports.CardRepository          = (*CardRepository)(nil)
	_ ports.DAGRepository           = (*DAGRepository)(nil)
	_ ports.LearnStateRepository    = (*LearnStateRepository)(nil)
	_ ports.LearnResultRepository   = (*LearnResultRepository)(nil)
	_ ports.LearnProgressRepository = (*LearnProgressRepository)(nil)
	_ ports.StatsRepository         = (*StatsRepository)(nil)
	_ ports.EventPublisher          = (*EventRecorder)(nil)
)
