package services

import (
	"context"
	"testing"
	"time"

	"learnengine/application/ports"
	"learnengine/domain/config"
	"learnengine/domain/core/entities"
	"learnengine/domain/core/valueobjects"
	"learnengine/domain/versioning"
	"learnengine/infrastructure/persistence/memory"

	"go.uber.org/zap"
)

const (
	testDomain = "dom-1"
	testBase   = "base-1"
	testUser   = "user-1"
)

// nopCache never hits, so every read exercises the persisted-entry path.
type nopCache struct{}

func (nopCache) Get(ctx context.Context, key string) (interface{}, bool)            { return nil, false }
func (nopCache) Set(ctx context.Context, key string, value interface{}, ttl int) error { return nil }
func (nopCache) Delete(ctx context.Context, key string) error                       { return nil }
func (nopCache) Clear(ctx context.Context) error                                    { return nil }

// mapCache is a hitting in-memory cache, for tests that exercise the
// hot-cache path.
type mapCache struct {
	entries map[string]interface{}
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]interface{})}
}

func (c *mapCache) Get(ctx context.Context, key string) (interface{}, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	c.entries[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func (c *mapCache) Clear(ctx context.Context) error {
	c.entries = make(map[string]interface{})
	return nil
}

type testEnv struct {
	bases    *memory.BaseRepository
	cards    *memory.CardRepository
	dagRepo  *memory.DAGRepository
	states   *memory.LearnStateRepository
	results  *memory.LearnResultRepository
	progress *memory.LearnProgressRepository
	stats    *memory.StatsRepository
	events   *memory.EventRecorder

	cfg         *config.DomainConfig
	dags        *DAGService
	progression *ProgressionService
	statsSvc    *StatsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvCache(t, nopCache{})
}

func newTestEnvCache(t *testing.T, cache ports.Cache) *testEnv {
	t.Helper()

	env := &testEnv{
		bases:    memory.NewBaseRepository(),
		cards:    memory.NewCardRepository(),
		dagRepo:  memory.NewDAGRepository(),
		states:   memory.NewLearnStateRepository(),
		results:  memory.NewLearnResultRepository(),
		progress: memory.NewLearnProgressRepository(),
		stats:    memory.NewStatsRepository(),
		events:   memory.NewEventRecorder(),
		cfg:      config.DefaultDomainConfig(),
	}

	logger := zap.NewNop()
	builder := NewDAGBuilder(env.cards, nil, env.cfg, logger)
	policy := versioning.NewStalenessPolicy(config.DAGSchemaVersion)
	env.dags = NewDAGService(env.bases, env.dagRepo, builder, policy, cache, env.events, env.cfg, logger)
	env.progression = NewProgressionService(env.dags, env.states, env.results, env.progress, env.stats, env.events, env.cfg, logger)
	env.statsSvc = NewStatsService(env.stats, env.results, env.states, logger)
	return env
}

func (env *testEnv) stateKey(t *testing.T) valueobjects.StateKey {
	t.Helper()
	key, err := valueobjects.NewStateKey(testDomain, testUser)
	if err != nil {
		t.Fatalf("state key: %v", err)
	}
	return key
}

func intPtr(v int) *int { return &v }

// testTime is a fixed content timestamp; bumping it simulates an edit.
func testTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

// seedFixture installs the standard test graph:
//
//	R (level 0)
//	├── A "Numbers"    — card-a
//	│   └── A1 "Fractions" — card-a1x, card-a1y
//	├── B "Equations"  — card-b
//	└── C "Geometry"   — card-c
//
// plus a "skills" branch holding a single node S with one card.
func (env *testEnv) seedFixture(updatedAt time.Time) {
	env.bases.SetBase(&entities.BaseDoc{
		ID:       testBase,
		DomainID: testDomain,
		Title:    "Algebra",
		Nodes: []entities.GraphNode{
			{ID: "R", Text: "Algebra", Level: intPtr(0)},
			{ID: "A", Text: "Numbers"},
			{ID: "B", Text: "Equations"},
			{ID: "C", Text: "Geometry"},
			{ID: "A1", Text: "Fractions"},
		},
		Edges: []entities.GraphEdge{
			{ID: "e1", Source: "R", Target: "A"},
			{ID: "e2", Source: "R", Target: "B"},
			{ID: "e3", Source: "R", Target: "C"},
			{ID: "e4", Source: "A", Target: "A1"},
		},
		BranchData: map[string]entities.BranchGraph{
			"skills": {
				Nodes: []entities.GraphNode{{ID: "S", Text: "Skills"}},
			},
		},
		UpdatedAt: updatedAt,
	})

	problem := func(id string) entities.Problem {
		return entities.Problem{ID: id, Stem: "stem " + id, Answer: "answer"}
	}
	env.cards.AddCard(testDomain, testBase, entities.Card{
		ID: "card-a", NodeID: "A", Title: "Integers", Order: 1,
		Problems: []entities.Problem{problem("p-a1"), problem("p-a2")},
	})
	env.cards.AddCard(testDomain, testBase, entities.Card{
		ID: "card-a1x", NodeID: "A1", Title: "Halves", Order: 1,
		Problems: []entities.Problem{problem("p-x")},
	})
	env.cards.AddCard(testDomain, testBase, entities.Card{
		ID: "card-a1y", NodeID: "A1", Title: "Thirds", Order: 2,
		Problems: []entities.Problem{problem("p-y")},
	})
	env.cards.AddCard(testDomain, testBase, entities.Card{
		ID: "card-b", NodeID: "B", Title: "Linear", Order: 1,
		Problems: []entities.Problem{problem("p-b")},
	})
	env.cards.AddCard(testDomain, testBase, entities.Card{
		ID: "card-c", NodeID: "C", Title: "Angles", Order: 1,
		Problems: []entities.Problem{problem("p-c")},
	})
	env.cards.AddCard(testDomain, testBase, entities.Card{
		ID: "card-s", NodeID: "S", Title: "Skill drill", Order: 1,
		Problems: []entities.Problem{problem("p-s")},
	})
}
