package services

import (
	"context"
	"testing"
	"time"

	"learnengine/domain/config"
	"learnengine/domain/core/aggregates"
	"learnengine/domain/core/entities"
	"learnengine/domain/core/valueobjects"
	"learnengine/domain/events"
	pkgerrors "learnengine/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDAGBuildsOnceWhileFresh(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()

	first, err := env.dags.GetDAG(ctx, testDomain, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, sectionIDs(first.Sections))
	assert.Equal(t, 1, env.dagRepo.Puts)

	second, err := env.dags.GetDAG(ctx, testDomain, "")
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, 1, env.dagRepo.Puts, "a fresh entry must not be regenerated")

	assert.Equal(t, 1, env.events.TypeCounts()[events.EventTypeDAGRebuilt])
}

func TestGetDAGRebuildsAfterContentEdit(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()

	_, err := env.dags.GetDAG(ctx, testDomain, "")
	require.NoError(t, err)
	require.Equal(t, 1, env.dagRepo.Puts)

	// Simulate an edit by moving the source timestamp forward.
	base, err := env.bases.GetByDomain(ctx, testDomain)
	require.NoError(t, err)
	edited := *base
	edited.UpdatedAt = testTime().Add(time.Minute)
	env.bases.SetBase(&edited)

	doc, err := env.dags.GetDAG(ctx, testDomain, "")
	require.NoError(t, err)
	assert.Equal(t, 2, env.dagRepo.Puts)
	assert.Equal(t, testTime().Add(time.Minute).UnixMilli(), doc.Version)
}

func TestGetDAGRebuildsWhenSchemaBehind(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()

	fresh, err := env.dags.GetDAG(ctx, testDomain, "")
	require.NoError(t, err)

	// Age the persisted entry to a previous payload layout.
	key, err := valueobjects.NewDAGKey(testDomain, testBase, "")
	require.NoError(t, err)
	stale := aggregates.NewDAGDoc(key, fresh.Sections, fresh.DAG, fresh.Version, config.DAGSchemaVersion-1)
	require.NoError(t, env.dagRepo.Put(ctx, stale))
	putsBefore := env.dagRepo.Puts

	doc, err := env.dags.GetDAG(ctx, testDomain, "")
	require.NoError(t, err)
	assert.Equal(t, putsBefore+1, env.dagRepo.Puts)
	assert.Equal(t, config.DAGSchemaVersion, doc.SchemaVersion)
}

func TestRebuildBypassesStalenessChecks(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()

	_, err := env.dags.GetDAG(ctx, testDomain, "")
	require.NoError(t, err)
	require.Equal(t, 1, env.dagRepo.Puts)

	_, err = env.dags.Rebuild(ctx, testDomain, "")
	require.NoError(t, err)
	assert.Equal(t, 2, env.dagRepo.Puts)
}

func TestGetDAGHotCacheHonorsStaleness(t *testing.T) {
	env := newTestEnvCache(t, newMapCache())
	env.seedFixture(testTime())
	ctx := context.Background()

	first, err := env.dags.GetDAG(ctx, testDomain, "")
	require.NoError(t, err)
	require.Equal(t, 1, env.dagRepo.Puts)

	// A hit on a still-fresh entry skips the persisted store entirely.
	second, err := env.dags.GetDAG(ctx, testDomain, "")
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, 1, env.dagRepo.Puts)

	// After a content edit the hot-cache hit must not be served stale.
	base, err := env.bases.GetByDomain(ctx, testDomain)
	require.NoError(t, err)
	edited := *base
	edited.UpdatedAt = testTime().Add(time.Minute)
	env.bases.SetBase(&edited)

	doc, err := env.dags.GetDAG(ctx, testDomain, "")
	require.NoError(t, err)
	assert.Equal(t, testTime().Add(time.Minute).UnixMilli(), doc.Version)
	assert.Equal(t, 2, env.dagRepo.Puts)
}

func TestGetDAGPrefersSkillsDocument(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()

	// A dedicated skills document outranks the branch data embedded in
	// the main base.
	env.bases.SetSkills(&entities.BaseDoc{
		ID:       "base-skills",
		DomainID: testDomain,
		Title:    "Algebra skills",
		Nodes: []entities.GraphNode{
			{ID: "S2", Text: "Skill ladder"},
		},
		UpdatedAt: testTime(),
	})
	env.cards.AddCard(testDomain, "base-skills", entities.Card{
		ID: "card-s2", NodeID: "S2", Title: "Drill", Order: 1,
		Problems: []entities.Problem{{ID: "p-s2", Stem: "stem", Answer: "answer"}},
	})

	doc, err := env.dags.GetDAG(ctx, testDomain, "skills")
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "S2", doc.Sections[0].ID)
	assert.Equal(t, "base-skills", doc.Key.BaseID)
}

func TestGetDAGUnknownDomain(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())

	_, err := env.dags.GetDAG(context.Background(), "nonexistent", "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestGetDAGBranchVariant(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()

	doc, err := env.dags.GetDAG(ctx, testDomain, "skills")
	require.NoError(t, err)

	// The skills branch holds a single childless node with cards, which
	// becomes a singleton section.
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "S", doc.Sections[0].ID)
	assert.Equal(t, "skills", doc.Key.Branch)

	// Branch payloads are cached independently of main.
	main, err := env.dags.GetDAG(ctx, testDomain, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, sectionIDs(main.Sections))
	assert.Equal(t, 2, env.dagRepo.Puts)
}
