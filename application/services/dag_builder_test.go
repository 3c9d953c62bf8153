package services

import (
	"context"
	"testing"

	"learnengine/domain/config"
	"learnengine/domain/core/entities"
	"learnengine/domain/versioning"
	"learnengine/infrastructure/persistence/memory"
	pkgerrors "learnengine/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBuilder(cards *memory.CardRepository) *DAGBuilder {
	return NewDAGBuilder(cards, nil, config.DefaultDomainConfig(), zap.NewNop())
}

func sectionIDs(nodes []*entities.DAGNode) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestBuildPromotesRootChildrenToSections(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	builder := newTestBuilder(env.cards)

	base, err := env.bases.GetByDomain(context.Background(), testDomain)
	require.NoError(t, err)

	result, err := builder.Build(context.Background(), testDomain, testBase, base.Nodes, base.Edges)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, sectionIDs(result.Sections))
	for _, sec := range result.Sections {
		assert.Equal(t, []string{"R"}, sec.RequireNids)
	}

	require.Len(t, result.DAG, 1)
	a1 := result.DAG[0]
	assert.Equal(t, "A1", a1.ID)
	assert.Equal(t, []string{"R", "A"}, a1.RequireNids)
	assert.Equal(t, "A", a1.ParentID())
}

func TestBuildAttachesOwnCardsOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	builder := newTestBuilder(env.cards)

	base, _ := env.bases.GetByDomain(context.Background(), testDomain)
	result, err := builder.Build(context.Background(), testDomain, testBase, base.Nodes, base.Edges)
	require.NoError(t, err)

	sectionA := result.Sections[0]
	require.Len(t, sectionA.Cards, 1)
	assert.Equal(t, "card-a", sectionA.Cards[0].ID)

	a1 := result.DAG[0]
	assert.Equal(t, []string{"card-a1x", "card-a1y"}, []string{a1.Cards[0].ID, a1.Cards[1].ID})

	// Problem metadata must be precomputed on every card.
	for _, n := range append(result.Sections, result.DAG...) {
		for _, c := range n.Cards {
			require.NotNil(t, c.ProblemCount, "card %s missing problem count", c.ID)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	builder := newTestBuilder(env.cards)

	base, _ := env.bases.GetByDomain(context.Background(), testDomain)

	first, err := builder.Build(context.Background(), testDomain, testBase, base.Nodes, base.Edges)
	require.NoError(t, err)
	second, err := builder.Build(context.Background(), testDomain, testBase, base.Nodes, base.Edges)
	require.NoError(t, err)

	sumA, err := versioning.PayloadChecksum(first.Sections, first.DAG)
	require.NoError(t, err)
	sumB, err := versioning.PayloadChecksum(second.Sections, second.DAG)
	require.NoError(t, err)
	assert.Equal(t, sumA, sumB)
}

func TestBuildRejectsCycle(t *testing.T) {
	builder := newTestBuilder(memory.NewCardRepository())

	nodes := []entities.GraphNode{
		{ID: "R", Text: "Root", Level: intPtr(0)},
		{ID: "X", Text: "X"},
		{ID: "Y", Text: "Y"},
	}
	edges := []entities.GraphEdge{
		{ID: "e1", Source: "R", Target: "X"},
		{ID: "e2", Source: "X", Target: "Y"},
		{ID: "e3", Source: "Y", Target: "X"},
	}

	_, err := builder.Build(context.Background(), testDomain, testBase, nodes, edges)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestBuildSkipsDanglingChildReferences(t *testing.T) {
	builder := newTestBuilder(memory.NewCardRepository())

	nodes := []entities.GraphNode{
		{ID: "R", Text: "Root", Level: intPtr(0)},
		{ID: "X", Text: "X"},
	}
	edges := []entities.GraphEdge{
		{ID: "e1", Source: "R", Target: "X"},
		{ID: "e2", Source: "R", Target: "ghost"},
		{ID: "e3", Source: "X", Target: "phantom"},
	}

	result, err := builder.Build(context.Background(), testDomain, testBase, nodes, edges)
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, sectionIDs(result.Sections))
	assert.Empty(t, result.DAG)
}

func TestBuildTranslatesPlaceholderTitles(t *testing.T) {
	cards := memory.NewCardRepository()
	cards.AddCard(testDomain, testBase, entities.Card{
		ID: "card-1", NodeID: "X", Order: 1,
		Problems: []entities.Problem{{ID: "p1"}},
	})

	translate := func(key string) string { return "[" + key + "]" }
	builder := NewDAGBuilder(cards, translate, config.DefaultDomainConfig(), zap.NewNop())

	nodes := []entities.GraphNode{
		{ID: "R", Text: "Root", Level: intPtr(0)},
		{ID: "X"}, // untitled
	}
	edges := []entities.GraphEdge{{ID: "e1", Source: "R", Target: "X"}}

	result, err := builder.Build(context.Background(), testDomain, testBase, nodes, edges)
	require.NoError(t, err)
	require.Len(t, result.Sections, 1)
	assert.Equal(t, "[unnamed_node]", result.Sections[0].Title)
	require.Len(t, result.Sections[0].Cards, 1)
	assert.Equal(t, "[unnamed_card]", result.Sections[0].Cards[0].Title)
}

func TestBuildChildlessRoots(t *testing.T) {
	t.Run("multiple childless roots each become a section", func(t *testing.T) {
		builder := newTestBuilder(memory.NewCardRepository())
		nodes := []entities.GraphNode{
			{ID: "R1", Text: "One", Level: intPtr(0)},
			{ID: "R2", Text: "Two", Level: intPtr(0)},
		}
		result, err := builder.Build(context.Background(), testDomain, testBase, nodes, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"R1", "R2"}, sectionIDs(result.Sections))
	})

	t.Run("single childless root with cards is a singleton section", func(t *testing.T) {
		cards := memory.NewCardRepository()
		cards.AddCard(testDomain, testBase, entities.Card{
			ID: "card-r", NodeID: "R", Title: "Drill", Order: 1,
			Problems: []entities.Problem{{ID: "p1"}},
		})
		builder := newTestBuilder(cards)
		nodes := []entities.GraphNode{{ID: "R", Text: "Solo", Level: intPtr(0)}}
		result, err := builder.Build(context.Background(), testDomain, testBase, nodes, nil)
		require.NoError(t, err)
		require.Len(t, result.Sections, 1)
		assert.Equal(t, "R", result.Sections[0].ID)
	})

	t.Run("single childless root without cards produces nothing", func(t *testing.T) {
		builder := newTestBuilder(memory.NewCardRepository())
		nodes := []entities.GraphNode{{ID: "R", Text: "Solo", Level: intPtr(0)}}
		result, err := builder.Build(context.Background(), testDomain, testBase, nodes, nil)
		require.NoError(t, err)
		assert.Empty(t, result.Sections)
	})
}

func TestBuildFallsBackToFirstNodeAsRoot(t *testing.T) {
	builder := newTestBuilder(memory.NewCardRepository())

	// Every node carries a parent reference, but N1's parent does not
	// exist; the graph has no root candidate and falls back to the first
	// node in input order.
	nodes := []entities.GraphNode{
		{ID: "N1", Text: "First", ParentID: "missing"},
		{ID: "N2", Text: "Second", ParentID: "N1"},
	}

	result, err := builder.Build(context.Background(), testDomain, testBase, nodes, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"N2"}, sectionIDs(result.Sections))
	assert.Equal(t, []string{"N1"}, result.Sections[0].RequireNids)
}

func TestBuildSynthesizesEdgesFromParentIDs(t *testing.T) {
	builder := newTestBuilder(memory.NewCardRepository())

	// No explicit edges at all; the hierarchy comes from parentId fields.
	nodes := []entities.GraphNode{
		{ID: "R", Text: "Root", Level: intPtr(0)},
		{ID: "X", Text: "X", ParentID: "R"},
		{ID: "X1", Text: "X1", ParentID: "X"},
	}

	result, err := builder.Build(context.Background(), testDomain, testBase, nodes, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, sectionIDs(result.Sections))
	require.Len(t, result.DAG, 1)
	assert.Equal(t, []string{"R", "X"}, result.DAG[0].RequireNids)
}

func TestBuildHonorsExplicitOrder(t *testing.T) {
	builder := newTestBuilder(memory.NewCardRepository())

	nodes := []entities.GraphNode{
		{ID: "R", Text: "Root", Level: intPtr(0)},
		{ID: "X", Text: "X", Order: intPtr(20)},
		{ID: "Y", Text: "Y", Order: intPtr(10)},
	}
	edges := []entities.GraphEdge{
		{ID: "e1", Source: "R", Target: "X"},
		{ID: "e2", Source: "R", Target: "Y"},
	}

	result, err := builder.Build(context.Background(), testDomain, testBase, nodes, edges)
	require.NoError(t, err)
	assert.Equal(t, []string{"Y", "X"}, sectionIDs(result.Sections))
}

func TestBuildEnforcesConfiguredGraphLimits(t *testing.T) {
	nodes := []entities.GraphNode{
		{ID: "R", Text: "Root", Level: intPtr(0)},
		{ID: "X", Text: "X", ParentID: "R"},
		{ID: "X1", Text: "X1", ParentID: "X"},
	}

	t.Run("node limit", func(t *testing.T) {
		cfg := config.DefaultDomainConfig()
		cfg.MaxGraphNodes = 2
		builder := NewDAGBuilder(memory.NewCardRepository(), nil, cfg, zap.NewNop())

		_, err := builder.Build(context.Background(), testDomain, testBase, nodes, nil)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
		assert.Contains(t, err.Error(), "maximum of 2 nodes")
	})

	t.Run("depth limit", func(t *testing.T) {
		cfg := config.DefaultDomainConfig()
		cfg.MaxGraphDepth = 1
		builder := NewDAGBuilder(memory.NewCardRepository(), nil, cfg, zap.NewNop())

		_, err := builder.Build(context.Background(), testDomain, testBase, nodes, nil)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
		assert.Contains(t, err.Error(), "maximum depth of 1")
	})
}
