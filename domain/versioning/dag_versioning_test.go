package versioning

import (
	"testing"

	"learnengine/domain/core/aggregates"
	"learnengine/domain/core/entities"
	"learnengine/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaVersion = 3

func metaCard(id string) entities.Card {
	return entities.Card{
		ID:       id,
		NodeID:   "n-1",
		Problems: []entities.Problem{{ID: "p-1", Stem: "stem", Answer: "answer"}},
	}.WithProblemCount()
}

func freshDoc(t *testing.T, version int64) *aggregates.DAGDoc {
	t.Helper()
	key, err := valueobjects.NewDAGKey("dom-1", "base-1", "")
	require.NoError(t, err)

	sections := []*entities.DAGNode{
		{ID: "sec-1", Title: "Section", Cards: []entities.Card{metaCard("card-1")}},
	}
	dag := []*entities.DAGNode{
		{ID: "n-1", Title: "Node", RequireNids: []string{"sec-1"}, Cards: []entities.Card{metaCard("card-2")}},
	}
	return aggregates.NewDAGDoc(key, sections, dag, version, schemaVersion)
}

func TestEvaluateFreshEntry(t *testing.T) {
	policy := NewStalenessPolicy(schemaVersion)
	doc := freshDoc(t, 100)

	assert.Empty(t, policy.Evaluate(doc, 100, 5))
	assert.False(t, policy.IsStale(doc, 100, 5))
}

func TestEvaluateMissing(t *testing.T) {
	policy := NewStalenessPolicy(schemaVersion)
	assert.Equal(t, []StaleReason{StaleMissing}, policy.Evaluate(nil, 100, 5))
}

func TestEvaluateVersionBehind(t *testing.T) {
	policy := NewStalenessPolicy(schemaVersion)
	doc := freshDoc(t, 100)

	reasons := policy.Evaluate(doc, 200, 5)
	assert.Contains(t, reasons, StaleVersionBehind)

	// An entry newer than the source is not behind.
	assert.Empty(t, policy.Evaluate(doc, 50, 5))
}

func TestEvaluateEmptyPayload(t *testing.T) {
	policy := NewStalenessPolicy(schemaVersion)
	key, err := valueobjects.NewDAGKey("dom-1", "base-1", "")
	require.NoError(t, err)
	empty := aggregates.NewDAGDoc(key, nil, nil, 100, schemaVersion)

	reasons := policy.Evaluate(empty, 100, 5)
	assert.Contains(t, reasons, StaleEmptySections)
	assert.Contains(t, reasons, StaleEmptyPayload)

	// A legitimately empty source graph keeps its empty entry.
	assert.Empty(t, policy.Evaluate(empty, 100, 0))
}

func TestEvaluateNoProblemMeta(t *testing.T) {
	policy := NewStalenessPolicy(schemaVersion)
	doc := freshDoc(t, 100)
	doc.DAG[0].Cards = []entities.Card{{ID: "card-old", NodeID: "n-1"}}

	assert.Contains(t, policy.Evaluate(doc, 100, 5), StaleNoProblemMeta)
}

func TestEvaluateSchemaBehind(t *testing.T) {
	policy := NewStalenessPolicy(schemaVersion + 1)
	doc := freshDoc(t, 100)

	assert.Equal(t, []StaleReason{StaleSchemaBehind}, policy.Evaluate(doc, 100, 5))
}

func TestEvaluateAccumulatesReasons(t *testing.T) {
	policy := NewStalenessPolicy(schemaVersion + 1)
	doc := freshDoc(t, 100)
	doc.DAG[0].Cards = []entities.Card{{ID: "card-old", NodeID: "n-1"}}

	reasons := policy.Evaluate(doc, 200, 5)
	assert.ElementsMatch(t, []StaleReason{StaleVersionBehind, StaleNoProblemMeta, StaleSchemaBehind}, reasons)
}

func TestPayloadChecksumDeterministic(t *testing.T) {
	a := freshDoc(t, 100)
	b := freshDoc(t, 100)

	ca, err := PayloadChecksum(a.Sections, a.DAG)
	require.NoError(t, err)
	cb, err := PayloadChecksum(b.Sections, b.DAG)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)

	b.DAG[0].Title = "Renamed"
	cc, err := PayloadChecksum(b.Sections, b.DAG)
	require.NoError(t, err)
	assert.NotEqual(t, ca, cc)
}
