package services

import (
	"context"
	"testing"
	"time"

	"learnengine/domain/core/entities"
	"learnengine/domain/events"
	pkgerrors "learnengine/pkg/errors"
	"learnengine/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (env *testEnv) passCard(t *testing.T, cardID string, answers ...entities.AnswerRecord) *PassOutcome {
	t.Helper()
	outcome, err := env.progression.PassCard(context.Background(), env.stateKey(t), PassInput{
		CardID:        cardID,
		AnswerHistory: answers,
		TotalTimeMs:   1500,
	})
	require.NoError(t, err)
	return outcome
}

func answer(problemID string) entities.AnswerRecord {
	return entities.AnswerRecord{ProblemID: problemID, Answer: "42", Correct: true, TimeMs: 500}
}

func TestApplyUserSectionOrder(t *testing.T) {
	sections := []*entities.DAGNode{
		{ID: "s1", Order: 0}, {ID: "s2", Order: 1}, {ID: "s3", Order: 2},
	}

	t.Run("listed ids only, duplicates kept as distinct clones", func(t *testing.T) {
		ordered := ApplyUserSectionOrder(sections, []string{"s3", "s1", "s3"})
		require.Equal(t, []string{"s3", "s1", "s3"}, sectionIDs(ordered), "unlisted sections are dropped")
		for i, sec := range ordered {
			assert.Equal(t, i, sec.Order, "order is reassigned to the list position")
		}
		assert.NotSame(t, ordered[0], ordered[2], "each occurrence is its own clone")
		assert.NotSame(t, sections[2], ordered[0], "the canonical section is never handed out")
	})

	t.Run("unknown ids are skipped", func(t *testing.T) {
		ordered := ApplyUserSectionOrder(sections, []string{"ghost", "s2"})
		require.Equal(t, []string{"s2"}, sectionIDs(ordered))
		assert.Equal(t, 0, ordered[0].Order)
	})

	t.Run("empty order keeps canonical order", func(t *testing.T) {
		ordered := ApplyUserSectionOrder(sections, nil)
		assert.Equal(t, []string{"s1", "s2", "s3"}, sectionIDs(ordered))
	})

	t.Run("input is never mutated", func(t *testing.T) {
		_ = ApplyUserSectionOrder(sections, []string{"s3", "s2", "s1"})
		assert.Equal(t, []string{"s1", "s2", "s3"}, sectionIDs(sections))
		for i, sec := range sections {
			assert.Equal(t, i, sec.Order)
		}
	})
}

func TestGetSectionsDefaultsToFirstSection(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()
	key := env.stateKey(t)

	page, err := env.progression.GetSections(ctx, key, LessonParams{})
	require.NoError(t, err)

	assert.Equal(t, 0, page.CurrentIndex)
	assert.Equal(t, "A", page.CurrentID)
	require.Len(t, page.Sections, 3)
	assert.True(t, page.Sections[0].Current)
	assert.Equal(t, 3, page.Sections[0].CardCount, "section A subtree holds its own card plus A1's")
	assert.Equal(t, 1, page.Sections[1].CardCount)

	// The default selection is persisted for the next read.
	state, err := env.states.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, state.SectionIndex)
	assert.Equal(t, "A", state.SectionID)
}

func TestGetSectionsExplicitSelectionPersists(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()
	key := env.stateKey(t)

	page, err := env.progression.GetSections(ctx, key, LessonParams{SectionIndex: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, page.CurrentIndex)
	assert.Equal(t, "C", page.CurrentID)

	// Subsequent reads without parameters start from the saved cursor.
	page, err = env.progression.GetSections(ctx, key, LessonParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.CurrentIndex)

	// Selection by id wins over the saved index.
	page, err = env.progression.GetSections(ctx, key, LessonParams{SectionID: "B"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentIndex)

	_, err = env.progression.GetSections(ctx, key, LessonParams{SectionIndex: intPtr(99)})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = env.progression.GetSections(ctx, key, LessonParams{SectionID: "ghost"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestGetSectionsCountsPasses(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	key := env.stateKey(t)

	env.passCard(t, "card-a", answer("p-a1"))

	page, err := env.progression.GetSections(context.Background(), key, LessonParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Sections[0].PassedCount)
	assert.Equal(t, 0, page.Sections[1].PassedCount)
}

func TestGetLessonUnlockChain(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()
	key := env.stateKey(t)

	lesson, err := env.progression.GetLesson(ctx, key, LessonParams{})
	require.NoError(t, err)
	require.NotNil(t, lesson.Card)
	assert.Equal(t, "card-a", lesson.Card.ID)
	assert.Equal(t, "section", lesson.Source)
	assert.Equal(t, "A", lesson.NodeID)
	assert.Equal(t, 0, lesson.Position)
	assert.Equal(t, 3, lesson.Total)

	env.passCard(t, "card-a", answer("p-a1"))

	lesson, err = env.progression.GetLesson(ctx, key, LessonParams{})
	require.NoError(t, err)
	require.NotNil(t, lesson.Card)
	assert.Equal(t, "card-a1x", lesson.Card.ID, "the chain moves to the next unpassed card in subtree order")
	assert.Equal(t, "A1", lesson.NodeID)
	assert.Equal(t, 1, lesson.Position)
}

func TestGetLessonSkipsCardsWithoutProblems(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	// A card without problems ahead of the others never blocks the chain.
	env.cards.AddCard(testDomain, testBase, entities.Card{
		ID: "card-a0", NodeID: "A", Title: "Intro", Order: 0,
	})

	lesson, err := env.progression.GetLesson(context.Background(), env.stateKey(t), LessonParams{})
	require.NoError(t, err)
	require.NotNil(t, lesson.Card)
	assert.Equal(t, "card-a", lesson.Card.ID)
}

func TestGetLessonAdvancesFromCompletedSectionZero(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()
	key := env.stateKey(t)

	for _, id := range []string{"card-a", "card-a1x", "card-a1y"} {
		env.passCard(t, id, answer("p"))
	}

	// Section 0 was genuinely worked through, so the scan moves on.
	lesson, err := env.progression.GetLesson(ctx, key, LessonParams{})
	require.NoError(t, err)
	require.NotNil(t, lesson.Card)
	assert.Equal(t, "card-b", lesson.Card.ID)
	assert.Equal(t, 1, lesson.SectionIndex)
	assert.Equal(t, "B", lesson.SectionID)

	state, err := env.states.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, state.SectionIndex)
	assert.Equal(t, 1, env.events.TypeCounts()[events.EventTypeSectionAdvanced])
}

func TestGetLessonStaysOnEmptySectionZero(t *testing.T) {
	env := newTestEnv(t)
	// Section A has nothing to study; B does. A fresh user must see the
	// completion marker at section 0 instead of silently starting at B.
	env.bases.SetBase(&entities.BaseDoc{
		ID:       testBase,
		DomainID: testDomain,
		Title:    "Algebra",
		Nodes: []entities.GraphNode{
			{ID: "R", Text: "Algebra", Level: intPtr(0)},
			{ID: "A", Text: "Numbers"},
			{ID: "B", Text: "Equations"},
		},
		Edges: []entities.GraphEdge{
			{ID: "e1", Source: "R", Target: "A"},
			{ID: "e2", Source: "R", Target: "B"},
		},
		UpdatedAt: testTime(),
	})
	env.cards.AddCard(testDomain, testBase, entities.Card{
		ID: "card-b", NodeID: "B", Title: "Linear", Order: 1,
		Problems: []entities.Problem{{ID: "p-b", Stem: "stem", Answer: "answer"}},
	})
	ctx := context.Background()
	key := env.stateKey(t)

	lesson, err := env.progression.GetLesson(ctx, key, LessonParams{})
	require.NoError(t, err)
	assert.True(t, lesson.Completed)
	assert.Nil(t, lesson.Card)
	assert.Equal(t, 0, lesson.SectionIndex)

	state, err := env.states.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, state.SectionIndex)
	assert.Equal(t, 0, env.events.TypeCounts()[events.EventTypeSectionAdvanced])
}

func TestGetLessonAutoAdvancesPastExhaustedSection(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()
	key := env.stateKey(t)

	env.passCard(t, "card-b", answer("p-b"))

	lesson, err := env.progression.GetLesson(ctx, key, LessonParams{SectionIndex: intPtr(1)})
	require.NoError(t, err)
	require.NotNil(t, lesson.Card)
	assert.Equal(t, "card-c", lesson.Card.ID)
	assert.Equal(t, 2, lesson.SectionIndex)
	assert.Equal(t, "C", lesson.SectionID)

	assert.Equal(t, 1, env.events.TypeCounts()[events.EventTypeSectionAdvanced])
}

func TestGetLessonLastSectionCompletes(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	key := env.stateKey(t)

	env.passCard(t, "card-c", answer("p-c"))

	lesson, err := env.progression.GetLesson(context.Background(), key, LessonParams{SectionIndex: intPtr(2)})
	require.NoError(t, err)
	assert.True(t, lesson.Completed)
	assert.Equal(t, 2, lesson.SectionIndex)
}

func TestGetLessonNodeMode(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()
	key := env.stateKey(t)

	lesson, err := env.progression.GetLesson(ctx, key, LessonParams{Mode: "node", NodeID: "A1"})
	require.NoError(t, err)
	require.NotNil(t, lesson.Card)
	assert.Equal(t, "card-a1x", lesson.Card.ID)
	assert.Equal(t, "node", lesson.Source)
	assert.Equal(t, "A1", lesson.NodeID)
	assert.Equal(t, 2, lesson.Total, "node mode scans the node's own cards only")

	_, err = env.progression.GetLesson(ctx, key, LessonParams{Mode: "node"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = env.progression.GetLesson(ctx, key, LessonParams{Mode: "node", NodeID: "ghost"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestGetLessonTodayModeStaysInSection(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()
	key := env.stateKey(t)

	lesson, err := env.progression.GetLesson(ctx, key, LessonParams{Mode: "today"})
	require.NoError(t, err)
	require.NotNil(t, lesson.Card)
	assert.Equal(t, "card-a", lesson.Card.ID)
	assert.Equal(t, "today", lesson.Source)
	assert.Equal(t, "A", lesson.NodeID)

	for _, id := range []string{"card-a", "card-a1x", "card-a1y"} {
		env.passCard(t, id, answer("p"))
	}

	// The current section ran dry; today mode never spills into B.
	lesson, err = env.progression.GetLesson(ctx, key, LessonParams{Mode: "today"})
	require.NoError(t, err)
	assert.Nil(t, lesson.Card)
	assert.True(t, lesson.Completed)
	assert.Equal(t, 0, lesson.SectionIndex)
	assert.Equal(t, 3, lesson.TodayCards)
}

func TestPassCardRecordsResultAndStats(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()

	outcome := env.passCard(t, "card-a",
		answer("p-a1"), answer("p-a2"), answer("p-a1"))

	require.NotNil(t, outcome.Result)
	assert.True(t, outcome.Passed)
	assert.Equal(t, 15, outcome.Result.Score, "three answers at five points each")

	passed, err := env.progress.ListPassed(ctx, testDomain, testUser)
	require.NoError(t, err)
	assert.True(t, passed["card-a"])

	day, err := env.stats.GetDay(ctx, testDomain, testUser, utils.UTCDate(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, day.Cards)
	assert.Equal(t, 1, day.Practices)
	assert.Equal(t, 2, day.Problems, "distinct problems only")
	assert.Equal(t, int64(1500), day.TotalTimeMs)

	assert.Equal(t, 1, env.events.TypeCounts()[events.EventTypeLearnResultAdded])
}

func TestPassCardUnknownCard(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())

	_, err := env.progression.PassCard(context.Background(), env.stateKey(t), PassInput{CardID: "ghost"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestPassCardResolvesTargetWhenUnspecified(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()
	key := env.stateKey(t)

	// No card id: the current lesson card is the one being passed.
	outcome, err := env.progression.PassCard(ctx, key, PassInput{
		AnswerHistory: []entities.AnswerRecord{answer("p-a1")},
		TotalTimeMs:   1500,
	})
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, "card-a", outcome.Result.CardID)

	passed, err := env.progress.ListPassed(ctx, testDomain, testUser)
	require.NoError(t, err)
	assert.True(t, passed["card-a"])

	// With a node given, resolution is scoped to that node's cards.
	outcome, err = env.progression.PassCard(ctx, key, PassInput{
		NodeID:        "A1",
		AnswerHistory: []entities.AnswerRecord{answer("p-x")},
		TotalTimeMs:   900,
	})
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, "card-a1x", outcome.Result.CardID)
	assert.Equal(t, "A1", outcome.Result.NodeID)
}

func TestPassCardNodeCompletion(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()

	first := env.passCard(t, "card-a1x", answer("p-x"))
	assert.False(t, first.NodeComplete)

	second := env.passCard(t, "card-a1y", answer("p-y"))
	assert.True(t, second.NodeComplete, "both of A1's cards are now passed")

	day, err := env.stats.GetDay(ctx, testDomain, testUser, utils.UTCDate(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, day.Nodes)
}

func TestPassCardNoImpressionOnlyEnqueues(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()
	key := env.stateKey(t)

	outcome, err := env.progression.PassCard(ctx, key, PassInput{CardID: "card-b", NoImpression: true})
	require.NoError(t, err)
	assert.True(t, outcome.Enqueued)
	assert.False(t, outcome.Passed)
	assert.Nil(t, outcome.Result)

	results, err := env.results.ListByUser(ctx, testDomain, testUser, 10)
	require.NoError(t, err)
	assert.Empty(t, results, "no impression must not append a result")

	passed, err := env.progress.ListPassed(ctx, testDomain, testUser)
	require.NoError(t, err)
	assert.False(t, passed["card-b"])

	state, err := env.states.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"card-b"}, state.ReviewQueue)
}

func TestReviewQueueOutranksSectionScan(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()
	key := env.stateKey(t)

	_, err := env.progression.PassCard(ctx, key, PassInput{CardID: "card-b", NoImpression: true})
	require.NoError(t, err)
	_, err = env.progression.PassCard(ctx, key, PassInput{CardID: "card-c", NoImpression: true})
	require.NoError(t, err)

	// The queue is served FIFO, regardless of the section cursor.
	lesson, err := env.progression.GetLesson(ctx, key, LessonParams{})
	require.NoError(t, err)
	require.NotNil(t, lesson.Card)
	assert.Equal(t, "card-b", lesson.Card.ID)
	assert.Equal(t, "review", lesson.Source)

	// Passing the front entry dequeues it; the next read serves the second.
	env.passCard(t, "card-b", answer("p-b"))

	lesson, err = env.progression.GetLesson(ctx, key, LessonParams{})
	require.NoError(t, err)
	require.NotNil(t, lesson.Card)
	assert.Equal(t, "card-c", lesson.Card.ID)
	assert.Equal(t, "review", lesson.Source)
}

func TestReorderSections(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()
	key := env.stateKey(t)

	require.NoError(t, env.progression.ReorderSections(ctx, key, []string{"C", "A"}))

	// The listing shows exactly the chosen sections; B is hidden until the
	// user lists it again.
	page, err := env.progression.GetSections(ctx, key, LessonParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, func() []string {
		ids := make([]string, 0, len(page.Sections))
		for _, s := range page.Sections {
			ids = append(ids, s.ID)
		}
		return ids
	}())
	assert.Equal(t, 2, page.Total)

	err = env.progression.ReorderSections(ctx, key, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	err = env.progression.ReorderSections(ctx, key, []string{"A", ""})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestSetDailyGoal(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()
	key := env.stateKey(t)

	require.NoError(t, env.progression.SetDailyGoal(ctx, key, 25))

	state, err := env.states.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 25, state.DailyGoal)

	err = env.progression.SetDailyGoal(ctx, key, 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}
