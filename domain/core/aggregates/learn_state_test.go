package aggregates

import (
	"testing"

	"learnengine/domain/core/valueobjects"
	pkgerrors "learnengine/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState(t *testing.T) *LearnState {
	t.Helper()
	key, err := valueobjects.NewStateKey("dom-1", "user-1")
	require.NoError(t, err)
	return NewLearnState(key)
}

func TestNewLearnStateDefaults(t *testing.T) {
	s := newState(t)
	assert.Equal(t, -1, s.SectionIndex)
	assert.Equal(t, valueobjects.DefaultDailyGoal, s.DailyGoal)
	assert.Equal(t, int64(1), s.StateVersion)
	assert.False(t, s.HasSection())
}

func TestAdvanceSectionSelected(t *testing.T) {
	s := newState(t)

	require.NoError(t, s.Advance(SectionSelected{Index: 2, SectionID: "sec-c", SectionCount: 4}))
	assert.Equal(t, 2, s.SectionIndex)
	assert.Equal(t, "sec-c", s.SectionID)
	assert.Equal(t, 2, s.ProgressPosition)
	assert.Equal(t, 4, s.ProgressTotal)
	assert.True(t, s.HasSection())

	err := s.Advance(SectionSelected{Index: 4, SectionID: "x", SectionCount: 4})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	err = s.Advance(SectionSelected{Index: -1, SectionID: "x", SectionCount: 4})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestAdvanceSectionAdvanced(t *testing.T) {
	t.Run("rejects advancing before any selection", func(t *testing.T) {
		s := newState(t)

		err := s.Advance(SectionAdvanced{Index: 0, SectionID: "sec-a", SectionCount: 3})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsConflict(err))
		assert.Equal(t, -1, s.SectionIndex)
	})

	t.Run("rejects advancing from an empty section zero", func(t *testing.T) {
		s := newState(t)
		require.NoError(t, s.Advance(SectionSelected{Index: 0, SectionID: "sec-a", SectionCount: 3}))

		err := s.Advance(SectionAdvanced{Index: 1, SectionID: "sec-b", SectionCount: 3})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsConflict(err))
		assert.Equal(t, 0, s.SectionIndex)
	})

	t.Run("advances from a worked-through section zero", func(t *testing.T) {
		s := newState(t)
		require.NoError(t, s.Advance(SectionSelected{Index: 0, SectionID: "sec-a", SectionCount: 3}))

		require.NoError(t, s.Advance(SectionAdvanced{Index: 1, SectionID: "sec-b", SectionCount: 3, HadQualifyingCards: true}))
		assert.Equal(t, 1, s.SectionIndex)
		assert.Equal(t, "sec-b", s.SectionID)
	})

	t.Run("advances one step and resets the lesson cursor", func(t *testing.T) {
		s := newState(t)
		require.NoError(t, s.Advance(SectionSelected{Index: 1, SectionID: "sec-b", SectionCount: 3}))
		require.NoError(t, s.Advance(CursorMoved{CardIndex: 5}))

		require.NoError(t, s.Advance(SectionAdvanced{Index: 2, SectionID: "sec-c", SectionCount: 3}))
		assert.Equal(t, 2, s.SectionIndex)
		assert.Equal(t, "sec-c", s.SectionID)
		assert.Equal(t, 0, s.LessonCardIndex)
	})

	t.Run("rejects out-of-sequence targets", func(t *testing.T) {
		s := newState(t)
		require.NoError(t, s.Advance(SectionSelected{Index: 1, SectionID: "sec-b", SectionCount: 4}))

		err := s.Advance(SectionAdvanced{Index: 3, SectionID: "sec-d", SectionCount: 4})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsConflict(err))

		err = s.Advance(SectionAdvanced{Index: 4, SectionID: "x", SectionCount: 4})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsConflict(err))
	})
}

func TestAdvanceCursorMoved(t *testing.T) {
	s := newState(t)

	require.NoError(t, s.Advance(CursorMoved{Mode: LessonModeNode, NodeID: "n-1", CardIndex: 2}))
	assert.Equal(t, LessonModeNode, s.LessonMode)
	assert.Equal(t, "n-1", s.LessonNodeID)
	assert.Equal(t, 2, s.LessonCardIndex)

	err := s.Advance(CursorMoved{Mode: "bogus"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestAdvanceReviewQueue(t *testing.T) {
	s := newState(t)

	_, ok := s.PeekReview()
	assert.False(t, ok)

	require.NoError(t, s.Advance(ReviewEnqueued{CardID: "card-1"}))
	require.NoError(t, s.Advance(ReviewEnqueued{CardID: "card-2"}))

	front, ok := s.PeekReview()
	require.True(t, ok)
	assert.Equal(t, "card-1", front)

	require.NoError(t, s.Advance(ReviewDequeued{}))
	front, _ = s.PeekReview()
	assert.Equal(t, "card-2", front)

	require.NoError(t, s.Advance(ReviewDequeued{}))
	err := s.Advance(ReviewDequeued{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))

	err = s.Advance(ReviewEnqueued{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestAdvanceOrderChangedCopiesInput(t *testing.T) {
	s := newState(t)

	order := []string{"b", "a", "b"}
	require.NoError(t, s.Advance(OrderChanged{Order: order}))
	assert.Equal(t, []string{"b", "a", "b"}, s.SectionOrder, "duplicates are stored verbatim")

	order[0] = "mutated"
	assert.Equal(t, "b", s.SectionOrder[0], "stored order must not alias the input")
}

func TestAdvanceGoalChanged(t *testing.T) {
	s := newState(t)

	goal, err := valueobjects.NewDailyGoal(30)
	require.NoError(t, err)
	require.NoError(t, s.Advance(GoalChanged{Goal: goal}))
	assert.Equal(t, 30, s.DailyGoal)
}
