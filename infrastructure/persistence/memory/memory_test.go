package memory

import (
	"context"
	"testing"

	"learnengine/domain/core/valueobjects"
	pkgerrors "learnengine/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLearnStateGetCreatesLazily(t *testing.T) {
	repo := NewLearnStateRepository()
	key, err := valueobjects.NewStateKey("dom-1", "user-1")
	require.NoError(t, err)

	state, err := repo.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, -1, state.SectionIndex)
	assert.Equal(t, int64(1), state.StateVersion)

	again, err := repo.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, state.StateVersion, again.StateVersion)
}

func TestLearnStateGetReturnsCopies(t *testing.T) {
	repo := NewLearnStateRepository()
	key, err := valueobjects.NewStateKey("dom-1", "user-1")
	require.NoError(t, err)
	ctx := context.Background()

	state, err := repo.Get(ctx, key)
	require.NoError(t, err)
	state.ReviewQueue = append(state.ReviewQueue, "card-x")
	state.DailyGoal = 99

	fresh, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, fresh.ReviewQueue, "mutating a read copy must not touch the store")
	assert.Equal(t, valueobjects.DefaultDailyGoal, fresh.DailyGoal)
}

func TestLearnStateUpdateCAS(t *testing.T) {
	repo := NewLearnStateRepository()
	key, err := valueobjects.NewStateKey("dom-1", "user-1")
	require.NoError(t, err)
	ctx := context.Background()

	// Two readers observe version 1.
	a, err := repo.Get(ctx, key)
	require.NoError(t, err)
	b, err := repo.Get(ctx, key)
	require.NoError(t, err)

	a.DailyGoal = 20
	readVersion := a.StateVersion
	a.StateVersion++
	require.NoError(t, repo.Update(ctx, a, readVersion))

	// The second writer's read version is now stale.
	b.DailyGoal = 30
	readVersion = b.StateVersion
	b.StateVersion++
	err = repo.Update(ctx, b, readVersion)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))

	// The first write won.
	current, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 20, current.DailyGoal)
	assert.Equal(t, int64(2), current.StateVersion)
}

func TestLearnStateUpdateCopiesSlices(t *testing.T) {
	repo := NewLearnStateRepository()
	key, err := valueobjects.NewStateKey("dom-1", "user-1")
	require.NoError(t, err)
	ctx := context.Background()

	state, err := repo.Get(ctx, key)
	require.NoError(t, err)
	state.SectionOrder = []string{"b", "a"}
	readVersion := state.StateVersion
	state.StateVersion++
	require.NoError(t, repo.Update(ctx, state, readVersion))

	state.SectionOrder[0] = "mutated"
	stored, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, stored.SectionOrder)
}
