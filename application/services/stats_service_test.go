package services

import (
	"context"
	"testing"
	"time"

	"learnengine/domain/core/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (env *testEnv) recordResultAt(t *testing.T, createdAt time.Time) {
	t.Helper()
	err := env.results.Append(context.Background(), &entities.LearnResult{
		ID:        "res-" + createdAt.Format(time.RFC3339Nano),
		DomainID:  testDomain,
		UserID:    testUser,
		CardID:    "card-a",
		Score:     5,
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
}

func TestStreakCountsConsecutiveDays(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

	// Practiced today, yesterday, two days ago, then a gap, then one more.
	for _, offset := range []int{0, 1, 2, 4} {
		env.recordResultAt(t, now.AddDate(0, 0, -offset))
	}

	streak, err := env.statsSvc.Streak(context.Background(), env.stateKey(t), now)
	require.NoError(t, err)
	assert.Equal(t, 3, streak)
}

func TestStreakGraceWhenTodayNotYetPracticed(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

	// No practice today; yesterday and the day before still count.
	env.recordResultAt(t, now.AddDate(0, 0, -1))
	env.recordResultAt(t, now.AddDate(0, 0, -2))

	streak, err := env.statsSvc.Streak(context.Background(), env.stateKey(t), now)
	require.NoError(t, err)
	assert.Equal(t, 2, streak)
}

func TestStreakBrokenByGap(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

	// Last practice was two days ago: the grace window only reaches back
	// to yesterday, so the streak is over.
	env.recordResultAt(t, now.AddDate(0, 0, -2))
	env.recordResultAt(t, now.AddDate(0, 0, -3))

	streak, err := env.statsSvc.Streak(context.Background(), env.stateKey(t), now)
	require.NoError(t, err)
	assert.Equal(t, 0, streak)
}

func TestStreakEmptyHistory(t *testing.T) {
	env := newTestEnv(t)

	streak, err := env.statsSvc.Streak(context.Background(), env.stateKey(t), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, streak)
}

func TestGetSummaryGoalCheck(t *testing.T) {
	env := newTestEnv(t)
	env.seedFixture(testTime())
	ctx := context.Background()
	key := env.stateKey(t)

	require.NoError(t, env.progression.SetDailyGoal(ctx, key, 2))

	summary, err := env.statsSvc.GetSummary(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.DailyGoal)
	assert.False(t, summary.GoalMet)
	assert.Equal(t, 0, summary.Today.Cards)

	env.passCard(t, "card-a", answer("p-a1"))
	env.passCard(t, "card-b", answer("p-b"))

	summary, err = env.statsSvc.GetSummary(ctx, key)
	require.NoError(t, err)
	assert.True(t, summary.GoalMet)
	assert.Equal(t, 2, summary.Today.Cards)
	assert.Equal(t, 1, summary.Streak)
}

func TestListResultsNewestFirstWithLimit(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		env.recordResultAt(t, now.Add(time.Duration(i)*time.Minute))
	}

	results, err := env.statsSvc.ListResults(context.Background(), env.stateKey(t), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].CreatedAt.After(results[1].CreatedAt))

	// Out-of-range limits fall back to the default page size.
	results, err = env.statsSvc.ListResults(context.Background(), env.stateKey(t), -1)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}
