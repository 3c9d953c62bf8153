package services

import (
	"context"
	"time"

	"learnengine/application/ports"
	"learnengine/domain/core/entities"
	"learnengine/domain/core/valueobjects"
	"learnengine/pkg/utils"

	"go.uber.org/zap"
)

// StatsSummary is the consumption overview for one user in one domain.
type StatsSummary struct {
	Today     *entities.DailyStats `json:"today"`
	Streak    int                  `json:"streak"`
	DailyGoal int                  `json:"dailyGoal"`
	GoalMet   bool                 `json:"goalMet"`
}

// StatsService reads daily counters and derives the practice streak.
// All day arithmetic is UTC; a streak is the run of consecutive UTC days
// with at least one recorded result, ending today or yesterday.
type StatsService struct {
	stats   ports.StatsRepository
	results ports.LearnResultRepository
	states  ports.LearnStateRepository
	logger  *zap.Logger
}

// NewStatsService creates a stats service.
func NewStatsService(stats ports.StatsRepository, results ports.LearnResultRepository, states ports.LearnStateRepository, logger *zap.Logger) *StatsService {
	return &StatsService{
		stats:   stats,
		results: results,
		states:  states,
		logger:  logger,
	}
}

// GetSummary assembles today's counters, the goal check and the streak.
func (s *StatsService) GetSummary(ctx context.Context, key valueobjects.StateKey) (*StatsSummary, error) {
	now := time.Now()

	today, err := s.stats.GetDay(ctx, key.DomainID, key.UserID, utils.UTCDate(now))
	if err != nil {
		return nil, err
	}

	state, err := s.states.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	streak, err := s.Streak(ctx, key, now)
	if err != nil {
		return nil, err
	}

	return &StatsSummary{
		Today:     today,
		Streak:    streak,
		DailyGoal: state.DailyGoal,
		GoalMet:   today.Cards >= state.DailyGoal,
	}, nil
}

// Streak counts consecutive practiced UTC days scanning backward from now.
// A day without practice today does not break the streak until tomorrow:
// the scan may start at yesterday, but any earlier gap ends it.
func (s *StatsService) Streak(ctx context.Context, key valueobjects.StateKey, now time.Time) (int, error) {
	dates, err := s.results.PracticeDates(ctx, key.DomainID, key.UserID)
	if err != nil {
		return 0, err
	}
	if len(dates) == 0 {
		return 0, nil
	}

	start := 0
	if _, ok := dates[utils.UTCDate(now)]; !ok {
		start = 1
	}

	streak := 0
	for n := start; ; n++ {
		if _, ok := dates[utils.UTCDateOffset(now, n)]; !ok {
			break
		}
		streak++
	}
	return streak, nil
}

// ListResults returns the newest results for a user, bounded by limit.
func (s *StatsService) ListResults(ctx context.Context, key valueobjects.StateKey, limit int) ([]entities.LearnResult, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.results.ListByUser(ctx, key.DomainID, key.UserID, limit)
}
