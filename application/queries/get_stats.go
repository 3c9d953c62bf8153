package queries

import (
	"context"

	"learnengine/application/services"
	"learnengine/domain/core/valueobjects"
	"learnengine/pkg/utils"
)

// GetStatsQuery asks for today's counters, the goal check and the streak.
type GetStatsQuery struct {
	DomainID string `json:"domain_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
}

// Validate checks the query's invariants.
func (q GetStatsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetStatsHandler handles the GetStatsQuery
type GetStatsHandler struct {
	stats *services.StatsService
}

// NewGetStatsHandler creates a new handler instance
func NewGetStatsHandler(stats *services.StatsService) *GetStatsHandler {
	return &GetStatsHandler{stats: stats}
}

// Handle resolves the stats summary.
func (h *GetStatsHandler) Handle(ctx context.Context, q GetStatsQuery) (*services.StatsSummary, error) {
	key, err := valueobjects.NewStateKey(q.DomainID, q.UserID)
	if err != nil {
		return nil, err
	}
	return h.stats.GetSummary(ctx, key)
}
