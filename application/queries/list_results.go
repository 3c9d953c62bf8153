package queries

import (
	"context"

	"learnengine/application/services"
	"learnengine/domain/core/entities"
	"learnengine/domain/core/valueobjects"
	"learnengine/pkg/utils"
)

// ListResultsQuery lists a user's attempt history, newest first.
type ListResultsQuery struct {
	DomainID string `json:"domain_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	Limit    int    `json:"limit" validate:"min=0,max=200"`
}

// Validate checks the query's invariants.
func (q ListResultsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListResultsHandler handles the ListResultsQuery
type ListResultsHandler struct {
	stats *services.StatsService
}

// NewListResultsHandler creates a new handler instance
func NewListResultsHandler(stats *services.StatsService) *ListResultsHandler {
	return &ListResultsHandler{stats: stats}
}

// Handle resolves the result listing.
func (h *ListResultsHandler) Handle(ctx context.Context, q ListResultsQuery) ([]entities.LearnResult, error) {
	key, err := valueobjects.NewStateKey(q.DomainID, q.UserID)
	if err != nil {
		return nil, err
	}
	return h.stats.ListResults(ctx, key, q.Limit)
}
