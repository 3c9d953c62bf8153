package commands

import (
	"context"

	"learnengine/application/services"
	"learnengine/domain/core/valueobjects"
	"learnengine/pkg/utils"

	"go.uber.org/zap"
)

// SetDailyGoalCommand sets the user's cards-per-day target.
type SetDailyGoalCommand struct {
	DomainID string `json:"domain_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	Goal     int    `json:"goal" validate:"required,min=1,max=500"`
}

// Validate checks the command's invariants.
func (c SetDailyGoalCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SetDailyGoalHandler handles the SetDailyGoalCommand
type SetDailyGoalHandler struct {
	progression *services.ProgressionService
	logger      *zap.Logger
}

// NewSetDailyGoalHandler creates a new handler instance
func NewSetDailyGoalHandler(progression *services.ProgressionService, logger *zap.Logger) *SetDailyGoalHandler {
	return &SetDailyGoalHandler{
		progression: progression,
		logger:      logger,
	}
}

// Handle persists the new daily goal.
func (h *SetDailyGoalHandler) Handle(ctx context.Context, cmd SetDailyGoalCommand) error {
	key, err := valueobjects.NewStateKey(cmd.DomainID, cmd.UserID)
	if err != nil {
		return err
	}
	if err := h.progression.SetDailyGoal(ctx, key, cmd.Goal); err != nil {
		return err
	}
	h.logger.Info("Daily goal updated",
		zap.String("domainID", cmd.DomainID),
		zap.String("userID", cmd.UserID),
		zap.Int("goal", cmd.Goal),
	)
	return nil
}
