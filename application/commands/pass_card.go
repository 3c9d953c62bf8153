package commands

import (
	"context"

	"learnengine/application/services"
	"learnengine/domain/core/entities"
	"learnengine/domain/core/valueobjects"
	"learnengine/pkg/observability"
	"learnengine/pkg/utils"

	"go.uber.org/zap"
)

// PassCardCommand records one completed attempt on a card.
type PassCardCommand struct {
	DomainID      string                  `json:"domain_id" validate:"required"`
	UserID        string                  `json:"user_id" validate:"required"`
	Branch        string                  `json:"branch"`
	// CardID is optional; when empty the current lesson card is passed.
	CardID string `json:"card_id"`
	NodeID string `json:"node_id"`
	AnswerHistory []entities.AnswerRecord `json:"answer_history" validate:"max=500"`
	TotalTimeMs   int64                   `json:"total_time" validate:"min=0"`
	NoImpression  bool                    `json:"no_impression"`
}

// Validate checks the command's invariants.
func (c PassCardCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// PassCardHandler handles the PassCardCommand
type PassCardHandler struct {
	progression *services.ProgressionService
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewPassCardHandler creates a new handler instance
func NewPassCardHandler(progression *services.ProgressionService, metrics *observability.Metrics, logger *zap.Logger) *PassCardHandler {
	return &PassCardHandler{
		progression: progression,
		metrics:     metrics,
		logger:      logger,
	}
}

// Handle executes the pass transition and returns its outcome.
func (h *PassCardHandler) Handle(ctx context.Context, cmd PassCardCommand) (*services.PassOutcome, error) {
	key, err := valueobjects.NewStateKey(cmd.DomainID, cmd.UserID)
	if err != nil {
		return nil, err
	}

	outcome, err := h.progression.PassCard(ctx, key, services.PassInput{
		Branch:        cmd.Branch,
		CardID:        cmd.CardID,
		NodeID:        cmd.NodeID,
		AnswerHistory: cmd.AnswerHistory,
		TotalTimeMs:   cmd.TotalTimeMs,
		NoImpression:  cmd.NoImpression,
	})
	if err != nil {
		return nil, err
	}

	if outcome.Passed {
		h.metrics.IncrementCounter(ctx, "CardPassed", map[string]string{"DomainID": cmd.DomainID})
	}
	h.logger.Info("Card pass processed",
		zap.String("domainID", cmd.DomainID),
		zap.String("userID", cmd.UserID),
		zap.String("cardID", cmd.CardID),
		zap.Bool("passed", outcome.Passed),
		zap.Bool("enqueued", outcome.Enqueued),
	)
	return outcome, nil
}
