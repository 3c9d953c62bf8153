package commands

import (
	"context"

	"learnengine/application/services"
	"learnengine/domain/core/valueobjects"
	"learnengine/pkg/utils"

	"go.uber.org/zap"
)

// ReorderSectionsCommand replaces the user's section order. The list is
// stored verbatim, duplicates included.
type ReorderSectionsCommand struct {
	DomainID string   `json:"domain_id" validate:"required"`
	UserID   string   `json:"user_id" validate:"required"`
	Order    []string `json:"order" validate:"required,min=1,max=500,dive,min=1"`
}

// Validate checks the command's invariants.
func (c ReorderSectionsCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ReorderSectionsHandler handles the ReorderSectionsCommand
type ReorderSectionsHandler struct {
	progression *services.ProgressionService
	logger      *zap.Logger
}

// NewReorderSectionsHandler creates a new handler instance
func NewReorderSectionsHandler(progression *services.ProgressionService, logger *zap.Logger) *ReorderSectionsHandler {
	return &ReorderSectionsHandler{
		progression: progression,
		logger:      logger,
	}
}

// Handle persists the new section order.
func (h *ReorderSectionsHandler) Handle(ctx context.Context, cmd ReorderSectionsCommand) error {
	key, err := valueobjects.NewStateKey(cmd.DomainID, cmd.UserID)
	if err != nil {
		return err
	}
	if err := h.progression.ReorderSections(ctx, key, cmd.Order); err != nil {
		return err
	}
	h.logger.Info("Section order replaced",
		zap.String("domainID", cmd.DomainID),
		zap.String("userID", cmd.UserID),
		zap.Int("sections", len(cmd.Order)),
	)
	return nil
}
