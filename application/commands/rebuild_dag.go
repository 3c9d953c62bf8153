package commands

import (
	"context"
	"time"

	"learnengine/application/services"
	"learnengine/domain/core/aggregates"
	"learnengine/pkg/observability"
	"learnengine/pkg/utils"

	"go.uber.org/zap"
)

// RebuildDAGCommand forces a regeneration of a domain's DAG, bypassing
// staleness checks. Admin-only.
type RebuildDAGCommand struct {
	DomainID string `json:"domain_id" validate:"required"`
	Branch   string `json:"branch"`
}

// Validate checks the command's invariants.
func (c RebuildDAGCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// RebuildDAGHandler handles the RebuildDAGCommand
type RebuildDAGHandler struct {
	dags    *services.DAGService
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewRebuildDAGHandler creates a new handler instance
func NewRebuildDAGHandler(dags *services.DAGService, metrics *observability.Metrics, logger *zap.Logger) *RebuildDAGHandler {
	return &RebuildDAGHandler{
		dags:    dags,
		metrics: metrics,
		logger:  logger,
	}
}

// Handle regenerates the DAG and returns the fresh payload.
func (h *RebuildDAGHandler) Handle(ctx context.Context, cmd RebuildDAGCommand) (*aggregates.DAGDoc, error) {
	start := time.Now()
	doc, err := h.dags.Rebuild(ctx, cmd.DomainID, cmd.Branch)
	if err != nil {
		return nil, err
	}
	h.metrics.RecordDuration(ctx, "DAGRebuildDuration", time.Since(start), map[string]string{"DomainID": cmd.DomainID})
	h.logger.Info("DAG rebuilt on request",
		zap.String("domainID", cmd.DomainID),
		zap.String("branch", doc.Key.Branch),
		zap.Int("sections", len(doc.Sections)),
		zap.Int("nodes", len(doc.DAG)),
	)
	return doc, nil
}
