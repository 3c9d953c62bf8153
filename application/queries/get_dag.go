package queries

import (
	"context"

	"learnengine/application/services"
	"learnengine/domain/core/aggregates"
	"learnengine/pkg/utils"
)

// GetDAGQuery fetches the materialized DAG for a domain, rebuilding
// transparently when the cached entry is stale.
type GetDAGQuery struct {
	DomainID string `json:"domain_id" validate:"required"`
	Branch   string `json:"branch"`
}

// Validate checks the query's invariants.
func (q GetDAGQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetDAGHandler handles the GetDAGQuery
type GetDAGHandler struct {
	dags *services.DAGService
}

// NewGetDAGHandler creates a new handler instance
func NewGetDAGHandler(dags *services.DAGService) *GetDAGHandler {
	return &GetDAGHandler{dags: dags}
}

// Handle resolves the DAG payload.
func (h *GetDAGHandler) Handle(ctx context.Context, q GetDAGQuery) (*aggregates.DAGDoc, error) {
	return h.dags.GetDAG(ctx, q.DomainID, q.Branch)
}
