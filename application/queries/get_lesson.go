package queries

import (
	"context"

	"learnengine/application/services"
	"learnengine/domain/core/valueobjects"
	"learnengine/pkg/utils"
)

// GetLessonQuery asks for the next card to study. Explicit section
// parameters override the saved cursor; Mode narrows the scan.
type GetLessonQuery struct {
	DomainID     string `json:"domain_id" validate:"required"`
	UserID       string `json:"user_id" validate:"required"`
	Branch       string `json:"branch"`
	SectionIndex *int   `json:"section_index"`
	SectionID    string `json:"section_id"`
	Mode         string `json:"mode" validate:"omitempty,oneof=today node"`
	NodeID       string `json:"node_id"`
}

// Validate checks the query's invariants.
func (q GetLessonQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetLessonHandler handles the GetLessonQuery
type GetLessonHandler struct {
	progression *services.ProgressionService
}

// NewGetLessonHandler creates a new handler instance
func NewGetLessonHandler(progression *services.ProgressionService) *GetLessonHandler {
	return &GetLessonHandler{progression: progression}
}

// Handle resolves the lesson.
func (h *GetLessonHandler) Handle(ctx context.Context, q GetLessonQuery) (*services.Lesson, error) {
	key, err := valueobjects.NewStateKey(q.DomainID, q.UserID)
	if err != nil {
		return nil, err
	}
	return h.progression.GetLesson(ctx, key, services.LessonParams{
		Branch:       q.Branch,
		SectionIndex: q.SectionIndex,
		SectionID:    q.SectionID,
		Mode:         q.Mode,
		NodeID:       q.NodeID,
	})
}
