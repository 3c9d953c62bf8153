package queries

import (
	"context"

	"learnengine/application/services"
	"learnengine/domain/core/valueobjects"
	"learnengine/pkg/utils"
)

// GetSectionsQuery lists a user's sections with pass counts. Explicit
// selection parameters move the cursor as a side effect of the read.
type GetSectionsQuery struct {
	DomainID     string `json:"domain_id" validate:"required"`
	UserID       string `json:"user_id" validate:"required"`
	Branch       string `json:"branch"`
	SectionIndex *int   `json:"section_index"`
	SectionID    string `json:"section_id"`
}

// Validate checks the query's invariants.
func (q GetSectionsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetSectionsHandler handles the GetSectionsQuery
type GetSectionsHandler struct {
	progression *services.ProgressionService
}

// NewGetSectionsHandler creates a new handler instance
func NewGetSectionsHandler(progression *services.ProgressionService) *GetSectionsHandler {
	return &GetSectionsHandler{progression: progression}
}

// Handle resolves the section listing.
func (h *GetSectionsHandler) Handle(ctx context.Context, q GetSectionsQuery) (*services.SectionsPage, error) {
	key, err := valueobjects.NewStateKey(q.DomainID, q.UserID)
	if err != nil {
		return nil, err
	}
	return h.progression.GetSections(ctx, key, services.LessonParams{
		Branch:       q.Branch,
		SectionIndex: q.SectionIndex,
		SectionID:    q.SectionID,
	})
}
