package handlers

import (
	"net/http"
	"strconv"

	"learnengine/application/commands"
	"learnengine/application/commands/bus"
	"learnengine/application/queries"
	querybus "learnengine/application/queries/bus"
	"learnengine/pkg/auth"
	"learnengine/pkg/common"
	pkgerrors "learnengine/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20 // 1MB

// LearnHandler serves the study endpoints for a domain: section listing,
// lesson resolution, pass recording, goals, stats and DAG access.
type LearnHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	passCards  *commands.PassCardHandler
	rebuilds   *commands.RebuildDAGHandler
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewLearnHandler creates a new learn handler
func NewLearnHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	passCards *commands.PassCardHandler,
	rebuilds *commands.RebuildDAGHandler,
	logger *zap.Logger,
) *LearnHandler {
	return &LearnHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		passCards:  passCards,
		rebuilds:   rebuilds,
		errors:     pkgerrors.NewErrorHandler(logger, false),
		logger:     logger,
	}
}

// GetSections handles GET /domains/{domainID}/learn/sections
func (h *LearnHandler) GetSections(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	q := queries.GetSectionsQuery{
		DomainID:  chi.URLParam(r, "domainID"),
		UserID:    userID,
		Branch:    r.URL.Query().Get("branch"),
		SectionID: r.URL.Query().Get("sectionId"),
	}
	idx, ok := h.parseSectionIndex(w, r)
	if !ok {
		return
	}
	q.SectionIndex = idx

	if err := q.Validate(); err != nil {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetLesson handles GET /domains/{domainID}/learn/lesson
func (h *LearnHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	q := queries.GetLessonQuery{
		DomainID:  chi.URLParam(r, "domainID"),
		UserID:    userID,
		Branch:    r.URL.Query().Get("branch"),
		SectionID: r.URL.Query().Get("sectionId"),
		Mode:      r.URL.Query().Get("mode"),
		NodeID:    r.URL.Query().Get("node"),
	}
	idx, ok := h.parseSectionIndex(w, r)
	if !ok {
		return
	}
	q.SectionIndex = idx

	if err := q.Validate(); err != nil {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// PassCard handles POST /domains/{domainID}/learn/pass
func (h *LearnHandler) PassCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var cmd commands.PassCardCommand
	if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	cmd.DomainID = chi.URLParam(r, "domainID")
	cmd.UserID = userID

	if err := cmd.Validate(); err != nil {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.passCards.Handle(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, outcome)
}

// ReorderSections handles PUT /domains/{domainID}/learn/sections/order
func (h *LearnHandler) ReorderSections(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var cmd commands.ReorderSectionsCommand
	if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	cmd.DomainID = chi.URLParam(r, "domainID")
	cmd.UserID = userID

	if err := cmd.Validate(); err != nil {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"sections": len(cmd.Order),
	})
}

// SetDailyGoal handles PUT /domains/{domainID}/learn/goal
func (h *LearnHandler) SetDailyGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var cmd commands.SetDailyGoalCommand
	if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	cmd.DomainID = chi.URLParam(r, "domainID")
	cmd.UserID = userID

	if err := cmd.Validate(); err != nil {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"goal": cmd.Goal,
	})
}

// GetStats handles GET /domains/{domainID}/learn/stats
func (h *LearnHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	q := queries.GetStatsQuery{
		DomainID: chi.URLParam(r, "domainID"),
		UserID:   userID,
	}
	if err := q.Validate(); err != nil {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ListResults handles GET /domains/{domainID}/learn/results
func (h *LearnHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	q := queries.ListResultsQuery{
		DomainID: chi.URLParam(r, "domainID"),
		UserID:   userID,
		Limit:    common.ExtractPaginationParams(r).PageSize,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.errors.HandleStatus(w, r, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = limit
	}

	if err := q.Validate(); err != nil {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetDAG handles GET /domains/{domainID}/learn/dag
func (h *LearnHandler) GetDAG(w http.ResponseWriter, r *http.Request) {
	q := queries.GetDAGQuery{
		DomainID: chi.URLParam(r, "domainID"),
		Branch:   r.URL.Query().Get("branch"),
	}
	if err := q.Validate(); err != nil {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// RebuildDAG handles POST /domains/{domainID}/learn/dag/rebuild
func (h *LearnHandler) RebuildDAG(w http.ResponseWriter, r *http.Request) {
	cmd := commands.RebuildDAGCommand{
		DomainID: chi.URLParam(r, "domainID"),
		Branch:   r.URL.Query().Get("branch"),
	}
	if err := cmd.Validate(); err != nil {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.rebuilds.Handle(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, doc)
}

// requireUser pulls the authenticated user out of the request context.
func (h *LearnHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil || user.UserID == "" {
		h.errors.HandleStatus(w, r, http.StatusUnauthorized, "Missing user context")
		return "", false
	}
	return user.UserID, true
}

// parseSectionIndex reads the optional section query parameter. A missing
// parameter returns a nil pointer so the saved cursor applies.
func (h *LearnHandler) parseSectionIndex(w http.ResponseWriter, r *http.Request) (*int, bool) {
	raw := r.URL.Query().Get("section")
	if raw == "" {
		return nil, true
	}
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, "section must be a non-negative integer")
		return nil, false
	}
	return &idx, true
}
