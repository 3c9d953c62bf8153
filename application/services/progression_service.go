package services

import (
	"context"
	"time"

	"learnengine/application/ports"
	"learnengine/domain/config"
	"learnengine/domain/core/aggregates"
	"learnengine/domain/core/entities"
	"learnengine/domain/core/valueobjects"
	"learnengine/domain/events"
	pkgerrors "learnengine/pkg/errors"
	"learnengine/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// casRetries bounds the re-read/re-apply loop after a version conflict.
const casRetries = 3

// ProgressionService drives a user's movement through the DAG: section
// selection and ordering, the in-lesson cursor, the pass transition and
// the review queue.
//
// All state mutations go through LearnState.Advance and are persisted
// with a compare-and-swap; a conflicting writer forces a re-read and
// re-apply rather than a lost update.
type ProgressionService struct {
	dags      *DAGService
	states    ports.LearnStateRepository
	results   ports.LearnResultRepository
	progress  ports.LearnProgressRepository
	stats     ports.StatsRepository
	publisher ports.EventPublisher
	cfg       *config.DomainConfig
	logger    *zap.Logger
}

// NewProgressionService creates a progression service.
func NewProgressionService(
	dags *DAGService,
	states ports.LearnStateRepository,
	results ports.LearnResultRepository,
	progress ports.LearnProgressRepository,
	stats ports.StatsRepository,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *ProgressionService {
	return &ProgressionService{
		dags:      dags,
		states:    states,
		results:   results,
		progress:  progress,
		stats:     stats,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// SectionView is one section as presented to a user: canonical content
// plus per-user pass counts and the lock flag.
type SectionView struct {
	Index       int    `json:"index"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	CardCount   int    `json:"cardCount"`
	PassedCount int    `json:"passedCount"`
	Current     bool   `json:"current"`
}

// SectionsPage is the full section listing for a user.
type SectionsPage struct {
	Sections     []SectionView `json:"sections"`
	CurrentIndex int           `json:"currentIndex"`
	CurrentID    string        `json:"currentId"`
	Position     int           `json:"position"`
	Total        int           `json:"total"`
}

// Lesson is the next thing to study: the chosen card with its surrounding
// cursor info, or a completion marker when the section ran dry.
type Lesson struct {
	SectionIndex int            `json:"sectionIndex"`
	SectionID    string         `json:"sectionId"`
	Source       string         `json:"source"` // review | node | today | section
	Card         *entities.Card `json:"card,omitempty"`
	NodeID       string         `json:"nodeId,omitempty"`
	Position     int            `json:"position"`
	Total        int            `json:"total"`
	Completed    bool           `json:"completed"`
	TodayCards   int            `json:"todayCards"`
	DailyGoal    int            `json:"dailyGoal"`
}

// LessonParams selects what to study. Explicit section parameters override
// saved state; Mode narrows the card scan.
type LessonParams struct {
	Branch       string
	SectionIndex *int
	SectionID    string
	Mode         string
	NodeID       string
}

// PassInput is one completed attempt arriving from the client.
type PassInput struct {
	Branch        string
	CardID        string
	NodeID        string
	AnswerHistory []entities.AnswerRecord
	TotalTimeMs   int64
	// NoImpression marks a "seen it, can't judge yet" response: the card
	// goes to the review queue instead of being passed.
	NoImpression bool
}

// PassOutcome reports what the pass transition did.
type PassOutcome struct {
	Result       *entities.LearnResult `json:"result,omitempty"`
	Passed       bool                  `json:"passed"`
	NodeComplete bool                  `json:"nodeComplete"`
	Enqueued     bool                  `json:"enqueued"`
}

// GetSections lists the sections in the user's order, annotated with pass
// counts and the current cursor. First call for a user defaults the cursor
// to section 0 and persists that choice.
func (s *ProgressionService) GetSections(ctx context.Context, key valueobjects.StateKey, params LessonParams) (*SectionsPage, error) {
	doc, err := s.dags.GetDAG(ctx, key.DomainID, params.Branch)
	if err != nil {
		return nil, err
	}
	state, err := s.states.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	ordered := ApplyUserSectionOrder(doc.Sections, state.SectionOrder)
	idx, err := s.resolveSection(ctx, key, state, ordered, params)
	if err != nil {
		return nil, err
	}

	passed, err := s.progress.ListPassed(ctx, key.DomainID, key.UserID)
	if err != nil {
		return nil, err
	}

	page := &SectionsPage{
		CurrentIndex: idx,
		CurrentID:    ordered[idx].ID,
		Position:     state.ProgressPosition,
		Total:        len(ordered),
	}
	for i, sec := range ordered {
		cards := doc.SubtreeCards(sec.ID)
		passedCount := 0
		for _, c := range cards {
			if passed[c.ID] {
				passedCount++
			}
		}
		page.Sections = append(page.Sections, SectionView{
			Index:       i,
			ID:          sec.ID,
			Title:       sec.Title,
			CardCount:   len(cards),
			PassedCount: passedCount,
			Current:     i == idx,
		})
	}
	return page, nil
}

// GetLesson picks the next card to study. Scan order: review queue first,
// then the mode-scoped card list, honoring the linear unlock chain (first
// unpassed card with problems, in subtree order).
func (s *ProgressionService) GetLesson(ctx context.Context, key valueobjects.StateKey, params LessonParams) (*Lesson, error) {
	doc, err := s.dags.GetDAG(ctx, key.DomainID, params.Branch)
	if err != nil {
		return nil, err
	}
	state, err := s.states.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	ordered := ApplyUserSectionOrder(doc.Sections, state.SectionOrder)
	idx, err := s.resolveSection(ctx, key, state, ordered, params)
	if err != nil {
		return nil, err
	}

	passed, err := s.progress.ListPassed(ctx, key.DomainID, key.UserID)
	if err != nil {
		return nil, err
	}

	lesson := &Lesson{
		SectionIndex: idx,
		SectionID:    ordered[idx].ID,
		DailyGoal:    state.DailyGoal,
	}
	if s.cfg.EnableTodayMode {
		today, err := s.stats.GetDay(ctx, key.DomainID, key.UserID, utils.UTCDate(time.Now()))
		if err != nil {
			return nil, err
		}
		lesson.TodayCards = today.Cards
	}

	// Review queue outranks every mode.
	if s.cfg.EnableReviewQueue {
		if cardID, ok := state.PeekReview(); ok {
			if node, card := findCard(doc, cardID); card != nil {
				lesson.Source = "review"
				lesson.Card = card
				lesson.NodeID = node.ID
				s.saveCursor(ctx, key, state, aggregates.CursorMoved{Mode: state.LessonMode, NodeID: node.ID})
				return lesson, nil
			}
			// Card vanished from the DAG; drop the queue entry.
			s.saveCursor(ctx, key, state, aggregates.ReviewDequeued{})
		}
	}

	switch params.Mode {
	case aggregates.LessonModeNode:
		if params.NodeID == "" {
			return nil, pkgerrors.NewValidationError("node lesson mode requires a node ID")
		}
		node := doc.NodeByID(params.NodeID)
		if node == nil {
			return nil, pkgerrors.NewNotFoundError("node " + params.NodeID)
		}
		s.fillFromCards(lesson, "node", node.ID, node.Cards, passed)
		s.saveCursor(ctx, key, state, aggregates.CursorMoved{Mode: aggregates.LessonModeNode, NodeID: node.ID, CardIndex: lesson.Position})
		return lesson, nil

	case aggregates.LessonModeToday:
		if !s.cfg.EnableTodayMode {
			return nil, pkgerrors.NewValidationError("today mode is disabled")
		}
		// Today mode stays inside the current section: qualifying cards
		// only, no spill into the next section when this one runs dry.
		var cards []entities.Card
		for _, c := range doc.SubtreeCards(ordered[idx].ID) {
			if c.HasProblems() {
				cards = append(cards, c)
			}
		}
		s.fillFromCards(lesson, "today", "", cards, passed)
		if lesson.Card != nil {
			if node, _ := findCard(doc, lesson.Card.ID); node != nil {
				lesson.NodeID = node.ID
			}
		} else {
			lesson.Completed = true
		}
		s.saveCursor(ctx, key, state, aggregates.CursorMoved{Mode: aggregates.LessonModeToday, CardIndex: lesson.Position})
		return lesson, nil
	}

	// Default: scan the selected section, auto-advancing when it ran dry.
	// Section 0 auto-advances only once its qualifying cards are all
	// passed; a fresh user whose first section has nothing to study sees
	// the completion marker instead of silently starting at "1 of N".
	for {
		section := ordered[idx]
		cards := doc.SubtreeCards(section.ID)
		s.fillFromCards(lesson, "section", "", cards, passed)
		lesson.SectionIndex = idx
		lesson.SectionID = section.ID
		if lesson.Card != nil {
			if node, _ := findCard(doc, lesson.Card.ID); node != nil {
				lesson.NodeID = node.ID
			}
			s.saveCursor(ctx, key, state, aggregates.CursorMoved{Mode: aggregates.LessonModeDefault, CardIndex: lesson.Position})
			return lesson, nil
		}
		hadQualifying := false
		for i := range cards {
			if cards[i].HasProblems() {
				hadQualifying = true
				break
			}
		}
		if idx+1 >= len(ordered) || (idx == 0 && !hadQualifying) {
			lesson.Completed = true
			return lesson, nil
		}
		next := idx + 1
		ev := aggregates.SectionAdvanced{Index: next, SectionID: ordered[next].ID, SectionCount: len(ordered), HadQualifyingCards: hadQualifying}
		if err := s.updateState(ctx, key, ev); err != nil {
			if pkgerrors.IsConflict(err) {
				lesson.Completed = true
				return lesson, nil
			}
			return nil, err
		}
		s.publishAdvanced(ctx, key, idx, next, ordered[next].ID, len(ordered))
		idx = next
	}
}

// PassCard runs the pass transition: append the result, mark the card
// passed, bump the daily counters, move the cursor, notify subscribers.
// An empty card id resolves to the current lesson card; a no-impression
// response only enqueues the card for review.
func (s *ProgressionService) PassCard(ctx context.Context, key valueobjects.StateKey, in PassInput) (*PassOutcome, error) {
	if in.CardID == "" {
		params := LessonParams{Branch: in.Branch}
		if in.NodeID != "" {
			params.Mode = aggregates.LessonModeNode
			params.NodeID = in.NodeID
		}
		lesson, err := s.GetLesson(ctx, key, params)
		if err != nil {
			return nil, err
		}
		if lesson.Card == nil {
			return nil, pkgerrors.NewNotFoundError("card to pass")
		}
		in.CardID = lesson.Card.ID
	}

	doc, err := s.dags.GetDAG(ctx, key.DomainID, in.Branch)
	if err != nil {
		return nil, err
	}
	node, card := findCard(doc, in.CardID)
	if card == nil {
		return nil, pkgerrors.NewNotFoundError("card " + in.CardID)
	}
	nodeID := in.NodeID
	if nodeID == "" {
		nodeID = node.ID
	}

	if in.NoImpression {
		if !s.cfg.EnableReviewQueue {
			return &PassOutcome{}, nil
		}
		if err := s.updateState(ctx, key, aggregates.ReviewEnqueued{CardID: in.CardID}); err != nil {
			return nil, err
		}
		return &PassOutcome{Enqueued: true}, nil
	}

	now := time.Now()
	result := &entities.LearnResult{
		ID:            uuid.New().String(),
		DomainID:      key.DomainID,
		UserID:        key.UserID,
		CardID:        in.CardID,
		NodeID:        nodeID,
		AnswerHistory: in.AnswerHistory,
		TotalTimeMs:   in.TotalTimeMs,
		Score:         len(in.AnswerHistory) * config.ScorePerAnswer,
		CreatedAt:     now,
	}
	if err := s.results.Append(ctx, result); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to append learn result")
	}

	if err := s.progress.MarkPassed(ctx, &entities.LearnProgress{
		DomainID: key.DomainID,
		UserID:   key.UserID,
		CardID:   in.CardID,
		Passed:   true,
		PassedAt: now,
	}); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to mark card passed")
	}

	nodeComplete, err := s.nodeComplete(ctx, key, node)
	if err != nil {
		s.logger.Warn("Failed to check node completion", zap.String("nodeID", node.ID), zap.Error(err))
		nodeComplete = false
	}

	delta := &entities.DailyStats{
		DomainID:    key.DomainID,
		UserID:      key.UserID,
		Date:        utils.UTCDate(now),
		Cards:       1,
		Problems:    result.DistinctProblemIDs(),
		Practices:   1,
		TotalTimeMs: in.TotalTimeMs,
	}
	if nodeComplete {
		delta.Nodes = 1
	}
	if err := s.stats.IncrementDaily(ctx, delta); err != nil {
		s.logger.Warn("Failed to increment daily stats", zap.Error(err))
	}

	s.moveCursorAfterPass(ctx, key, in.CardID)
	s.publishResultAdded(ctx, key, result)

	return &PassOutcome{Result: result, Passed: true, NodeComplete: nodeComplete}, nil
}

// ReorderSections replaces the per-user section order. The list is stored
// verbatim, duplicates included, and applied at read time.
func (s *ProgressionService) ReorderSections(ctx context.Context, key valueobjects.StateKey, order []string) error {
	if len(order) == 0 {
		return pkgerrors.NewValidationError("section order cannot be empty")
	}
	for _, id := range order {
		if id == "" {
			return pkgerrors.NewValidationError("section order contains an empty ID")
		}
	}
	return s.updateState(ctx, key, aggregates.OrderChanged{Order: order})
}

// SetDailyGoal sets the user's cards-per-day target.
func (s *ProgressionService) SetDailyGoal(ctx context.Context, key valueobjects.StateKey, goal int) error {
	g, err := valueobjects.NewDailyGoal(goal)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return s.updateState(ctx, key, aggregates.GoalChanged{Goal: g})
}

// ApplyUserSectionOrder rebuilds the section list from the user's saved id
// list. Each listed id appends a copy of the matching section with its order
// reassigned to the list position, duplicates kept verbatim; ids absent from
// the canonical set are skipped, and sections the list omits are dropped.
// The input slice and its elements are never mutated.
func ApplyUserSectionOrder(sections []*entities.DAGNode, order []string) []*entities.DAGNode {
	if len(order) == 0 {
		return append([]*entities.DAGNode(nil), sections...)
	}

	byID := make(map[string]*entities.DAGNode, len(sections))
	for _, sec := range sections {
		byID[sec.ID] = sec
	}

	out := make([]*entities.DAGNode, 0, len(order))
	for _, id := range order {
		sec, ok := byID[id]
		if !ok {
			continue
		}
		c := sec.Clone()
		c.Order = len(out)
		out = append(out, c)
	}
	return out
}

// resolveSection applies the selection precedence: explicit index, explicit
// id, saved index, saved id, then section 0. A resolution that differs from
// the saved state is persisted so the next read starts from it.
func (s *ProgressionService) resolveSection(ctx context.Context, key valueobjects.StateKey, state *aggregates.LearnState, ordered []*entities.DAGNode, params LessonParams) (int, error) {
	if len(ordered) == 0 {
		return 0, pkgerrors.NewNotFoundError("sections for domain " + key.DomainID)
	}

	idx := -1
	switch {
	case params.SectionIndex != nil:
		if *params.SectionIndex < 0 || *params.SectionIndex >= len(ordered) {
			return 0, pkgerrors.NewValidationError("section index out of range")
		}
		idx = *params.SectionIndex
	case params.SectionID != "":
		for i, sec := range ordered {
			if sec.ID == params.SectionID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return 0, pkgerrors.NewNotFoundError("section " + params.SectionID)
		}
	case state.SectionIndex >= 0 && state.SectionIndex < len(ordered):
		idx = state.SectionIndex
	case state.SectionID != "":
		for i, sec := range ordered {
			if sec.ID == state.SectionID {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		idx = 0
	}

	if idx != state.SectionIndex || ordered[idx].ID != state.SectionID {
		ev := aggregates.SectionSelected{Index: idx, SectionID: ordered[idx].ID, SectionCount: len(ordered)}
		// Read-path persistence is best effort; a lost race just means the
		// other writer's selection stands.
		if err := s.updateState(ctx, key, ev); err != nil && !pkgerrors.IsConflict(err) {
			return 0, err
		}
		if err := state.Advance(ev); err != nil {
			return 0, err
		}
	}
	return idx, nil
}

// fillFromCards scans cards in unlock order for the first unpassed card
// that has problems, filling the lesson cursor fields.
func (s *ProgressionService) fillFromCards(lesson *Lesson, source, nodeID string, cards []entities.Card, passed map[string]bool) {
	lesson.Source = source
	lesson.NodeID = nodeID
	lesson.Total = len(cards)
	for i := range cards {
		if passed[cards[i].ID] {
			lesson.Position = i + 1
			continue
		}
		if !cards[i].HasProblems() {
			continue
		}
		c := cards[i]
		lesson.Card = &c
		lesson.Position = i
		return
	}
}

// nodeComplete reports whether every card on the node is now passed.
func (s *ProgressionService) nodeComplete(ctx context.Context, key valueobjects.StateKey, node *entities.DAGNode) (bool, error) {
	if len(node.Cards) == 0 {
		return false, nil
	}
	passed, err := s.progress.ListPassed(ctx, key.DomainID, key.UserID)
	if err != nil {
		return false, err
	}
	for _, c := range node.Cards {
		if !passed[c.ID] {
			return false, nil
		}
	}
	return true, nil
}

// moveCursorAfterPass dequeues the card from the review queue when it sits
// at the front and bumps the lesson cursor. Best effort.
func (s *ProgressionService) moveCursorAfterPass(ctx context.Context, key valueobjects.StateKey, cardID string) {
	err := s.withState(ctx, key, func(state *aggregates.LearnState) error {
		if front, ok := state.PeekReview(); ok && front == cardID {
			if err := state.Advance(aggregates.ReviewDequeued{}); err != nil {
				return err
			}
		}
		return state.Advance(aggregates.CursorMoved{
			Mode:      state.LessonMode,
			NodeID:    state.LessonNodeID,
			CardIndex: state.LessonCardIndex + 1,
		})
	})
	if err != nil {
		s.logger.Warn("Failed to move cursor after pass",
			zap.String("cardID", cardID),
			zap.Error(err),
		)
	}
}

// updateState applies one event under the CAS loop.
func (s *ProgressionService) updateState(ctx context.Context, key valueobjects.StateKey, ev aggregates.StateEvent) error {
	return s.withState(ctx, key, func(state *aggregates.LearnState) error {
		return state.Advance(ev)
	})
}

// withState runs read-apply-write with bounded retries on version conflict.
func (s *ProgressionService) withState(ctx context.Context, key valueobjects.StateKey, apply func(*aggregates.LearnState) error) error {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		state, err := s.states.Get(ctx, key)
		if err != nil {
			return err
		}
		readVersion := state.StateVersion
		if err := apply(state); err != nil {
			return err
		}
		state.StateVersion = readVersion + 1
		if err := s.states.Update(ctx, state, readVersion); err != nil {
			if pkgerrors.IsConflict(err) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return lastErr
}

// saveCursor persists a cursor event without failing the read path.
func (s *ProgressionService) saveCursor(ctx context.Context, key valueobjects.StateKey, state *aggregates.LearnState, ev aggregates.StateEvent) {
	if err := s.updateState(ctx, key, ev); err != nil {
		s.logger.Debug("Failed to persist lesson cursor", zap.Error(err))
		return
	}
	// Keep the in-memory copy coherent for the rest of the request.
	if err := state.Advance(ev); err != nil {
		s.logger.Debug("Cursor event rejected in memory", zap.Error(err))
	}
}

func (s *ProgressionService) publishAdvanced(ctx context.Context, key valueobjects.StateKey, from, to int, sectionID string, count int) {
	event := events.NewSectionAdvanced(key.DomainID, key.UserID, sectionID, from, to, count, time.Now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish section advanced event", zap.Error(err))
	}
}

func (s *ProgressionService) publishResultAdded(ctx context.Context, key valueobjects.StateKey, result *entities.LearnResult) {
	event := events.NewLearnResultAdded(key.DomainID, key.UserID, result.CardID, result.NodeID, result.Score, result.CreatedAt)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish learn result event", zap.Error(err))
	}
}

// findCard locates a card anywhere in the DAG, returning its owning node.
func findCard(doc *aggregates.DAGDoc, cardID string) (*entities.DAGNode, *entities.Card) {
	scan := func(nodes []*entities.DAGNode) (*entities.DAGNode, *entities.Card) {
		for _, n := range nodes {
			for i := range n.Cards {
				if n.Cards[i].ID == cardID {
					return n, &n.Cards[i]
				}
			}
		}
		return nil, nil
	}
	if n, c := scan(doc.Sections); c != nil {
		return n, c
	}
	return scan(doc.DAG)
}
