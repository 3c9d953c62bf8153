package aggregates

import (
	"time"

	"learnengine/domain/core/valueobjects"
	pkgerrors "learnengine/pkg/errors"
)

// Lesson sub-modes. Default (empty) scans the selected section's subtree
// for the first unpassed card with problems.
const (
	LessonModeDefault = ""
	LessonModeToday   = "today"
	LessonModeNode    = "node"
)

// LearnState is the single mutable record per (domain, user): the current
// section cursor, the per-user section order, the in-lesson cursor, the
// review queue and the derived progress rollup.
//
// State transitions go through Advance; persistence is a compare-and-swap
// on StateVersion, which closes the lost-update window between two
// concurrent pass requests for the same user.
type LearnState struct {
	DomainID string `json:"domainId" dynamodbav:"DomainID"`
	UserID   string `json:"userId" dynamodbav:"UserID"`

	SectionIndex int      `json:"currentLearnSectionIndex" dynamodbav:"SectionIndex"`
	SectionID    string   `json:"currentLearnSectionId" dynamodbav:"SectionID"`
	SectionOrder []string `json:"learnSectionOrder,omitempty" dynamodbav:"SectionOrder,omitempty"`

	DailyGoal int `json:"dailyGoal" dynamodbav:"DailyGoal"`

	LessonMode      string `json:"lessonMode,omitempty" dynamodbav:"LessonMode,omitempty"`
	LessonNodeID    string `json:"lessonNodeId,omitempty" dynamodbav:"LessonNodeID,omitempty"`
	LessonCardIndex int    `json:"lessonCardIndex" dynamodbav:"LessonCardIndex"`

	ReviewQueue []string `json:"reviewQueue,omitempty" dynamodbav:"ReviewQueue,omitempty"`

	ProgressPosition int `json:"learnProgressPosition" dynamodbav:"ProgressPosition"`
	ProgressTotal    int `json:"learnProgressTotal" dynamodbav:"ProgressTotal"`

	StateVersion int64     `json:"stateVersion" dynamodbav:"StateVersion"`
	CreatedAt    time.Time `json:"createdAt" dynamodbav:"CreatedAt"`
	UpdatedAt    time.Time `json:"updatedAt" dynamodbav:"UpdatedAt"`
}

// NewLearnState creates the lazily initialized state for a first read.
func NewLearnState(key valueobjects.StateKey) *LearnState {
	now := time.Now()
	return &LearnState{
		DomainID:     key.DomainID,
		UserID:       key.UserID,
		SectionIndex: -1,
		DailyGoal:    valueobjects.DefaultDailyGoal,
		StateVersion: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// StateEvent is a state-machine transition input.
type StateEvent interface {
	isStateEvent()
}

// SectionSelected records a section choice (explicit parameter or
// first-time default) together with the rollup derived from it.
type SectionSelected struct {
	Index        int
	SectionID    string
	SectionCount int
}

// SectionAdvanced moves the cursor to the next section after the current
// one ran out of unpassed cards. HadQualifyingCards records whether the
// exhausted section ever had cards with problems, which gates advancing
// from section 0.
type SectionAdvanced struct {
	Index              int
	SectionID          string
	SectionCount       int
	HadQualifyingCards bool
}

// CursorMoved updates the in-lesson cursor.
type CursorMoved struct {
	Mode      string
	NodeID    string
	CardIndex int
}

// ReviewEnqueued appends a "no impression" card to the review queue.
type ReviewEnqueued struct {
	CardID string
}

// ReviewDequeued pops the front of the review queue.
type ReviewDequeued struct{}

// OrderChanged replaces the per-user section order. Duplicates are kept
// verbatim; the list is applied as-is at read time.
type OrderChanged struct {
	Order []string
}

// GoalChanged sets the daily goal.
type GoalChanged struct {
	Goal valueobjects.DailyGoal
}

func (SectionSelected) isStateEvent() {}
func (SectionAdvanced) isStateEvent() {}
func (CursorMoved) isStateEvent()     {}
func (ReviewEnqueued) isStateEvent()  {}
func (ReviewDequeued) isStateEvent()  {}
func (OrderChanged) isStateEvent()    {}
func (GoalChanged) isStateEvent()     {}

// Advance applies one transition to the state. It only mutates in memory;
// the caller persists the result with a CAS on StateVersion.
func (s *LearnState) Advance(ev StateEvent) error {
	switch e := ev.(type) {
	case SectionSelected:
		if e.Index < 0 || e.Index >= e.SectionCount {
			return pkgerrors.NewValidationError("section index out of range")
		}
		s.SectionIndex = e.Index
		s.SectionID = e.SectionID
		s.ProgressPosition = maxInt(0, e.Index)
		s.ProgressTotal = e.SectionCount

	case SectionAdvanced:
		// Never auto-advance past section 0 just because it has no
		// qualifying cards; that would misreport "0 of N" as "1 of N".
		// A genuinely finished section 0 advances like any other.
		if s.SectionIndex < 0 {
			return pkgerrors.NewConflictError("cannot auto-advance before a section is selected")
		}
		if s.SectionIndex == 0 && !e.HadQualifyingCards {
			return pkgerrors.NewConflictError("cannot auto-advance from an empty first section")
		}
		if e.Index != s.SectionIndex+1 || e.Index >= e.SectionCount {
			return pkgerrors.NewConflictError("section advance target out of sequence")
		}
		s.SectionIndex = e.Index
		s.SectionID = e.SectionID
		s.ProgressPosition = e.Index
		s.ProgressTotal = e.SectionCount
		s.LessonCardIndex = 0

	case CursorMoved:
		switch e.Mode {
		case LessonModeDefault, LessonModeToday, LessonModeNode:
		default:
			return pkgerrors.NewValidationError("unknown lesson mode")
		}
		s.LessonMode = e.Mode
		s.LessonNodeID = e.NodeID
		s.LessonCardIndex = e.CardIndex

	case ReviewEnqueued:
		if e.CardID == "" {
			return pkgerrors.NewValidationError("card ID cannot be empty")
		}
		s.ReviewQueue = append(s.ReviewQueue, e.CardID)

	case ReviewDequeued:
		if len(s.ReviewQueue) == 0 {
			return pkgerrors.NewNotFoundError("review queue entry")
		}
		s.ReviewQueue = s.ReviewQueue[1:]

	case OrderChanged:
		s.SectionOrder = append([]string(nil), e.Order...)

	case GoalChanged:
		s.DailyGoal = e.Goal.Int()

	default:
		return pkgerrors.NewValidationError("unknown state event")
	}

	s.UpdatedAt = time.Now()
	return nil
}

// PeekReview returns the front of the review queue without removing it.
func (s *LearnState) PeekReview() (string, bool) {
	if len(s.ReviewQueue) == 0 {
		return "", false
	}
	return s.ReviewQueue[0], true
}

// HasSection reports whether a section was ever selected for this user.
func (s *LearnState) HasSection() bool {
	return s.SectionIndex >= 0 || s.SectionID != ""
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
