package events

import (
	"time"
)

// LearnResultAdded is broadcast after a pass transition commits. The core
// fires and forgets it; the ranking recomputation subscriber does the rest.
type LearnResultAdded struct {
	BaseEvent
	DomainID string `json:"domain_id"`
	UserID   string `json:"user_id"`
	CardID   string `json:"card_id"`
	NodeID   string `json:"node_id,omitempty"`
	Score    int    `json:"score"`
}

// NewLearnResultAdded creates a LearnResultAdded event.
func NewLearnResultAdded(domainID, userID, cardID, nodeID string, score int, timestamp time.Time) LearnResultAdded {
	return LearnResultAdded{
		BaseEvent: BaseEvent{
			AggregateID: domainID,
			EventType:   EventTypeLearnResultAdded,
			Timestamp:   timestamp,
			Version:     1,
		},
		DomainID: domainID,
		UserID:   userID,
		CardID:   cardID,
		NodeID:   nodeID,
		Score:    score,
	}
}

// SectionAdvanced is raised when a user's cursor moves to the next section.
type SectionAdvanced struct {
	BaseEvent
	DomainID     string `json:"domain_id"`
	UserID       string `json:"user_id"`
	FromIndex    int    `json:"from_index"`
	ToIndex      int    `json:"to_index"`
	SectionID    string `json:"section_id"`
	SectionCount int    `json:"section_count"`
}

// NewSectionAdvanced creates a SectionAdvanced event.
func NewSectionAdvanced(domainID, userID, sectionID string, from, to, count int, timestamp time.Time) SectionAdvanced {
	return SectionAdvanced{
		BaseEvent: BaseEvent{
			AggregateID: domainID,
			EventType:   EventTypeSectionAdvanced,
			Timestamp:   timestamp,
			Version:     1,
		},
		DomainID:     domainID,
		UserID:       userID,
		FromIndex:    from,
		ToIndex:      to,
		SectionID:    sectionID,
		SectionCount: count,
	}
}

// DAGRebuilt is raised after a stale cache entry is regenerated.
type DAGRebuilt struct {
	BaseEvent
	DomainID     string `json:"domain_id"`
	BaseID       string `json:"base_id"`
	Branch       string `json:"branch"`
	SectionCount int    `json:"section_count"`
	NodeCount    int    `json:"node_count"`
	FromVersion  int64  `json:"from_version"`
	ToVersion    int64  `json:"to_version"`
}

// NewDAGRebuilt creates a DAGRebuilt event.
func NewDAGRebuilt(domainID, baseID, branch string, sections, nodes int, from, to int64, timestamp time.Time) DAGRebuilt {
	return DAGRebuilt{
		BaseEvent: BaseEvent{
			AggregateID: domainID,
			EventType:   EventTypeDAGRebuilt,
			Timestamp:   timestamp,
			Version:     1,
		},
		DomainID:     domainID,
		BaseID:       baseID,
		Branch:       branch,
		SectionCount: sections,
		NodeCount:    nodes,
		FromVersion:  from,
		ToVersion:    to,
	}
}
