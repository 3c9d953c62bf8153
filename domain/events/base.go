package events

import (
	"time"
)

// SourceLearn is the event source name used on the bus.
const SourceLearn = "learnengine"

// Event type names consumed by downstream subscribers. The ranking
// recomputation subscriber listens for EventTypeLearnResultAdded.
const (
	EventTypeLearnResultAdded = "learn_result/add"
	EventTypeSectionAdvanced  = "learn_section/advance"
	EventTypeDAGRebuilt       = "learn_dag/rebuild"
)

// DomainEvent is the base interface for all domain events.
// Events represent something that has happened in the past.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }
