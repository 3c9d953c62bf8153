package valueobjects

import (
	"errors"
)

// Daily goal bounds, in cards per day.
const (
	MinDailyGoal = 1
	MaxDailyGoal = 500

	// DefaultDailyGoal applies to lazily created learn states.
	DefaultDailyGoal = 10
)

// DailyGoal is a validated cards-per-day target.
type DailyGoal struct {
	value int
}

// NewDailyGoal validates the goal range before any state mutation happens.
func NewDailyGoal(v int) (DailyGoal, error) {
	if v < MinDailyGoal || v > MaxDailyGoal {
		return DailyGoal{}, errors.New("daily goal out of range")
	}
	return DailyGoal{value: v}, nil
}

// Int returns the goal as a plain int.
func (g DailyGoal) Int() int {
	return g.value
}
