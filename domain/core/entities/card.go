package entities

import (
	"sort"
	"time"
)

// Problem is a practice question embedded in a card.
type Problem struct {
	ID     string `json:"id" dynamodbav:"ID"`
	Stem   string `json:"stem" dynamodbav:"Stem"`
	Answer string `json:"answer" dynamodbav:"Answer"`
}

// Card is a leaf content unit attached to exactly one graph node.
// Cards are owned by the content store; the learn core only reads them.
type Card struct {
	ID           string    `json:"id" dynamodbav:"ID"`
	NodeID       string    `json:"nodeId" dynamodbav:"NodeID"`
	Title        string    `json:"title" dynamodbav:"Title"`
	Order        int       `json:"order" dynamodbav:"Order"`
	Problems     []Problem `json:"problems,omitempty" dynamodbav:"Problems,omitempty"`
	ProblemCount *int      `json:"problemCount,omitempty" dynamodbav:"ProblemCount,omitempty"`
	CreatedAt    time.Time `json:"createdAt" dynamodbav:"CreatedAt"`
}

// HasProblems reports whether the card has at least one practice problem.
// Lesson scans only consider cards with problems.
func (c *Card) HasProblems() bool {
	if c.ProblemCount != nil {
		return *c.ProblemCount > 0
	}
	return len(c.Problems) > 0
}

// HasProblemMeta reports whether problem metadata was precomputed for this
// card. A cached card lacking both problemCount and problems belongs to an
// old cache schema and forces a rebuild.
func (c *Card) HasProblemMeta() bool {
	return c.ProblemCount != nil || c.Problems != nil
}

// WithProblemCount returns a copy with the problem count precomputed, as
// stored in DAG cache payloads.
func (c Card) WithProblemCount() Card {
	n := len(c.Problems)
	c.ProblemCount = &n
	return c
}

// SortCards orders cards ascending by Order, breaking ties on the insertion
// id so the sequence is stable across rebuilds.
func SortCards(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Order != cards[j].Order {
			return cards[i].Order < cards[j].Order
		}
		return cards[i].ID < cards[j].ID
	})
}
