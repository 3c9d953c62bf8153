package entities

import (
	"time"
)

// AnswerRecord is one answered problem inside a completed attempt.
type AnswerRecord struct {
	ProblemID string `json:"problemId" dynamodbav:"ProblemID"`
	Answer    string `json:"answer" dynamodbav:"Answer"`
	Correct   bool   `json:"correct" dynamodbav:"Correct"`
	TimeMs    int64  `json:"timeMs" dynamodbav:"TimeMs"`
}

// LearnResult is an append-only log entry, one per completed attempt
// (including single-card "know it" judgments). Never mutated after insert.
type LearnResult struct {
	ID            string         `json:"id" dynamodbav:"ID"`
	DomainID      string         `json:"domainId" dynamodbav:"DomainID"`
	UserID        string         `json:"userId" dynamodbav:"UserID"`
	CardID        string         `json:"cardId" dynamodbav:"CardID"`
	NodeID        string         `json:"nodeId,omitempty" dynamodbav:"NodeID,omitempty"`
	AnswerHistory []AnswerRecord `json:"answerHistory" dynamodbav:"AnswerHistory"`
	TotalTimeMs   int64          `json:"totalTime" dynamodbav:"TotalTimeMs"`
	Score         int            `json:"score" dynamodbav:"Score"`
	CreatedAt     time.Time      `json:"createdAt" dynamodbav:"CreatedAt"`
}

// DistinctProblemIDs counts the distinct problems touched by the attempt.
// Feeds the daily problems counter, not the score.
func (r *LearnResult) DistinctProblemIDs() int {
	seen := make(map[string]struct{}, len(r.AnswerHistory))
	for _, a := range r.AnswerHistory {
		if a.ProblemID == "" {
			continue
		}
		seen[a.ProblemID] = struct{}{}
	}
	return len(seen)
}

// LearnProgress marks a card as passed for a user. Pass is monotonic:
// once passed, stays passed.
type LearnProgress struct {
	DomainID string    `json:"domainId" dynamodbav:"DomainID"`
	UserID   string    `json:"userId" dynamodbav:"UserID"`
	CardID   string    `json:"cardId" dynamodbav:"CardID"`
	Passed   bool      `json:"passed" dynamodbav:"Passed"`
	PassedAt time.Time `json:"passedAt" dynamodbav:"PassedAt"`
}

// DailyStats aggregates consumption counters for one (domain, user, UTC day).
type DailyStats struct {
	DomainID    string `json:"domainId" dynamodbav:"DomainID"`
	UserID      string `json:"userId" dynamodbav:"UserID"`
	Date        string `json:"date" dynamodbav:"Date"` // YYYY-MM-DD, UTC
	Nodes       int    `json:"nodes" dynamodbav:"Nodes"`
	Cards       int    `json:"cards" dynamodbav:"Cards"`
	Problems    int    `json:"problems" dynamodbav:"Problems"`
	Practices   int    `json:"practices" dynamodbav:"Practices"`
	TotalTimeMs int64  `json:"totalTime" dynamodbav:"TotalTimeMs"`
}
