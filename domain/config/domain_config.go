package config

// DAGSchemaVersion is the layout version of cached DAG payloads.
// Increment it whenever the builder output shape changes; any cached entry
// behind this value is treated as stale and rebuilt on the next read.
//
// History:
//   1 — sections aggregated their full subtree's cards
//   2 — own-cards-only everywhere, problem counts precomputed
//   3 — ancestor chains stored on section-level nodes too
const DAGSchemaVersion = 3

// ScorePerAnswer is the fixed score contribution of each answer in a
// result's history.
const ScorePerAnswer = 5

// DomainConfig holds configurable business rules for the learn core.
type DomainConfig struct {
	// Graph constraints
	MaxGraphNodes int
	MaxGraphDepth int

	// Translation keys for placeholder titles
	UnnamedCardKey string
	UnnamedNodeKey string

	// Cache behavior
	DAGCacheTTLSeconds int

	// Feature flags
	EnableReviewQueue bool
	EnableTodayMode   bool
}

// DefaultDomainConfig returns the default configuration.
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxGraphNodes:      10000,
		MaxGraphDepth:      64,
		UnnamedCardKey:     "unnamed_card",
		UnnamedNodeKey:     "unnamed_node",
		DAGCacheTTLSeconds: 300,
		EnableReviewQueue:  true,
		EnableTodayMode:    true,
	}
}

// LoadDomainConfig loads configuration based on environment.
func LoadDomainConfig(environment string) *DomainConfig {
	cfg := DefaultDomainConfig()
	if environment == "development" {
		cfg.MaxGraphNodes = 100000
		cfg.DAGCacheTTLSeconds = 10
	}
	return cfg
}
