package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"learnengine/domain/core/aggregates"
	"learnengine/domain/core/entities"
)

// StaleReason explains why a cached DAG payload must be rebuilt.
type StaleReason string

const (
	StaleMissing       StaleReason = "missing"
	StaleVersionBehind StaleReason = "version_behind"
	StaleEmptySections StaleReason = "empty_sections"
	StaleEmptyPayload  StaleReason = "empty_payload"
	StaleNoProblemMeta StaleReason = "no_problem_meta"
	StaleSchemaBehind  StaleReason = "schema_behind"
)

// StalenessPolicy evaluates whether a cached DAGDoc can still serve reads.
// All conditions are OR'd: any single one forces a rebuild.
type StalenessPolicy struct {
	SchemaVersion int
}

// NewStalenessPolicy creates a policy pinned to the current schema version.
func NewStalenessPolicy(schemaVersion int) *StalenessPolicy {
	return &StalenessPolicy{SchemaVersion: schemaVersion}
}

// Evaluate returns every staleness reason that applies. An empty result
// means the cached entry is current and must not be regenerated.
func (p *StalenessPolicy) Evaluate(cached *aggregates.DAGDoc, sourceVersion int64, sourceNodeCount int) []StaleReason {
	if cached == nil {
		return []StaleReason{StaleMissing}
	}

	var reasons []StaleReason
	if cached.Version < sourceVersion {
		reasons = append(reasons, StaleVersionBehind)
	}
	if sourceNodeCount > 0 {
		if len(cached.Sections) == 0 {
			reasons = append(reasons, StaleEmptySections)
		}
		// Guards against a prior write that produced an empty result.
		if cached.IsEmpty() {
			reasons = append(reasons, StaleEmptyPayload)
		}
	}
	if !cached.HasProblemMeta() {
		reasons = append(reasons, StaleNoProblemMeta)
	}
	if cached.SchemaVersion < p.SchemaVersion {
		reasons = append(reasons, StaleSchemaBehind)
	}
	return reasons
}

// IsStale is the boolean form of Evaluate.
func (p *StalenessPolicy) IsStale(cached *aggregates.DAGDoc, sourceVersion int64, sourceNodeCount int) bool {
	return len(p.Evaluate(cached, sourceVersion, sourceNodeCount)) > 0
}

// PayloadChecksum hashes builder output deterministically. Two builds from
// identical inputs must produce identical checksums; the rebuild tests
// lean on this.
func PayloadChecksum(sections, dag []*entities.DAGNode) (string, error) {
	data := struct {
		Sections []*entities.DAGNode `json:"sections"`
		DAG      []*entities.DAGNode `json:"dag"`
	}{
		Sections: sections,
		DAG:      dag,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:]), nil
}
