package dynamodb

import (
	"encoding/json"
	"fmt"
	"time"

	"learnengine/domain/core/entities"
	"learnengine/pkg/utils"
)

// baseBody is the JSON blob layout of a stored content graph.
type baseBody struct {
	Nodes      []entities.GraphNode            `json:"nodes"`
	Edges      []entities.GraphEdge            `json:"edges"`
	BranchData map[string]entities.BranchGraph `json:"branchData,omitempty"`
}

func decodeBaseDoc(item *baseItem) (*entities.BaseDoc, error) {
	var body baseBody
	if item.Body != "" {
		if err := json.Unmarshal([]byte(item.Body), &body); err != nil {
			return nil, fmt.Errorf("failed to decode base body: %w", err)
		}
	}

	updatedAt, err := utils.ParseRFC3339(item.UpdatedAt)
	if err != nil {
		updatedAt = time.Time{}
	}

	return &entities.BaseDoc{
		ID:         item.BaseID,
		DomainID:   item.DomainID,
		Title:      item.Title,
		Nodes:      body.Nodes,
		Edges:      body.Edges,
		BranchData: body.BranchData,
		UpdatedAt:  updatedAt,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	return utils.ParseRFC3339(s)
}

// dagPayload is the JSON blob layout of a materialized DAG.
type dagPayload struct {
	Sections []*entities.DAGNode `json:"sections"`
	DAG      []*entities.DAGNode `json:"dag"`
}

func encodeDAGPayload(sections, dag []*entities.DAGNode) (string, error) {
	data, err := json.Marshal(dagPayload{Sections: sections, DAG: dag})
	if err != nil {
		return "", fmt.Errorf("failed to encode DAG payload: %w", err)
	}
	return string(data), nil
}

func decodeDAGPayload(raw string) (sections, dag []*entities.DAGNode, err error) {
	var p dagPayload
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, nil, fmt.Errorf("failed to decode DAG payload: %w", err)
		}
	}
	return p.Sections, p.DAG, nil
}
