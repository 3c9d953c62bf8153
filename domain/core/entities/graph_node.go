package entities

import (
	"time"
)

// GraphNode is one topic/concept in the authored mind-map graph.
// Identity is the ID string, unique within a graph snapshot.
type GraphNode struct {
	ID       string `json:"id" dynamodbav:"ID"`
	Text     string `json:"text" dynamodbav:"Text"`
	Level    *int   `json:"level,omitempty" dynamodbav:"Level,omitempty"`
	Order    *int   `json:"order,omitempty" dynamodbav:"Order,omitempty"`
	ParentID string `json:"parentId,omitempty" dynamodbav:"ParentID,omitempty"`
}

// IsRootCandidate reports whether the node is explicitly marked as a root.
// Nodes without a parent entry are also roots, but that is decided against
// the merged edge set, not here.
func (n *GraphNode) IsRootCandidate() bool {
	return n.Level != nil && *n.Level == 0
}

// GraphEdge is a directed edge meaning "source is parent of target".
type GraphEdge struct {
	ID     string `json:"id" dynamodbav:"ID"`
	Source string `json:"source" dynamodbav:"Source"`
	Target string `json:"target" dynamodbav:"Target"`
}

// BranchGraph is one named variant of a base's node/edge set.
type BranchGraph struct {
	Nodes []GraphNode `json:"nodes" dynamodbav:"Nodes"`
	Edges []GraphEdge `json:"edges" dynamodbav:"Edges"`
}

// BaseDoc is the top-level content graph document for a domain, with an
// optional set of named branch variants. The top-level nodes/edges are the
// implicit "main" branch.
type BaseDoc struct {
	ID         string                 `json:"id"`
	DomainID   string                 `json:"domainId"`
	Title      string                 `json:"title"`
	Nodes      []GraphNode            `json:"nodes"`
	Edges      []GraphEdge            `json:"edges"`
	BranchData map[string]BranchGraph `json:"branchData,omitempty"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// Graph resolves the node/edge set for a branch, falling back to the
// top-level nodes/edges when the branch has no dedicated data.
func (b *BaseDoc) Graph(branch string) ([]GraphNode, []GraphEdge) {
	if branch != "" && b.BranchData != nil {
		if bg, ok := b.BranchData[branch]; ok {
			return bg.Nodes, bg.Edges
		}
	}
	return b.Nodes, b.Edges
}

// SourceVersion is the content version used for cache staleness checks:
// the source graph's last-modified time in unix milliseconds.
func (b *BaseDoc) SourceVersion() int64 {
	return b.UpdatedAt.UnixMilli()
}
