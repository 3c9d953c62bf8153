package entities

// DAGNode is a derived learning unit: a graph node annotated with its
// ancestor chain and its own cards.
//
// RequireNids is the ordered chain of ancestor node ids from the enclosing
// section root down to (not including) this node; the last element is the
// direct parent. Every DAGNode except section roots has a non-empty chain.
type DAGNode struct {
	ID          string   `json:"id" dynamodbav:"ID"`
	Title       string   `json:"title" dynamodbav:"Title"`
	RequireNids []string `json:"requireNids" dynamodbav:"RequireNids"`
	Cards       []Card   `json:"cards" dynamodbav:"Cards"`
	Order       int      `json:"order" dynamodbav:"Order"`
}

// ParentID returns the direct parent from the ancestor chain, or "" for a
// section-level node.
func (n *DAGNode) ParentID() string {
	if len(n.RequireNids) == 0 {
		return ""
	}
	return n.RequireNids[len(n.RequireNids)-1]
}

// IsChildOf reports whether this node hangs directly under parentID.
// This is the tie-break used for child lookup in the flattened DAG.
func (n *DAGNode) IsChildOf(parentID string) bool {
	return n.ParentID() == parentID
}

// Clone returns a copy with its own slices, so per-user reordering can
// reassign Order without touching the cached payload.
func (n *DAGNode) Clone() *DAGNode {
	c := *n
	c.RequireNids = append([]string(nil), n.RequireNids...)
	c.Cards = append([]Card(nil), n.Cards...)
	return &c
}
