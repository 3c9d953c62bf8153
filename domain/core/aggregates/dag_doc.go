package aggregates

import (
	"time"

	"learnengine/domain/core/entities"
	"learnengine/domain/core/valueobjects"
)

// DAGDoc is the cached, versioned materialization of one base graph:
// the ordered top-level sections plus the flattened list of descendant
// nodes, each carrying its own cards.
//
// Version is the source graph's last-modified timestamp (unix millis).
// SchemaVersion tracks the payload layout; bumping the constant in
// domain/config forces a rebuild of every cached entry.
type DAGDoc struct {
	Key           valueobjects.DAGKey `json:"key"`
	Sections      []*entities.DAGNode `json:"sections"`
	DAG           []*entities.DAGNode `json:"dag"`
	Version       int64               `json:"version"`
	SchemaVersion int                 `json:"schemaVersion"`
	UpdatedAt     time.Time           `json:"updateAt"`
}

// NewDAGDoc assembles a fresh cache entry from builder output.
func NewDAGDoc(key valueobjects.DAGKey, sections, dag []*entities.DAGNode, version int64, schemaVersion int) *DAGDoc {
	return &DAGDoc{
		Key:           key,
		Sections:      sections,
		DAG:           dag,
		Version:       version,
		SchemaVersion: schemaVersion,
		UpdatedAt:     time.Now(),
	}
}

// SectionIndex resolves a section id to its position, or -1.
func (d *DAGDoc) SectionIndex(sectionID string) int {
	for i, s := range d.Sections {
		if s.ID == sectionID {
			return i
		}
	}
	return -1
}

// SectionAt returns the section at index, or nil when out of range.
func (d *DAGDoc) SectionAt(index int) *entities.DAGNode {
	if index < 0 || index >= len(d.Sections) {
		return nil
	}
	return d.Sections[index]
}

// ChildrenOf returns the flattened nodes hanging directly under parentID,
// in DAG traversal order.
func (d *DAGDoc) ChildrenOf(parentID string) []*entities.DAGNode {
	var children []*entities.DAGNode
	for _, n := range d.DAG {
		if n.IsChildOf(parentID) {
			children = append(children, n)
		}
	}
	return children
}

// SubtreeNodes returns the section node followed by every descendant in
// traversal order. Descendants are recognized by the section id appearing
// anywhere in their ancestor chain.
func (d *DAGDoc) SubtreeNodes(sectionID string) []*entities.DAGNode {
	var nodes []*entities.DAGNode
	if i := d.SectionIndex(sectionID); i >= 0 {
		nodes = append(nodes, d.Sections[i])
	}
	for _, n := range d.DAG {
		for _, nid := range n.RequireNids {
			if nid == sectionID {
				nodes = append(nodes, n)
				break
			}
		}
	}
	return nodes
}

// SubtreeCards flattens the cards of a section's subtree in traversal
// order. This is the sequence the linear unlock chain runs over.
func (d *DAGDoc) SubtreeCards(sectionID string) []entities.Card {
	var cards []entities.Card
	for _, n := range d.SubtreeNodes(sectionID) {
		cards = append(cards, n.Cards...)
	}
	return cards
}

// NodeByID looks a node up in sections first, then in the flattened DAG.
func (d *DAGDoc) NodeByID(nodeID string) *entities.DAGNode {
	for _, s := range d.Sections {
		if s.ID == nodeID {
			return s
		}
	}
	for _, n := range d.DAG {
		if n.ID == nodeID {
			return n
		}
	}
	return nil
}

// IsEmpty reports whether the payload holds no nodes at all.
func (d *DAGDoc) IsEmpty() bool {
	return len(d.Sections)+len(d.DAG) == 0
}

// HasProblemMeta reports whether every cached card carries precomputed
// problem metadata. Entries written by an older builder lack it.
func (d *DAGDoc) HasProblemMeta() bool {
	check := func(nodes []*entities.DAGNode) bool {
		for _, n := range nodes {
			for i := range n.Cards {
				if !n.Cards[i].HasProblemMeta() {
					return false
				}
			}
		}
		return true
	}
	return check(d.Sections) && check(d.DAG)
}
