package services

import (
	"context"

	"learnengine/application/ports"
	"learnengine/domain/config"
	"learnengine/domain/core/entities"
	"learnengine/domain/core/validators"

	"go.uber.org/zap"
)

// BuildResult is the materialized output of one builder run: the ordered
// top-level sections and the flattened list of deeper nodes.
type BuildResult struct {
	Sections []*entities.DAGNode
	DAG      []*entities.DAGNode
}

// DAGBuilder converts an authored node/edge graph into sections and a
// flattened DAG of learning nodes. The only side effect is the card
// lookup, which is awaited per node so fetches for the same node never
// interleave.
//
// Tolerances: a child id missing from the node map is skipped silently
// (partial graphs stay usable); untitled nodes and cards get translated
// placeholder titles. A genuine cycle aborts the build.
type DAGBuilder struct {
	cards     ports.CardRepository
	translate ports.Translator
	validator *validators.GraphValidator
	cfg       *config.DomainConfig
	logger    *zap.Logger
}

// NewDAGBuilder creates a builder.
func NewDAGBuilder(cards ports.CardRepository, translate ports.Translator, cfg *config.DomainConfig, logger *zap.Logger) *DAGBuilder {
	if translate == nil {
		translate = func(key string) string { return key }
	}
	return &DAGBuilder{
		cards:     cards,
		translate: translate,
		validator: validators.NewGraphValidator(cfg.MaxGraphNodes, cfg.MaxGraphDepth),
		cfg:       cfg,
		logger:    logger,
	}
}

// adjacency is the merged view of explicit edges and parentId fields.
type adjacency struct {
	nodeMap     map[string]entities.GraphNode
	childrenMap map[string][]string
	parentMap   map[string]string
}

// Build materializes the graph. Deterministic for identical inputs:
// traversal follows input order, never map iteration order.
func (b *DAGBuilder) Build(ctx context.Context, domainID, baseID string, nodes []entities.GraphNode, edges []entities.GraphEdge) (*BuildResult, error) {
	if err := b.validator.ValidateSize(nodes); err != nil {
		return nil, err
	}

	adj := buildAdjacency(nodes, edges)

	if err := b.validator.DetectCycle(adj.nodeMap, adj.childrenMap); err != nil {
		return nil, err
	}

	roots := detectRoots(nodes, adj)

	result := &BuildResult{}
	// Orders without an explicit value are assigned in traversal order,
	// starting at 1.
	orderCounter := 0
	nextOrder := func(n entities.GraphNode) int {
		if n.Order != nil {
			return *n.Order
		}
		orderCounter++
		return orderCounter
	}

	for _, root := range roots {
		children := b.existingChildren(adj, root.ID)

		if len(children) == 0 {
			// A childless root is its own section when it has company,
			// or a singleton section when it at least has cards.
			cards, err := b.fetchCards(ctx, domainID, baseID, root.ID)
			if err != nil {
				return nil, err
			}
			if len(roots) > 1 || len(cards) > 0 {
				result.Sections = append(result.Sections, &entities.DAGNode{
					ID:    root.ID,
					Title: b.nodeTitle(root),
					Cards: cards,
					Order: nextOrder(root),
				})
			}
			continue
		}

		for _, child := range children {
			section := &entities.DAGNode{
				ID:          child.ID,
				Title:       b.nodeTitle(child),
				RequireNids: []string{root.ID},
				Order:       nextOrder(child),
			}
			cards, err := b.fetchCards(ctx, domainID, baseID, child.ID)
			if err != nil {
				return nil, err
			}
			section.Cards = cards
			result.Sections = append(result.Sections, section)

			if err := b.buildSubtree(ctx, domainID, baseID, adj, child.ID, []string{root.ID, child.ID}, nextOrder, result); err != nil {
				return nil, err
			}
		}
	}

	sortDAGNodes(result.Sections)
	sortDAGNodes(result.DAG)
	return result, nil
}

// buildSubtree walks the descendants of parentID with an explicit stack,
// appending each to the flattened DAG with its full ancestor chain.
func (b *DAGBuilder) buildSubtree(ctx context.Context, domainID, baseID string, adj adjacency, parentID string, chain []string, nextOrder func(entities.GraphNode) int, result *BuildResult) error {
	type frame struct {
		node  entities.GraphNode
		chain []string
	}

	var stack []frame
	pushChildren := func(pid string, c []string) {
		children := b.existingChildren(adj, pid)
		// Reverse push keeps pop order equal to input order.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], chain: c})
		}
	}
	pushChildren(parentID, chain)

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		cards, err := b.fetchCards(ctx, domainID, baseID, f.node.ID)
		if err != nil {
			return err
		}
		result.DAG = append(result.DAG, &entities.DAGNode{
			ID:          f.node.ID,
			Title:       b.nodeTitle(f.node),
			RequireNids: append([]string(nil), f.chain...),
			Cards:       cards,
			Order:       nextOrder(f.node),
		})

		childChain := make([]string, 0, len(f.chain)+1)
		childChain = append(childChain, f.chain...)
		childChain = append(childChain, f.node.ID)
		pushChildren(f.node.ID, childChain)
	}
	return nil
}

// fetchCards loads a node's own cards, sorted and with problem counts
// precomputed for the cache payload.
func (b *DAGBuilder) fetchCards(ctx context.Context, domainID, baseID, nodeID string) ([]entities.Card, error) {
	cards, err := b.cards.GetByNodeID(ctx, domainID, baseID, nodeID)
	if err != nil {
		return nil, err
	}
	out := make([]entities.Card, 0, len(cards))
	for _, c := range cards {
		if c.Title == "" {
			c.Title = b.translate(b.cfg.UnnamedCardKey)
		}
		out = append(out, c.WithProblemCount())
	}
	entities.SortCards(out)
	return out, nil
}

func (b *DAGBuilder) nodeTitle(n entities.GraphNode) string {
	if n.Text == "" {
		return b.translate(b.cfg.UnnamedNodeKey)
	}
	return n.Text
}

// existingChildren resolves child ids against the node map, silently
// dropping dangling references.
func (b *DAGBuilder) existingChildren(adj adjacency, parentID string) []entities.GraphNode {
	ids := adj.childrenMap[parentID]
	children := make([]entities.GraphNode, 0, len(ids))
	for _, id := range ids {
		n, ok := adj.nodeMap[id]
		if !ok {
			if b.logger != nil {
				b.logger.Debug("Skipping dangling child reference",
					zap.String("parentID", parentID),
					zap.String("childID", id),
				)
			}
			continue
		}
		children = append(children, n)
	}
	return children
}

// buildAdjacency merges explicit edges with parentId fields. An edge is
// synthesized for any parentId not already covered; duplicate pairs are
// dropped.
func buildAdjacency(nodes []entities.GraphNode, edges []entities.GraphEdge) adjacency {
	adj := adjacency{
		nodeMap:     make(map[string]entities.GraphNode, len(nodes)),
		childrenMap: make(map[string][]string),
		parentMap:   make(map[string]string),
	}
	for _, n := range nodes {
		adj.nodeMap[n.ID] = n
	}

	seen := make(map[[2]string]struct{}, len(edges))
	link := func(source, target string) {
		pair := [2]string{source, target}
		if _, dup := seen[pair]; dup {
			return
		}
		seen[pair] = struct{}{}
		adj.childrenMap[source] = append(adj.childrenMap[source], target)
		if _, has := adj.parentMap[target]; !has {
			adj.parentMap[target] = source
		}
	}

	for _, e := range edges {
		link(e.Source, e.Target)
	}
	for _, n := range nodes {
		if n.ParentID == "" {
			continue
		}
		if _, covered := adj.parentMap[n.ID]; !covered {
			link(n.ParentID, n.ID)
		}
	}
	return adj
}

// detectRoots finds every node marked level 0 or lacking a parent entry.
// A non-empty graph with no qualifying node falls back to the first node
// in input order as the sole root.
func detectRoots(nodes []entities.GraphNode, adj adjacency) []entities.GraphNode {
	var roots []entities.GraphNode
	for _, n := range nodes {
		if n.IsRootCandidate() {
			roots = append(roots, n)
			continue
		}
		if _, hasParent := adj.parentMap[n.ID]; !hasParent {
			roots = append(roots, n)
		}
	}
	if len(roots) == 0 && len(nodes) > 0 {
		roots = append(roots, nodes[0])
	}
	return roots
}

func sortDAGNodes(nodes []*entities.DAGNode) {
	sortStableBy(nodes, func(a, b *entities.DAGNode) bool {
		return a.Order < b.Order
	})
}

func sortStableBy(nodes []*entities.DAGNode, less func(a, b *entities.DAGNode) bool) {
	// Insertion sort keeps the traversal order for equal keys without
	// pulling in sort.SliceStable's reflection on the hot path.
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && less(nodes[j], nodes[j-1]); j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}
}
