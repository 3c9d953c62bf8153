package validators

import (
	"fmt"

	"learnengine/domain/core/entities"
	"learnengine/pkg/errors"
)

// GraphValidator checks structural rules on an authored graph before the
// DAG builder walks it. Dangling child references are tolerated (the
// builder skips them); a genuine cycle is not, since the skip tolerance
// would otherwise loop forever.
type GraphValidator struct {
	maxNodes int
	maxDepth int
}

// NewGraphValidator creates a validator with the given node and depth
// limits. Non-positive values fall back to the defaults.
func NewGraphValidator(maxNodes, maxDepth int) *GraphValidator {
	if maxNodes <= 0 {
		maxNodes = 10000
	}
	if maxDepth <= 0 {
		maxDepth = 64
	}
	return &GraphValidator{
		maxNodes: maxNodes,
		maxDepth: maxDepth,
	}
}

// ValidateSize rejects graphs over the node limit.
func (v *GraphValidator) ValidateSize(nodes []entities.GraphNode) error {
	if len(nodes) > v.maxNodes {
		return errors.NewValidationError(
			fmt.Sprintf("graph exceeds maximum of %d nodes", v.maxNodes))
	}
	return nil
}

// DetectCycle runs an iterative three-color DFS over the children map and
// fails fast on the first back edge. Edges to ids absent from nodeMap are
// ignored, matching the builder's skip tolerance.
func (v *GraphValidator) DetectCycle(nodeMap map[string]entities.GraphNode, childrenMap map[string][]string) error {
	const (
		white = 0 // unvisited
		gray  = 1 // on stack
		black = 2 // done
	)
	color := make(map[string]int, len(nodeMap))

	type frame struct {
		id   string
		next int
	}

	for start := range nodeMap {
		if color[start] != white {
			continue
		}
		stack := []frame{{id: start}}
		color[start] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := childrenMap[top.id]
			advanced := false
			for top.next < len(children) {
				child := children[top.next]
				top.next++
				if _, ok := nodeMap[child]; !ok {
					continue
				}
				switch color[child] {
				case gray:
					return errors.NewValidationError(
						fmt.Sprintf("graph contains a cycle through node %s", child))
				case white:
					color[child] = gray
					stack = append(stack, frame{id: child})
					if len(stack) > v.maxDepth {
						return errors.NewValidationError(
							fmt.Sprintf("graph exceeds maximum depth of %d", v.maxDepth))
					}
					advanced = true
				}
				if advanced {
					break
				}
			}
			if !advanced {
				color[top.id] = black
				stack = stack[:len(stack)-1]
			}
		}
	}
	return nil
}
