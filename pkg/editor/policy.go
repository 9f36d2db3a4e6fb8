package editor

import (
	"fmt"
	"sort"

	"github.com/dukex/flowdesk/pkg/models"
)

// EdgePolicy decides whether an edge source → target may be added to g.
// Policies return an error wrapping ErrEdgeRejected to refuse the edge.
type EdgePolicy func(g Graph, source, target string) error

// Policy names accepted by PolicyByName.
const (
	PolicySelfLoops  = "self_loops"
	PolicyDuplicates = "duplicates"
	PolicyCycles     = "cycles"
	PolicyFromEnd    = "from_end"
)

var policies = map[string]EdgePolicy{
	PolicySelfLoops:  ForbidSelfLoops,
	PolicyDuplicates: ForbidDuplicateEdges,
	PolicyCycles:     ForbidCycles,
	PolicyFromEnd:    ForbidEdgesFromEnd,
}

// PolicyByName resolves a built-in policy.
func PolicyByName(name string) (EdgePolicy, error) {
	policy, ok := policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}

	return policy, nil
}

// PoliciesByName resolves a list of built-in policies.
func PoliciesByName(names []string) ([]EdgePolicy, error) {
	out := make([]EdgePolicy, 0, len(names))

	for _, name := range names {
		policy, err := PolicyByName(name)
		if err != nil {
			return nil, err
		}

		out = append(out, policy)
	}

	return out, nil
}

// PolicyNames lists the built-in policy names.
func PolicyNames() []string {
	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func ForbidSelfLoops(_ Graph, source, target string) error {
	if source == target {
		return fmt.Errorf("%w: self loop on %s", ErrEdgeRejected, source)
	}

	return nil
}

func ForbidDuplicateEdges(g Graph, source, target string) error {
	if g.HasEdge(source, target) {
		return fmt.Errorf("%w: %s already connects to %s", ErrEdgeRejected, source, target)
	}

	return nil
}

// ForbidCycles refuses source → target when target already reaches source.
func ForbidCycles(g Graph, source, target string) error {
	if source == target {
		return fmt.Errorf("%w: %s → %s closes a cycle", ErrEdgeRejected, source, target)
	}

	visited := map[string]bool{}
	stack := []string{target}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current == source {
			return fmt.Errorf("%w: %s → %s closes a cycle", ErrEdgeRejected, source, target)
		}

		if visited[current] {
			continue
		}

		visited[current] = true

		stack = append(stack, g.Successors(current)...)
	}

	return nil
}

func ForbidEdgesFromEnd(g Graph, source, _ string) error {
	node, ok := g.Node(source)
	if ok && node.Type == models.NodeTypeEnd {
		return fmt.Errorf("%w: end node %s has no outgoing edges", ErrEdgeRejected, source)
	}

	return nil
}
