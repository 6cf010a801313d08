package manager

import (
	"modelrepo/internal/graph"
	"modelrepo/internal/poller"
	"modelrepo/pkg/types"
)

// pollerRequest builds a polling-mode poller.Request over every registered
// repository against the current ModelInfo store.
func pollerRequest(repositories []string, namespacing bool, mappings map[string]map[string]string, prior map[types.ModelIdentifier]types.ModelInfo) poller.Request {
	return poller.Request{
		Repositories:       repositories,
		NamespacingEnabled: namespacing,
		Mappings:           mappings,
		Prior:              prior,
	}
}

// explicitPollerRequest builds an explicit-mode poller.Request for one
// named model, still searching every registered repository to resolve it.
func explicitPollerRequest(repositories []string, namespacing bool, mappings map[string]map[string]string, name string, params map[string]string, prior map[types.ModelIdentifier]types.ModelInfo) poller.Request {
	return poller.Request{
		Repositories:       repositories,
		NamespacingEnabled: namespacing,
		Mappings:           mappings,
		Explicit:           []poller.ExplicitRequest{{Name: name, Params: params}},
		Prior:              prior,
	}
}

// findByBareName resolves a name to its unique namespaced node, mirroring
// FindNode's fuzzy match rule: a name shared across two or more namespaces
// cannot be resolved this way.
func (m *Manager) findByBareName(name string) (*graph.Node, bool) {
	return m.graph.FindNode(types.ModelIdentifier{Name: name}, true)
}

// transitiveDownstreamIDs returns every node reachable from n via
// Downstreams, not including n itself.
func transitiveDownstreamIDs(n *graph.Node) []types.ModelIdentifier {
	visited := map[*graph.Node]bool{}
	var out []types.ModelIdentifier
	stack := []*graph.Node{n}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for d := range top.Downstreams {
			if visited[d] {
				continue
			}
			visited[d] = true
			out = append(out, d.ID)
			stack = append(stack, d)
		}
	}
	return out
}
