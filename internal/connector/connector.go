// Package connector resolves a node's declared dependencies against the
// graph, rewrites its upstream/downstream edges, detects cycles, and marks
// the node ready (graph.Ok) or failed (graph.Invalid).
package connector

import (
	"fmt"

	"github.com/rs/zerolog"

	"modelrepo/internal/graph"
	"modelrepo/pkg/types"
)

// Validate revalidates every unchecked node in affected. It must be called
// with the same write lock held that protects g. log may be nil.
func Validate(g *graph.Graph, affected []*graph.Node, log *zerolog.Logger) {
	for _, n := range affected {
		if n.Checked {
			continue
		}
		validateOne(g, n, log)
	}
}

func validateOne(g *graph.Graph, n *graph.Node, log *zerolog.Logger) {
	steps := n.Config.Steps
	if len(steps) == 0 {
		n.Status = graph.Ok
		n.Checked = true
		return
	}

	for _, step := range steps {
		resolveDependency(g, n, step)
	}

	if n.Status.OK {
		if cyclePath, ok := detectCycle(n); ok {
			n.Status = graph.Invalid(fmt.Sprintf("cycle through %s", cyclePath))
		}
	}

	n.Checked = true
	if log != nil {
		ev := log.Debug().Str("model", n.ID.String()).Bool("ok", n.Status.OK)
		if !n.Status.OK {
			ev = ev.Str("reason", n.Status.Reason)
		}
		ev.Msg("connector: node validated")
	}
}

func resolveDependency(g *graph.Graph, n *graph.Node, step types.EnsembleStep) {
	required := types.NewVersionSet(step.Versions...)
	depID := types.ModelIdentifier{Namespace: n.ID.Namespace, Name: step.ModelName}

	if upstream, ok := g.FindNode(depID, false); ok {
		installEdge(n, upstream, required)
		return
	}

	if upstream, ok := g.FindNode(depID, true); ok {
		installEdge(n, upstream, required)
		n.FuzzyMatchedUpstreams[step.ModelName] = struct{}{}
		return
	}

	g.AddWaiter(step.ModelName, n.ID)
	n.MissingUpstreams[step.ModelName] = struct{}{}
	n.Status = graph.Invalid("dependency missing: " + step.ModelName)
}

func installEdge(n, upstream *graph.Node, required types.VersionSet) {
	n.Upstreams[upstream] = required
	upstream.Downstreams[n] = struct{}{}
}

// detectCycle runs a DFS from n over resolved upstream edges using an
// explicit stack; if n is revisited, the cycle is reported by the first
// upstream identifier that closed the loop.
func detectCycle(n *graph.Node) (string, bool) {
	type frame struct {
		node *graph.Node
		from string
	}
	visited := map[*graph.Node]bool{}
	stack := []frame{{node: n}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for u := range top.node.Upstreams {
			if u == n {
				return u.ID.String(), true
			}
			if visited[u] {
				continue
			}
			visited[u] = true
			stack = append(stack, frame{node: u, from: u.ID.String()})
		}
	}
	return "", false
}
