package graph

import "modelrepo/pkg/types"

// InfoLookup resolves the latest polled ModelInfo for an identifier. The
// Manager façade backs this with its ModelInfo store; Graph never touches
// storage on its own.
type InfoLookup func(types.ModelIdentifier) (types.ModelInfo, bool)

// Graph owns every known DependencyNode plus the name and waiter indices
// used for fuzzy resolution and missing-upstream bookkeeping. It performs no
// locking of its own — see the package doc comment.
type Graph struct {
	nodes   map[types.ModelIdentifier]*Node
	byName  map[string]map[types.ModelIdentifier]struct{}
	waiters map[string]map[types.ModelIdentifier]struct{}
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:   map[types.ModelIdentifier]*Node{},
		byName:  map[string]map[types.ModelIdentifier]struct{}{},
		waiters: map[string]map[types.ModelIdentifier]struct{}{},
	}
}

// Node returns the node for id, if any.
func (g *Graph) Node(id types.ModelIdentifier) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node currently in the graph. The returned slice is a
// fresh copy; mutating it does not affect the graph.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// Len reports the number of nodes currently in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) indexByName(id types.ModelIdentifier) {
	set, ok := g.byName[id.Name]
	if !ok {
		set = map[types.ModelIdentifier]struct{}{}
		g.byName[id.Name] = set
	}
	set[id] = struct{}{}
}

func (g *Graph) unindexByName(id types.ModelIdentifier) {
	set, ok := g.byName[id.Name]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(g.byName, id.Name)
	}
}

func (g *Graph) addWaiter(name string, id types.ModelIdentifier) {
	set, ok := g.waiters[name]
	if !ok {
		set = map[types.ModelIdentifier]struct{}{}
		g.waiters[name] = set
	}
	set[id] = struct{}{}
}

func (g *Graph) dropWaiter(name string, id types.ModelIdentifier) {
	set, ok := g.waiters[name]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(g.waiters, name)
	}
}

// AddWaiter registers node as waiting for a dependency named name to appear.
// Called by the connector when a dependency cannot be resolved.
func (g *Graph) AddWaiter(name string, id types.ModelIdentifier) { g.addWaiter(name, id) }

// Waiters returns the set of node identifiers waiting on name.
func (g *Graph) Waiters(name string) map[types.ModelIdentifier]struct{} { return g.waiters[name] }

// idSet is a small convenience alias used throughout the mutators.
type idSet map[types.ModelIdentifier]struct{}

func (s idSet) add(id types.ModelIdentifier) { s[id] = struct{}{} }

func (s idSet) slice() []types.ModelIdentifier {
	out := make([]types.ModelIdentifier, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// AddNodes creates a node per id (discovery) and returns the set of nodes
// that must be (re)validated: every added node, plus any node that was
// waiting on that name to appear.
func (g *Graph) AddNodes(ids []types.ModelIdentifier, lookup InfoLookup) []types.ModelIdentifier {
	affected := idSet{}
	for _, id := range ids {
		info, _ := lookup(id)
		n := newNode(id)
		n.Config = info.Config
		n.ExplicitlyLoad = info.ExplicitlyLoad
		n.AgentParameters = info.AgentParameters
		g.nodes[id] = n
		g.indexByName(id)
		affected.add(id)

		if waiting, ok := g.waiters[id.Name]; ok {
			for waiterID := range waiting {
				if waiter, ok := g.nodes[waiterID]; ok {
					g.UncheckDownstream([]*Node{waiter})
					affected.add(waiterID)
				}
			}
		}
	}
	return affected.slice()
}

// UpdateNodes overwrites the config of every id present in the graph,
// disconnects its current upstream edges (they will be rebuilt by the
// connector), unchecks its downstreams, and returns the set of nodes that
// must be revalidated.
func (g *Graph) UpdateNodes(ids []types.ModelIdentifier, lookup InfoLookup) []types.ModelIdentifier {
	affected := idSet{}
	for _, id := range ids {
		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		g.UncheckDownstream(downstreamSlice(n))
		for u := range n.Upstreams {
			delete(u.Downstreams, n)
		}
		for name := range n.MissingUpstreams {
			g.dropWaiter(name, id)
		}

		info, _ := lookup(id)
		n.Config = info.Config
		n.ExplicitlyLoad = info.ExplicitlyLoad
		n.AgentParameters = info.AgentParameters
		n.resetEdges()
		n.Checked = false
		n.Status = Ok

		affected.add(id)
	}
	return affected.slice()
}

// RemoveNodes destroys every id and, if cascading is true, iteratively
// removes former upstreams that become orphaned (no downstreams, not
// explicitly loaded) as a result. It returns the downstream nodes that must
// be revalidated and the full set of identifiers actually removed.
func (g *Graph) RemoveNodes(ids []types.ModelIdentifier, cascading bool) (affected, removed []types.ModelIdentifier) {
	affectedSet, removedSet := idSet{}, idSet{}
	queue := append([]types.ModelIdentifier(nil), ids...)

	for len(queue) > 0 {
		var next []types.ModelIdentifier
		for _, id := range queue {
			n, ok := g.nodes[id]
			if !ok {
				continue
			}

			var formerUpstreams []types.ModelIdentifier
			for u := range n.Upstreams {
				delete(u.Downstreams, n)
				formerUpstreams = append(formerUpstreams, u.ID)
			}

			g.UncheckDownstream(downstreamSlice(n))
			var downstreamIDs []types.ModelIdentifier
			for d := range n.Downstreams {
				delete(d.Upstreams, n)
				downstreamIDs = append(downstreamIDs, d.ID)
			}

			for name := range n.MissingUpstreams {
				g.dropWaiter(name, id)
			}

			delete(g.nodes, id)
			g.unindexByName(id)
			removedSet.add(id)

			for _, did := range downstreamIDs {
				affectedSet.add(did)
			}

			if cascading {
				for _, uid := range formerUpstreams {
					un, ok := g.nodes[uid]
					if ok && len(un.Downstreams) == 0 && !un.ExplicitlyLoad {
						next = append(next, uid)
					}
				}
			}
		}
		queue = next
	}

	for id := range removedSet {
		delete(affectedSet, id)
	}
	return affectedSet.slice(), removedSet.slice()
}

// FindNode looks up id exactly. If not found and allowFuzzy is true, it
// consults the name index: when exactly one node anywhere carries that name,
// that node is returned. Ties (two or more namespaces sharing the name)
// resolve to "not found" — fuzzy matches must be unambiguous.
func (g *Graph) FindNode(id types.ModelIdentifier, allowFuzzy bool) (*Node, bool) {
	if n, ok := g.nodes[id]; ok {
		return n, true
	}
	if !allowFuzzy {
		return nil, false
	}
	set, ok := g.byName[id.Name]
	if !ok || len(set) != 1 {
		return nil, false
	}
	for candidate := range set {
		return g.nodes[candidate], true
	}
	return nil, false
}

// UncheckDownstream marks every node reachable from start via Downstreams as
// unchecked, resetting its status to Ok so the connector re-validates it. It
// walks with an explicit stack rather than recursion (nesting depth of an
// ensemble graph is attacker/author controlled) and short-circuits at nodes
// that are already unchecked.
func (g *Graph) UncheckDownstream(start []*Node) {
	stack := append([]*Node(nil), start...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !n.Checked {
			continue
		}
		n.Checked = false
		n.Status = Ok
		for d := range n.Downstreams {
			stack = append(stack, d)
		}
	}
}

func downstreamSlice(n *Node) []*Node {
	out := make([]*Node, 0, len(n.Downstreams))
	for d := range n.Downstreams {
		out = append(out, d)
	}
	return out
}
