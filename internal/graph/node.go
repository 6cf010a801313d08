// Package graph owns the mutable dependency DAG of model nodes: node storage,
// upstream/downstream edges, missing-edge placeholders and the by-name index
// used for fuzzy cross-namespace resolution. Callers (internal/manager) hold
// the single writer lock for the duration of every mutator call; Graph itself
// does no locking.
package graph

import "modelrepo/pkg/types"

// Status is the validation verdict for a node's current edge set.
type Status struct {
	OK     bool
	Reason string
}

// Ok is the verdict for a node with no unresolved or cyclic dependency.
var Ok = Status{OK: true}

// Invalid builds a failing verdict carrying reason.
func Invalid(reason string) Status { return Status{OK: false, Reason: reason} }

// Node is one model known to the graph, leaf or ensemble.
type Node struct {
	ID              types.ModelIdentifier
	Config          types.ModelConfig
	ExplicitlyLoad  bool
	AgentParameters map[string]string
	Status          Status
	Checked         bool
	LoadedVersions  types.VersionSet

	// Upstreams maps each resolved upstream node to the version set the
	// dependent's config requires from it.
	Upstreams map[*Node]types.VersionSet
	// Downstreams is the set of nodes that reference this one.
	Downstreams map[*Node]struct{}

	// MissingUpstreams holds dependency names that could not be resolved on
	// the last validation pass.
	MissingUpstreams map[string]struct{}
	// FuzzyMatchedUpstreams holds dependency names resolved cross-namespace.
	FuzzyMatchedUpstreams map[string]struct{}
}

func newNode(id types.ModelIdentifier) *Node {
	return &Node{
		ID:                    id,
		Status:                Ok,
		LoadedVersions:        types.VersionSet{},
		Upstreams:             map[*Node]types.VersionSet{},
		Downstreams:           map[*Node]struct{}{},
		MissingUpstreams:      map[string]struct{}{},
		FuzzyMatchedUpstreams: map[string]struct{}{},
	}
}

// resetEdges clears every edge-derived field so the node can be revalidated
// from scratch. Callers are responsible for disconnecting reciprocal
// references before calling this.
func (n *Node) resetEdges() {
	n.Upstreams = map[*Node]types.VersionSet{}
	n.MissingUpstreams = map[string]struct{}{}
	n.FuzzyMatchedUpstreams = map[string]struct{}{}
}
