package connector

import (
	"strings"
	"testing"

	"modelrepo/internal/graph"
	"modelrepo/pkg/types"
)

func noInfo(types.ModelIdentifier) (types.ModelInfo, bool) { return types.ModelInfo{}, false }

func TestValidateLeafHasNoDependenciesAlwaysOK(t *testing.T) {
	g := graph.New()
	id := types.ModelIdentifier{Name: "A"}
	g.AddNodes([]types.ModelIdentifier{id}, noInfo)
	n, _ := g.Node(id)

	Validate(g, []*graph.Node{n}, nil)

	if !n.Status.OK || !n.Checked {
		t.Fatalf("expected a leaf with no steps to validate OK, got %+v checked=%v", n.Status, n.Checked)
	}
}

func TestValidateResolvesExactNamespaceMatchWithReciprocalEdges(t *testing.T) {
	g := graph.New()
	upID := types.ModelIdentifier{Namespace: "repoA", Name: "A"}
	depID := types.ModelIdentifier{Namespace: "repoA", Name: "E"}
	g.AddNodes([]types.ModelIdentifier{upID, depID}, noInfo)
	up, _ := g.Node(upID)
	dep, _ := g.Node(depID)
	dep.Config = types.ModelConfig{Steps: []types.EnsembleStep{{ModelName: "A"}}}

	Validate(g, []*graph.Node{dep}, nil)

	if !dep.Status.OK {
		t.Fatalf("expected ensemble to resolve, got %+v", dep.Status)
	}
	if _, ok := dep.Upstreams[up]; !ok {
		t.Fatalf("expected dep.Upstreams to reference the resolved node")
	}
	if _, ok := up.Downstreams[dep]; !ok {
		t.Fatalf("expected the reciprocal edge on the upstream's Downstreams set")
	}
	if len(dep.FuzzyMatchedUpstreams) != 0 {
		t.Fatalf("expected an exact namespace match not to be recorded as fuzzy")
	}
}

func TestValidateFuzzyMatchResolvesUniqueCrossNamespaceDependency(t *testing.T) {
	g := graph.New()
	upID := types.ModelIdentifier{Namespace: "repoA", Name: "A"}
	depID := types.ModelIdentifier{Namespace: "repoB", Name: "E"}
	g.AddNodes([]types.ModelIdentifier{upID, depID}, noInfo)
	up, _ := g.Node(upID)
	dep, _ := g.Node(depID)
	dep.Config = types.ModelConfig{Steps: []types.EnsembleStep{{ModelName: "A"}}}

	Validate(g, []*graph.Node{dep}, nil)

	if !dep.Status.OK {
		t.Fatalf("expected the unique cross-namespace name to resolve, got %+v", dep.Status)
	}
	if _, ok := dep.Upstreams[up]; !ok {
		t.Fatalf("expected the fuzzy match to install an edge to the unique candidate")
	}
	if _, ok := dep.FuzzyMatchedUpstreams["A"]; !ok {
		t.Fatalf("expected the fuzzy match to be recorded")
	}
}

func TestValidateFuzzyMatchFailsOnAmbiguousNameAndRegistersWaiter(t *testing.T) {
	g := graph.New()
	upA := types.ModelIdentifier{Namespace: "repoA", Name: "A"}
	upB := types.ModelIdentifier{Namespace: "repoB", Name: "A"}
	depID := types.ModelIdentifier{Namespace: "repoC", Name: "E"}
	g.AddNodes([]types.ModelIdentifier{upA, upB, depID}, noInfo)
	dep, _ := g.Node(depID)
	dep.Config = types.ModelConfig{Steps: []types.EnsembleStep{{ModelName: "A"}}}

	Validate(g, []*graph.Node{dep}, nil)

	if dep.Status.OK {
		t.Fatalf("expected an ambiguous cross-namespace name to fail resolution")
	}
	if !strings.Contains(dep.Status.Reason, "A") {
		t.Fatalf("expected the failure reason to name the missing dependency, got %q", dep.Status.Reason)
	}
	if len(g.Waiters("A")) != 1 {
		t.Fatalf("expected the dependent to be registered as a waiter on the missing name")
	}
}

func TestValidateDetectsSelfDependency(t *testing.T) {
	g := graph.New()
	id := types.ModelIdentifier{Name: "S"}
	g.AddNodes([]types.ModelIdentifier{id}, noInfo)
	n, _ := g.Node(id)
	n.Config = types.ModelConfig{Steps: []types.EnsembleStep{{ModelName: "S"}}}

	Validate(g, []*graph.Node{n}, nil)

	if n.Status.OK {
		t.Fatalf("expected a model depending on itself to be flagged as a cycle")
	}
	if !strings.Contains(n.Status.Reason, "cycle") {
		t.Fatalf("expected a cycle reason, got %q", n.Status.Reason)
	}
}

func TestValidateDetectsMultiNodeCycle(t *testing.T) {
	g := graph.New()
	aID := types.ModelIdentifier{Name: "A"}
	bID := types.ModelIdentifier{Name: "B"}
	g.AddNodes([]types.ModelIdentifier{aID, bID}, noInfo)
	a, _ := g.Node(aID)
	b, _ := g.Node(bID)
	a.Config = types.ModelConfig{Steps: []types.EnsembleStep{{ModelName: "B"}}}
	b.Config = types.ModelConfig{Steps: []types.EnsembleStep{{ModelName: "A"}}}

	Validate(g, []*graph.Node{a, b}, nil)

	if a.Status.OK && b.Status.OK {
		t.Fatalf("expected the A<->B cycle to invalidate at least one side, got a=%+v b=%+v", a.Status, b.Status)
	}
}

func TestValidateSkipsAlreadyCheckedNodes(t *testing.T) {
	g := graph.New()
	id := types.ModelIdentifier{Name: "A"}
	g.AddNodes([]types.ModelIdentifier{id}, noInfo)
	n, _ := g.Node(id)
	n.Checked = true
	n.Status = graph.Invalid("previously computed")

	Validate(g, []*graph.Node{n}, nil)

	if n.Status.OK {
		t.Fatalf("Validate must not touch an already-checked node")
	}
}
