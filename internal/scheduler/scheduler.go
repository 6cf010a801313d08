// Package scheduler drives the fixed-point load/unload loop: repeatedly
// select nodes whose upstreams are satisfied, dispatch load/unload calls to
// the Lifecycle Engine in parallel waves, and react to outcomes until the
// graph reaches a stable configuration.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"modelrepo/internal/graph"
	"modelrepo/internal/lifecycle"
	"modelrepo/pkg/types"
)

// Scheduler runs the wave algorithm against one Engine.
type Scheduler struct {
	Engine      lifecycle.Engine
	WaveTimeout time.Duration
	Log         *zerolog.Logger
}

// New builds a Scheduler with the given wave timeout (spec §9 open
// question 3: a configurable bound on each wave's Lifecycle Engine calls).
func New(engine lifecycle.Engine, waveTimeout time.Duration, log *zerolog.Logger) *Scheduler {
	if waveTimeout <= 0 {
		waveTimeout = 30 * time.Second
	}
	return &Scheduler{Engine: engine, WaveTimeout: waveTimeout, Log: log}
}

// Run drives waves to a fixed point starting from initial, and returns the
// terminal verdict for every node the run touched.
func (s *Scheduler) Run(ctx context.Context, initial []*graph.Node) map[string]types.ModelVerdict {
	touched := map[*graph.Node]struct{}{}
	failedReason := map[*graph.Node]string{}
	wave := dedupe(initial)

	for len(wave) > 0 {
		for _, n := range wave {
			touched[n] = struct{}{}
		}

		toLoad, toUnload := partition(wave)
		outcomes := s.dispatchWave(ctx, toLoad, toUnload)

		next := map[*graph.Node]struct{}{}
		for n, res := range outcomes {
			if res.OK {
				n.LoadedVersions = res.LoadedVersions
				delete(failedReason, n)
			} else if _, isLoad := toLoad[n]; isLoad {
				failedReason[n] = res.Reason
				n.Status = graph.Invalid(fmt.Sprintf("load failed: %s", res.Reason))
			}
			for d := range n.Downstreams {
				next[d] = struct{}{}
			}
		}

		// Tie-break: a node depending on a model that failed to load this
		// run is marked Invalid and reconsidered, never left blocking.
		for failed, reason := range failedReason {
			for d := range failed.Downstreams {
				if _, dependsOnFailed := d.Upstreams[failed]; dependsOnFailed {
					d.Status = graph.Invalid(fmt.Sprintf("dependency failed: %s: %s", failed.ID, reason))
					next[d] = struct{}{}
				}
			}
		}

		wave = mapKeys(next)
	}

	return verdicts(touched)
}

func (s *Scheduler) dispatchWave(ctx context.Context, toLoad, toUnload map[*graph.Node]struct{}) map[*graph.Node]lifecycle.Result {
	waveCtx, cancel := context.WithTimeout(ctx, s.WaveTimeout)
	defer cancel()

	results := make(map[*graph.Node]lifecycle.Result, len(toLoad)+len(toUnload))
	var resultsMu sync.Mutex

	g, gctx := errgroup.WithContext(waveCtx)
	for n := range toLoad {
		n := n
		g.Go(func() error {
			required := unionRequiredVersions(n)
			ch := s.Engine.AsyncLoad(gctx, n.ID, n.Config, required, n.AgentParameters)
			res := awaitResult(gctx, n.ID, ch)
			resultsMu.Lock()
			results[n] = res
			resultsMu.Unlock()
			return nil
		})
	}
	for n := range toUnload {
		n := n
		g.Go(func() error {
			ch := s.Engine.AsyncUnload(gctx, n.ID)
			res := awaitResult(gctx, n.ID, ch)
			resultsMu.Lock()
			results[n] = res
			resultsMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if s.Log != nil {
		s.Log.Info().Int("loaded", len(toLoad)).Int("unloaded", len(toUnload)).Msg("scheduler: wave dispatched")
	}
	return results
}

func awaitResult(ctx context.Context, id types.ModelIdentifier, ch <-chan lifecycle.Result) lifecycle.Result {
	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		return lifecycle.Result{ID: id, OK: false, Reason: "lifecycle timeout"}
	}
}

// partition splits wave into nodes to load and nodes to unload per spec §4.4,
// then propagates unload to any wave member that depends on another wave
// member being unloaded, so dependents drop in the same wave rather than
// waiting a cycle.
func partition(wave []*graph.Node) (toLoad, toUnload map[*graph.Node]struct{}) {
	toLoad = map[*graph.Node]struct{}{}
	toUnload = map[*graph.Node]struct{}{}

	for _, n := range wave {
		switch {
		case shouldUnload(n):
			toUnload[n] = struct{}{}
		case shouldLoad(n):
			toLoad[n] = struct{}{}
		}
	}

	for changed := true; changed; {
		changed = false
		for _, n := range wave {
			if _, already := toUnload[n]; already {
				continue
			}
			for u := range n.Upstreams {
				if _, unloading := toUnload[u]; unloading {
					toUnload[n] = struct{}{}
					delete(toLoad, n)
					changed = true
					break
				}
			}
		}
	}
	return toLoad, toUnload
}

func shouldLoad(n *graph.Node) bool {
	return n.Status.OK && requirementsSatisfied(n)
}

func shouldUnload(n *graph.Node) bool {
	if !n.Status.OK || !requirementsSatisfied(n) {
		return true
	}
	return !n.ExplicitlyLoad && len(n.Downstreams) == 0
}

func requirementsSatisfied(n *graph.Node) bool {
	for u, required := range n.Upstreams {
		if !u.LoadedVersions.Covers(required) {
			return false
		}
	}
	return true
}

// unionRequiredVersions gathers the version sets every current downstream of
// n requires from it. An empty result means "no pinned requirement"; the
// Engine treats that as "load the model's default version".
func unionRequiredVersions(n *graph.Node) types.VersionSet {
	union := types.VersionSet{}
	for d := range n.Downstreams {
		for v := range d.Upstreams[n] {
			union[v] = struct{}{}
		}
	}
	return union
}

func dedupe(nodes []*graph.Node) []*graph.Node {
	seen := map[*graph.Node]struct{}{}
	out := make([]*graph.Node, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func mapKeys(m map[*graph.Node]struct{}) []*graph.Node {
	out := make([]*graph.Node, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	return out
}

func verdicts(touched map[*graph.Node]struct{}) map[string]types.ModelVerdict {
	out := make(map[string]types.ModelVerdict, len(touched))
	for n := range touched {
		out[n.ID.String()] = types.ModelVerdict{OK: n.Status.OK, Reason: n.Status.Reason}
	}
	return out
}
