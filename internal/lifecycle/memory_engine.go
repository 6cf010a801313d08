package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"modelrepo/pkg/types"
)

// slot tracks one model's state across every version it has ever been asked
// to load, plus a live refcount per version for handles handed out by
// GetModel.
type slot struct {
	states map[int64]types.ReadyState
	refs   map[int64]*int32
}

func newSlot() *slot {
	return &slot{states: map[int64]types.ReadyState{}, refs: map[int64]*int32{}}
}

// MemoryEngine is a reference Lifecycle Engine that simulates load/unload
// latency in memory without touching any real inference runtime. It exists
// so the rest of the repository is runnable and testable without a real
// model backend, the same role the teacher's adapter_llama_stub.go and
// testdata/fake_llama_server.go play for a missing llama.cpp build.
type MemoryEngine struct {
	mu          sync.Mutex
	slots       map[types.ModelIdentifier]*slot
	failing     map[types.ModelIdentifier]string
	loadDelay   time.Duration
	unloadDelay time.Duration
}

// NewMemoryEngine constructs a MemoryEngine. Zero delays simulate an
// instantaneous backend, useful for unit tests.
func NewMemoryEngine(loadDelay, unloadDelay time.Duration) *MemoryEngine {
	return &MemoryEngine{
		slots:       map[types.ModelIdentifier]*slot{},
		failing:     map[types.ModelIdentifier]string{},
		loadDelay:   loadDelay,
		unloadDelay: unloadDelay,
	}
}

// SetFailure makes every future AsyncLoad for id fail with reason. Pass an
// empty reason to clear the injected failure. Intended for tests that pin
// spec §8's "dependency failed: <id>: <reason>" tie-break.
func (e *MemoryEngine) SetFailure(id types.ModelIdentifier, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if reason == "" {
		delete(e.failing, id)
		return
	}
	e.failing[id] = reason
}

func (e *MemoryEngine) slotFor(id types.ModelIdentifier) *slot {
	s, ok := e.slots[id]
	if !ok {
		s = newSlot()
		e.slots[id] = s
	}
	return s
}

func (e *MemoryEngine) AsyncLoad(ctx context.Context, id types.ModelIdentifier, cfg types.ModelConfig, versions types.VersionSet, agentParams map[string]string) <-chan Result {
	out := make(chan Result, 1)
	requested := versions
	if len(requested) == 0 {
		requested = types.NewVersionSet(1)
	}
	go func() {
		select {
		case <-time.After(e.loadDelay):
		case <-ctx.Done():
			out <- Result{ID: id, OK: false, Reason: ctx.Err().Error()}
			close(out)
			return
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		s := e.slotFor(id)
		if reason, failing := e.failing[id]; failing {
			for v := range requested {
				s.states[v] = types.StateUnavailable
			}
			out <- Result{ID: id, OK: false, Reason: reason}
			close(out)
			return
		}
		for v := range requested {
			s.states[v] = types.StateReady
			if _, ok := s.refs[v]; !ok {
				zero := int32(0)
				s.refs[v] = &zero
			}
		}
		out <- Result{ID: id, OK: true, LoadedVersions: e.loadedVersionsLocked(s)}
		close(out)
	}()
	return out
}

func (e *MemoryEngine) AsyncUnload(ctx context.Context, id types.ModelIdentifier) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		select {
		case <-time.After(e.unloadDelay):
		case <-ctx.Done():
			out <- Result{ID: id, OK: false, Reason: ctx.Err().Error()}
			close(out)
			return
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		s, ok := e.slots[id]
		if !ok {
			out <- Result{ID: id, OK: true}
			close(out)
			return
		}
		for v := range s.states {
			s.states[v] = types.StateUnavailable
		}
		out <- Result{ID: id, OK: true}
		close(out)
	}()
	return out
}

func (e *MemoryEngine) loadedVersionsLocked(s *slot) types.VersionSet {
	vs := types.VersionSet{}
	for v, state := range s.states {
		if state == types.StateReady {
			vs[v] = struct{}{}
		}
	}
	return vs
}

func (e *MemoryEngine) StopAllModels() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.slots {
		for v := range s.states {
			s.states[v] = types.StateUnavailable
		}
	}
	return nil
}

func (e *MemoryEngine) UnloadAllModels() error { return e.StopAllModels() }

func (e *MemoryEngine) GetModel(id types.ModelIdentifier, version int64) (*Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.slots[id]
	if !ok {
		return nil, fmt.Errorf("model not found: %s", id)
	}
	if version <= 0 {
		version = latestReady(s)
		if version <= 0 {
			return nil, fmt.Errorf("model not ready: %s", id)
		}
	}
	if s.states[version] != types.StateReady {
		return nil, fmt.Errorf("model not ready: %s v%d", id, version)
	}
	refs, ok := s.refs[version]
	if !ok {
		zero := int32(0)
		refs = &zero
		s.refs[version] = refs
	}
	return newHandle(id, version, refs, func() {}), nil
}

func latestReady(s *slot) int64 {
	var best int64 = -1
	for v, state := range s.states {
		if state == types.StateReady && v > best {
			best = v
		}
	}
	return best
}

func (e *MemoryEngine) LiveModelStates(strict bool) map[types.ModelIdentifier]map[int64]types.ReadyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := map[types.ModelIdentifier]map[int64]types.ReadyState{}
	for id, s := range e.slots {
		hasReady := false
		versions := map[int64]types.ReadyState{}
		for v, state := range s.states {
			versions[v] = state
			if state == types.StateReady {
				hasReady = true
			}
		}
		if strict && !hasReady {
			continue
		}
		out[id] = versions
	}
	return out
}

func (e *MemoryEngine) ModelStates() map[types.ModelIdentifier]map[int64]types.ReadyState {
	return e.LiveModelStates(false)
}

func (e *MemoryEngine) VersionStates(id types.ModelIdentifier) map[int64]types.ReadyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.slots[id]
	if !ok {
		return nil
	}
	out := make(map[int64]types.ReadyState, len(s.states))
	for v, st := range s.states {
		out[v] = st
	}
	return out
}

func (e *MemoryEngine) InflightStatus() []types.InflightEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []types.InflightEntry
	for id, s := range e.slots {
		for v, refs := range s.refs {
			if n := int(*refs); n > 0 {
				out = append(out, types.InflightEntry{Name: id.String(), Version: v, Inflight: n})
			}
		}
	}
	return out
}
