package manager

import (
	"modelrepo/internal/lifecycle"
	"modelrepo/pkg/types"
)

// GetModel resolves name in the default (empty) namespace and returns a
// reference-counted handle to it. version <= 0 requests the engine's default
// version policy.
func (m *Manager) GetModel(name string, version int64) (*lifecycle.Handle, error) {
	return m.GetModelNS("", name, version)
}

// GetModelNS is the namespaced overload of GetModel, mirroring the original
// API's two GetModel signatures (bare name vs namespace-qualified name).
func (m *Manager) GetModelNS(namespace, name string, version int64) (*lifecycle.Handle, error) {
	id := types.ModelIdentifier{Namespace: namespace, Name: name}

	m.mu.Lock()
	node, ok := m.graph.Node(id)
	if !ok && namespace == "" {
		node, ok = m.findByBareName(name)
		if ok {
			id = node.ID
		}
	}
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotFound("model not found: " + id.String())
	}
	if !node.Status.OK {
		return nil, ErrUnavailable("model unavailable: " + node.Status.Reason)
	}
	return m.engine.GetModel(id, version)
}

// ModelState reports the ready-state of one model version. version <= 0
// asks for the model's overall readiness: ready if any version is ready,
// otherwise the state of its highest-numbered version.
func (m *Manager) ModelState(name string, version int64) (types.ReadyState, error) {
	m.mu.Lock()
	id := m.resolveID(name)
	_, ok := m.graph.Node(id)
	m.mu.Unlock()
	if !ok {
		return types.StateUnknown, ErrNotFound("model not found: " + name)
	}
	states := m.engine.VersionStates(id)
	if version > 0 {
		if state, ok := states[version]; ok {
			return state, nil
		}
		return types.StateUnknown, nil
	}
	return latestOverallState(states), nil
}

func latestOverallState(states map[int64]types.ReadyState) types.ReadyState {
	if len(states) == 0 {
		return types.StateUnknown
	}
	var best int64 = -1
	bestState := types.StateUnknown
	for v, state := range states {
		if state == types.StateReady {
			return types.StateReady
		}
		if v > best {
			best = v
			bestState = state
		}
	}
	return bestState
}

// VersionStates reports the ready-state of every version of one model.
func (m *Manager) VersionStates(name string) (map[int64]types.ReadyState, error) {
	m.mu.Lock()
	id := m.resolveID(name)
	_, ok := m.graph.Node(id)
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound("model not found: " + name)
	}
	return m.engine.VersionStates(id), nil
}

// LiveModelStates delegates to the Lifecycle Engine's own bookkeeping;
// strict restricts the result to models with at least one ready version.
func (m *Manager) LiveModelStates(strict bool) map[types.ModelIdentifier]map[int64]types.ReadyState {
	return m.engine.LiveModelStates(strict)
}

// ModelStates reports the state of every version of every model the engine
// has ever attempted to load.
func (m *Manager) ModelStates() map[types.ModelIdentifier]map[int64]types.ReadyState {
	return m.engine.ModelStates()
}

// InflightStatus reports the in-flight inference count for every
// (model, version) currently serving a request.
func (m *Manager) InflightStatus() []types.InflightEntry {
	return m.engine.InflightStatus()
}

// RepositoryIndex returns one entry per known model. readyOnly restricts the
// result to models with a ready version; models the graph has recorded but
// never scheduled report State StateUnknown with the graph's Invalid reason,
// same as the original's ModelIndex "known but not ready" case. Versions the
// engine still tracks but that are not ready also carry the graph's reason.
func (m *Manager) RepositoryIndex(readyOnly bool) []types.RepositoryIndexEntry {
	m.mu.Lock()
	nodes := m.graph.Nodes()
	duplicates := m.duplicates
	m.mu.Unlock()

	var out []types.RepositoryIndexEntry
	if !readyOnly {
		for name, reason := range duplicates {
			out = append(out, types.RepositoryIndexEntry{Name: name, Version: -1, State: types.StateUnavailable, Reason: reason})
		}
	}
	for _, n := range nodes {
		states := m.engine.VersionStates(n.ID)
		if len(states) == 0 {
			if readyOnly {
				continue
			}
			reason := n.Status.Reason
			out = append(out, types.RepositoryIndexEntry{Name: n.ID.String(), Version: -1, State: types.StateUnknown, Reason: reason})
			continue
		}
		for v, state := range states {
			if readyOnly && state != types.StateReady {
				continue
			}
			entry := types.RepositoryIndexEntry{Name: n.ID.String(), Version: v, State: state}
			if state != types.StateReady {
				entry.Reason = n.Status.Reason
			}
			out = append(out, entry)
		}
	}
	return out
}

// resolveID resolves a bare name to the identifier under which it is stored
// in the graph, using fuzzy lookup when namespacing is enabled. Must be
// called with mu held.
func (m *Manager) resolveID(name string) types.ModelIdentifier {
	id := types.ModelIdentifier{Name: name}
	if !m.cfg.Namespacing {
		return id
	}
	if n, ok := m.findByBareName(name); ok {
		return n.ID
	}
	return id
}
