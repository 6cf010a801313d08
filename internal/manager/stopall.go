package manager

import "modelrepo/pkg/types"

// UnloadAllModels unloads every model and empties the dependency graph. It
// should be called before shutting down the manager.
func (m *Manager) UnloadAllModels() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]types.ModelIdentifier, 0, len(m.infos))
	for id := range m.infos {
		ids = append(ids, id)
	}
	_, removed := m.graph.RemoveNodes(ids, true)
	for _, id := range removed {
		delete(m.infos, id)
	}

	m.events.Publish(Event{Name: "repository.unloaded_all", OpID: m.newOpID()})
	return m.engine.UnloadAllModels()
}

// StopAllModels instructs every model to stop accepting new inference
// requests while letting in-flight requests, tracked by the caller's
// lifecycle.Handle refcounts, drain naturally. It does not touch the graph.
func (m *Manager) StopAllModels() error {
	return m.engine.StopAllModels()
}
