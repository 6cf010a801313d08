package manager

import "modelrepo/pkg/types"

// RegisterModelRepository adds repository to the set the poller searches.
// mapping (exposed model name -> on-disk subdirectory) is consulted by every
// subsequent poll of this repository, so a model can be exposed under a name
// that differs from its directory, mirroring the original API's
// model_mapping.
func (m *Manager) RegisterModelRepository(repository string, mapping map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.repositories {
		if existing == repository {
			return ErrAlreadyExists("repository already registered: " + repository)
		}
	}
	m.repositories = append(m.repositories, repository)
	if len(mapping) > 0 {
		copied := make(map[string]string, len(mapping))
		for k, v := range mapping {
			copied[k] = v
		}
		m.repoMappings[repository] = copied
	}
	m.events.Publish(Event{Name: "repository.registered", OpID: m.newOpID(), Fields: map[string]string{"path": repository}})
	return nil
}

// UnregisterModelRepository removes repository from the search set and
// unloads every model whose SourcePath fell under it. Their dependents
// become Invalid rather than disappearing; upstreams left with no dependent
// and not explicitly loaded are removed as well (RemoveNodes with
// cascading=true).
func (m *Manager) UnregisterModelRepository(repository string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, existing := range m.repositories {
		if existing == repository {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound("repository not registered: " + repository)
	}
	m.repositories = append(m.repositories[:idx], m.repositories[idx+1:]...)
	delete(m.repoMappings, repository)

	var toRemove []types.ModelIdentifier
	for id, info := range m.infos {
		if isUnder(info.SourcePath, repository) {
			toRemove = append(toRemove, id)
		}
	}

	opID := m.newOpID()
	if len(toRemove) > 0 {
		affected, removed := m.graph.RemoveNodes(toRemove, true)
		for _, rid := range removed {
			delete(m.infos, rid)
		}
		m.applyAndSchedule(opID, affected)
	}

	m.events.Publish(Event{Name: "repository.unregistered", OpID: opID, Fields: map[string]string{"path": repository}})
	return nil
}

func isUnder(path, root string) bool {
	if len(path) < len(root) {
		return false
	}
	return path[:len(root)] == root
}
