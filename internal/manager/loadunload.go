package manager

import (
	"modelrepo/pkg/types"
)

// LoadUnloadModel loads or unloads one model by name. It is only valid when
// the manager was constructed with ExplicitControl.
//
// LOAD always re-polls the model's directory, even if it believes the model
// is already loaded and unchanged — mirroring the original API's contract
// that a LOAD of an already-loaded model triggers a reload.
//
// UNLOAD with unloadDependents=false leaves any ensemble that depends on
// this model in the graph, transitioning it to Invalid("dependency missing:
// <id>") rather than failing the call. With unloadDependents=true, every
// transitive dependent is unloaded and removed from the graph in the same
// operation.
func (m *Manager) LoadUnloadModel(name string, action types.ActionType, params map[string]string, unloadDependents bool) (types.ModelVerdict, error) {
	if !m.cfg.ExplicitControl {
		return types.ModelVerdict{}, ErrInvalidArgument("LoadUnloadModel is disabled: manager runs in polling mode")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	opID := m.newOpID()

	switch action {
	case types.Load:
		return m.loadOne(opID, name, params)
	case types.Unload:
		return m.unloadOne(opID, name, unloadDependents)
	default:
		return types.ModelVerdict{}, ErrInvalidArgument("LoadUnloadModel requires LOAD or UNLOAD")
	}
}

func (m *Manager) loadOne(opID, name string, params map[string]string) (types.ModelVerdict, error) {
	req := explicitPollerRequest(m.repositories, m.cfg.Namespacing, m.repoMappings, name, params, m.infos)
	res := m.poll.Poll(req)

	if len(res.NewInfos) == 0 {
		return types.ModelVerdict{}, ErrNotFound("model not found: " + name)
	}

	var affected []types.ModelIdentifier
	for id, info := range res.NewInfos {
		info.ExplicitlyLoad = true
		m.infos[id] = info

		if _, exists := m.graph.Node(id); !exists {
			affected = append(affected, m.graph.AddNodes([]types.ModelIdentifier{id}, m.lookup)...)
		} else {
			affected = append(affected, m.graph.UpdateNodes([]types.ModelIdentifier{id}, m.lookup)...)
		}
	}

	verdicts := m.applyAndSchedule(opID, affected)
	return firstVerdict(verdicts, name), nil
}

func (m *Manager) unloadOne(opID, name string, unloadDependents bool) (types.ModelVerdict, error) {
	id := types.ModelIdentifier{Name: name}
	if m.cfg.Namespacing {
		if n, ok := m.findByBareName(name); ok {
			id = n.ID
		}
	}
	node, ok := m.graph.Node(id)
	if !ok {
		return types.ModelVerdict{}, ErrNotFound("model not loaded: " + name)
	}

	ids := []types.ModelIdentifier{id}
	if unloadDependents {
		ids = append(ids, transitiveDownstreamIDs(node)...)
	}

	affected, removed := m.graph.RemoveNodes(ids, unloadDependents)
	for _, rid := range removed {
		delete(m.infos, rid)
	}

	verdicts := m.applyAndSchedule(opID, affected)
	m.events.Publish(Event{Name: "model.unloaded", ModelID: id, OpID: opID})
	return firstVerdict(verdicts, name), nil
}

func firstVerdict(verdicts map[string]types.ModelVerdict, name string) types.ModelVerdict {
	for key, v := range verdicts {
		if key == name {
			return v
		}
	}
	return types.ModelVerdict{OK: true}
}
