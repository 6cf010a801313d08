package manager

import (
	"strconv"

	"modelrepo/pkg/types"
)

// PollAndUpdate scans every registered repository, classifies the change set
// against the current ModelInfo store, applies it to the dependency graph,
// and drives the scheduler to a fixed point. It is only valid when the
// manager was constructed with PollingEnabled.
func (m *Manager) PollAndUpdate() (types.PollResult, error) {
	if !m.cfg.PollingEnabled {
		return types.PollResult{}, ErrInvalidArgument("PollAndUpdate is disabled: manager runs in explicit control mode")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	opID := m.newOpID()
	res := m.poll.Poll(pollerRequest(m.repositories, m.cfg.Namespacing, m.repoMappings, m.infos))

	m.duplicates = res.DuplicateReasons
	for name, reason := range res.DuplicateReasons {
		m.events.Publish(Event{Name: "poll.duplicate", OpID: opID, Fields: map[string]string{"name": name, "reason": reason}})
	}

	var affected []types.ModelIdentifier

	if len(res.Deleted) > 0 {
		removedAffected, removed := m.graph.RemoveNodes(res.Deleted, true)
		affected = append(affected, removedAffected...)
		for _, id := range removed {
			delete(m.infos, id)
		}
	}

	for id, info := range res.NewInfos {
		m.infos[id] = info
	}

	if len(res.Added) > 0 {
		affected = append(affected, m.graph.AddNodes(res.Added, m.lookup)...)
	}
	if len(res.Modified) > 0 {
		affected = append(affected, m.graph.UpdateNodes(res.Modified, m.lookup)...)
	}

	verdicts := m.applyAndSchedule(opID, affected)

	statuses := make(map[string]types.ModelVerdict, len(verdicts))
	for name, v := range verdicts {
		statuses[name] = v
	}
	for _, id := range res.Unmodified {
		if _, already := statuses[id.String()]; already {
			continue
		}
		if n, ok := m.graph.Node(id); ok {
			statuses[id.String()] = types.ModelVerdict{OK: n.Status.OK, Reason: n.Status.Reason}
		}
	}

	m.events.Publish(Event{
		Name: "poll.complete",
		OpID: opID,
		Fields: map[string]string{
			"added": strconv.Itoa(len(res.Added)), "deleted": strconv.Itoa(len(res.Deleted)),
			"modified": strconv.Itoa(len(res.Modified)), "all_ok": boolStr(res.AllOK),
		},
	})

	return types.PollResult{Statuses: statuses, AllPolled: res.AllOK}, nil
}
