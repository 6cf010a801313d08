package manager

import "modelrepo/pkg/types"

// LoadStartupModels loads every ManagerConfig.StartupModels entry. Intended
// to be called once, right after New, when the manager runs in explicit
// control mode; polling-mode deployments load everything reachable from a
// repository automatically via the first PollAndUpdate instead.
func (m *Manager) LoadStartupModels() []error {
	var errs []error
	for _, sm := range m.cfg.StartupModels {
		if _, err := m.LoadUnloadModel(sm.Name, types.Load, sm.Params, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
