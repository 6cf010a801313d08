package manager

import "time"

// Defaults applied when the corresponding ManagerConfig field is unset.
const (
	defaultPollInterval = 15 * time.Second
	defaultWaveTimeout  = 30 * time.Second
	defaultLoadDelay    = 0
	defaultUnloadDelay  = 0
)

// StartupModel is one entry of ManagerConfig.StartupModels: a model that
// LoadStartupModels loads when the manager runs in explicit control mode.
// New does not load it.
type StartupModel struct {
	Name   string
	Params map[string]string
}

// ManagerConfig encapsulates all tunables for Manager construction, mirroring
// ModelRepositoryManager::Create's parameter list.
type ManagerConfig struct {
	Repositories []string
	Namespacing  bool

	// PollingEnabled allows PollAndUpdate; ExplicitControl allows
	// LoadUnloadModel. Exactly one may be true, matching the constraint the
	// original enforces (model_control_enabled cannot be true if
	// polling_enabled is true).
	PollingEnabled  bool
	ExplicitControl bool

	PollInterval  time.Duration
	StartupModels []StartupModel
	WaveTimeout   time.Duration

	// LoadDelay/UnloadDelay parameterize the default in-memory Lifecycle
	// Engine used when no Engine is supplied explicitly.
	LoadDelay   time.Duration
	UnloadDelay time.Duration
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.WaveTimeout <= 0 {
		c.WaveTimeout = defaultWaveTimeout
	}
	return c
}
