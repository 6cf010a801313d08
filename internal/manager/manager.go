package manager

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"modelrepo/internal/connector"
	"modelrepo/internal/graph"
	"modelrepo/internal/lifecycle"
	"modelrepo/internal/poller"
	"modelrepo/internal/scheduler"
	"modelrepo/pkg/types"
)

// Manager is the model repository manager façade: it owns the dependency
// graph and the polled ModelInfo store, and drives the connector and
// scheduler under a single writer lock.
type Manager struct {
	mu sync.Mutex

	cfg ManagerConfig
	log zerolog.Logger

	graph     *graph.Graph
	infos     map[types.ModelIdentifier]types.ModelInfo
	poll      *poller.Poller
	scheduler *scheduler.Scheduler
	engine    lifecycle.Engine
	events    EventPublisher

	repositories []string

	// duplicates holds the last poll's name -> reason map for models seen in
	// two or more repositories with namespacing disabled. These never enter
	// the graph; RepositoryIndex surfaces them directly from here.
	duplicates map[string]string

	// repoMappings holds each repository's model_mapping, supplied to
	// RegisterModelRepository: exposed model name -> on-disk subdirectory,
	// for repositories where a model's directory name differs from the name
	// it should be exposed under.
	repoMappings map[string]map[string]string
}

// New constructs a Manager. engine and events may be nil; New substitutes an
// in-memory Lifecycle Engine and a no-op publisher respectively, so the rest
// of the repository is runnable without a real inference backend.
func New(cfg ManagerConfig, engine lifecycle.Engine, events EventPublisher, log zerolog.Logger) *Manager {
	cfg = cfg.withDefaults()
	if engine == nil {
		engine = lifecycle.NewMemoryEngine(cfg.LoadDelay, cfg.UnloadDelay)
	}
	if events == nil {
		events = noopPublisher{}
	}

	m := &Manager{
		cfg:          cfg,
		log:          log,
		graph:        graph.New(),
		infos:        map[types.ModelIdentifier]types.ModelInfo{},
		poll:         poller.New(poller.FSLister{}, poller.FSParser{}),
		scheduler:    scheduler.New(engine, cfg.WaveTimeout, &log),
		engine:       engine,
		events:       events,
		repositories: append([]string(nil), cfg.Repositories...),
		duplicates:   map[string]string{},
		repoMappings: map[string]map[string]string{},
	}
	return m
}

func (m *Manager) newOpID() string { return uuid.NewString() }

func (m *Manager) lookup(id types.ModelIdentifier) (types.ModelInfo, bool) {
	info, ok := m.infos[id]
	return info, ok
}

// applyAndSchedule runs the connector over affected nodes and drives the
// scheduler to a fixed point. Must be called with mu held.
func (m *Manager) applyAndSchedule(opID string, affected []types.ModelIdentifier) map[string]types.ModelVerdict {
	nodes := make([]*graph.Node, 0, len(affected))
	for _, id := range affected {
		if n, ok := m.graph.Node(id); ok {
			nodes = append(nodes, n)
		}
	}
	connector.Validate(m.graph, nodes, &m.log)

	// No deadline here: WaveTimeout bounds each individual wave inside
	// scheduler.Run, not the whole (possibly multi-wave) fixed-point run.
	verdicts := m.scheduler.Run(context.Background(), nodes)

	for name, v := range verdicts {
		m.events.Publish(Event{
			Name:   "schedule.verdict",
			OpID:   opID,
			Fields: map[string]string{"model": name, "ok": boolStr(v.OK), "reason": v.Reason},
		})
	}
	return verdicts
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
