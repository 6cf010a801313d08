// Package lifecycle defines the Model Lifecycle Engine port the scheduler
// drives, and ships a reference in-memory implementation used by tests, the
// demo binary, and any deployment without a real inference runtime wired in.
// A production deployment substitutes its own Engine; this package never
// performs real inference.
package lifecycle

import (
	"context"

	"modelrepo/pkg/types"
)

// Engine is the external Model Lifecycle Engine collaborator (spec §6). It
// actually loads/unloads a (identifier, version) into memory and tracks
// readiness; the core only ever calls this interface.
type Engine interface {
	AsyncLoad(ctx context.Context, id types.ModelIdentifier, cfg types.ModelConfig, versions types.VersionSet, agentParams map[string]string) <-chan Result
	AsyncUnload(ctx context.Context, id types.ModelIdentifier) <-chan Result
	StopAllModels() error
	UnloadAllModels() error
	GetModel(id types.ModelIdentifier, version int64) (*Handle, error)
	LiveModelStates(strict bool) map[types.ModelIdentifier]map[int64]types.ReadyState
	ModelStates() map[types.ModelIdentifier]map[int64]types.ReadyState
	VersionStates(id types.ModelIdentifier) map[int64]types.ReadyState
	InflightStatus() []types.InflightEntry
}

// Result is the outcome of one AsyncLoad/AsyncUnload call.
type Result struct {
	ID             types.ModelIdentifier
	OK             bool
	Reason         string
	LoadedVersions types.VersionSet
}
