package types

// ActionType selects the verb for LoadUnloadModel.
type ActionType int

const (
	NoAction ActionType = iota
	Load
	Unload
)

func (a ActionType) String() string {
	switch a {
	case Load:
		return "LOAD"
	case Unload:
		return "UNLOAD"
	default:
		return "NO_ACTION"
	}
}

// RepositoryIndexEntry is one row of GET /v2/repository/index.
// example: {"name":"preprocess","version":1,"state":"READY","reason":""}
type RepositoryIndexEntry struct {
	// NameOnly is true when the entry represents a model known only by name
	// (never polled/loaded), mirroring the original ModelIndex(name) ctor.
	NameOnly bool   `json:"name_only,omitempty"`
	Name     string `json:"name" example:"preprocess"`
	// Version is -1 when NameOnly is true or the state is unknown.
	Version int64      `json:"version" example:"1"`
	State   ReadyState `json:"state" example:"READY"`
	Reason  string     `json:"reason,omitempty" example:""`
}

// ModelLoadRequest is the body of POST /v2/repository/models/{name}/load.
type ModelLoadRequest struct {
	// Parameters are passed through to the poller and the lifecycle engine.
	// A "model_directory_override" key bypasses repository lookup entirely.
	Parameters map[string]string `json:"parameters,omitempty"`
}

// ModelUnloadRequest is the body of POST /v2/repository/models/{name}/unload.
type ModelUnloadRequest struct {
	UnloadDependents bool `json:"unload_dependents,omitempty" example:"true"`
}

// RepositoryRegisterRequest is the body of POST /v2/repository/register.
type RepositoryRegisterRequest struct {
	Path    string            `json:"path" example:"/models/repo_a"`
	Mapping map[string]string `json:"model_mapping,omitempty"`
}

// RepositoryUnregisterRequest is the body of POST /v2/repository/unregister.
type RepositoryUnregisterRequest struct {
	Path string `json:"path" example:"/models/repo_a"`
}

// ModelStatusResponse is returned by GET /v2/models/{name}.
type ModelStatusResponse struct {
	Name     string               `json:"name"`
	Versions map[int64]ReadyState `json:"versions"`
}

// PollResult reports the outcome of one PollAndUpdate call.
type PollResult struct {
	// Statuses maps every model identifier touched by the call to its
	// terminal verdict for this operation.
	Statuses map[string]ModelVerdict `json:"statuses"`
	// AllPolled is false if any per-model parse/load failure occurred; the
	// call still returns success with failures isolated onto their nodes.
	AllPolled bool `json:"all_polled"`
}

// ModelVerdict is the terminal per-model result of a writer operation.
type ModelVerdict struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	Error string `json:"error" example:"model not found"`
	Code  int    `json:"code" example:"404"`
}

// InflightEntry is one row of GET /v2/inflight.
type InflightEntry struct {
	Name     string `json:"name"`
	Version  int64  `json:"version"`
	Inflight int    `json:"inflight"`
}

// EventDTO is the JSON shape pushed over the /v2/events WebSocket.
type EventDTO struct {
	Name    string            `json:"name"`
	ModelID ModelIdentifier   `json:"model_id"`
	OpID    string            `json:"op_id,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
