// Package manager is the façade over the dependency graph, connector,
// scheduler, poller, and Lifecycle Engine. It is structured into small files
// by concern, matching the split the rest of this repository uses:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults.
//   - errors.go: typed errors and Is* helpers for HTTP status mapping.
//   - events.go / eventpub_memory.go: lifecycle event publishing.
//   - poll.go: PollAndUpdate, the polling-mode entry point.
//   - loadunload.go: LoadUnloadModel, the explicit-mode entry point.
//   - repository.go: Register/UnregisterModelRepository.
//   - read.go: GetModel and every read-only status query.
//   - stopall.go: UnloadAllModels / StopAllModels.
//
// Every mutation of the graph happens under Manager.mu; readers either take
// a read snapshot under the same lock or delegate straight to the Lifecycle
// Engine, which keeps its own concurrency-safe state.
//
// External packages should treat this package as the orchestration layer
// and use exported methods only.
package manager
