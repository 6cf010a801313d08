package lifecycle

import (
	"sync/atomic"

	"modelrepo/pkg/types"
)

// Handle is a reference-counted handle to one loaded (identifier, version).
// GetModel hands these out to inference callers; a handle keeps the backing
// slot alive independently of graph state, so an in-flight request completes
// against its handle even if the node has since been removed from the graph.
type Handle struct {
	id      types.ModelIdentifier
	version int64
	refs    *int32
	release func()
}

func newHandle(id types.ModelIdentifier, version int64, refs *int32, release func()) *Handle {
	atomic.AddInt32(refs, 1)
	return &Handle{id: id, version: version, refs: refs, release: release}
}

// ID returns the model identifier this handle serves.
func (h *Handle) ID() types.ModelIdentifier { return h.id }

// Version returns the model version this handle serves.
func (h *Handle) Version() int64 { return h.version }

// Close releases the handle's reference. Safe to call once; a handle is not
// reusable after Close.
func (h *Handle) Close() error {
	if h.refs == nil {
		return nil
	}
	if atomic.AddInt32(h.refs, -1) == 0 && h.release != nil {
		h.release()
	}
	h.refs = nil
	return nil
}
