// Package resource implements spec.md §4.5: a stable-identifier store
// of typed asset payloads with GUID assignment, a loading/ready/
// reloaded/error status machine, and file-watch driven hot reload that
// swaps an active payload for its standby only once the swap is safe.
//
// Grounded on the teacher's shader.go (CoreShader.CreateProgram,
// LoadShaderModule) for the identifier-to-typed-payload idiom; the
// status machine and "swap happens on update(), not on the watcher
// callback" rule are grounded on
// original_source/libs/engine/include/engine/assets/asset.hpp
// (Asset::Status) and .../assets/asset.cpp (Asset::setup,
// Asset::currentStatus), generalized from one hand-rolled C++ class
// per asset kind into a single generic Go store.
package resource

import (
	"sync"
	"sync/atomic"
)

// Status mirrors original_source's Asset::Status enum (spec.md §4.5).
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusReloaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusReloaded:
		return "reloaded"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// GUID is a process-unique, monotonically assigned asset identifier
// (original_source's Asset::GUID, a TZero<s64,-1>).
type GUID int64

var nextGUID int64

func newGUID() GUID {
	return GUID(atomic.AddInt64(&nextGUID, 1))
}

// entry is one stored asset: its stable path-like ID, the active
// payload, a pending standby payload awaiting swap-in, and its
// watch state.
type entry struct {
	mu       sync.Mutex
	guid     GUID
	id       string
	status   Status
	active   interface{}
	standby  interface{}
	err      error
	source   string // filesystem path backing this entry, "" if none
	watch    watchState
}

func (e *entry) snapshotStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}
