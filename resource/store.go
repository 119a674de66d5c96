package resource

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/andewx/vkengine/internal/logx"
	"github.com/andewx/vkengine/vk/vkerr"
)

// Loader produces a fresh payload for id, reading from source when
// source is non-empty. Callers register one per asset kind (mesh,
// texture, shader program, ...).
type Loader func(id, source string) (interface{}, error)

// Store is the identifier->payload map spec.md §4.5 describes:
// entries carry a GUID, a status, and (for file-backed entries) a
// watcher that flags a reload without touching the active payload
// until the next Update call.
type Store struct {
	log     zerolog.Logger
	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates an empty store.
func New() *Store {
	return &Store{log: logx.New("resource"), entries: make(map[string]*entry)}
}

// Load registers id, running loader synchronously and storing the
// result as the active payload. Grounded on
// original_source/resources.hpp:Resources::create (ASSERT id unique,
// setup() then insert).
func (s *Store) Load(id, source string, loader Loader) (GUID, error) {
	s.mu.Lock()
	if _, exists := s.entries[id]; exists {
		s.mu.Unlock()
		return 0, fmt.Errorf("resource: id %q already loaded", id)
	}
	e := &entry{guid: newGUID(), id: id, status: StatusLoading, source: source}
	s.entries[id] = e
	s.mu.Unlock()

	payload, err := loader(id, source)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.status = StatusError
		e.err = vkerr.New(vkerr.KindAssetNotFound, "resource.Load:"+id, err)
		s.log.Error().Err(err).Str("id", id).Msg("asset load failed")
		return e.guid, e.err
	}
	e.active = payload
	e.status = StatusReady
	return e.guid, nil
}

// Get returns the active payload for id, or nil if it isn't ready.
func (s *Store) Get(id string) (interface{}, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusError || e.status == StatusLoading {
		return nil, false
	}
	return e.active, true
}

// Status reports id's current status machine state.
func (s *Store) Status(id string) (Status, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return e.snapshotStatus(), true
}

// Unload removes id, running release against its active (and any
// pending standby) payload. release is nil-safe to call per payload
// kind that needs GPU-resource teardown (e.g. vram.ReleaseBuffer).
func (s *Store) Unload(id string, release func(interface{})) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if release != nil {
		if e.active != nil {
			release(e.active)
		}
		if e.standby != nil {
			release(e.standby)
		}
	}
}

// each calls fn for every entry id currently stored; used by Update
// and the watch probe to avoid holding the map lock during I/O.
func (s *Store) each(fn func(id string, e *entry)) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entries))
	ents := make([]*entry, 0, len(s.entries))
	for id, e := range s.entries {
		ids = append(ids, id)
		ents = append(ents, e)
	}
	s.mu.RUnlock()
	for i, id := range ids {
		fn(id, ents[i])
	}
}
