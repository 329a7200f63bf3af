package store

import (
	"sync"

	"github.com/quickpoll/quickpoll/internal/model"
)

// PollStore holds the local poll collection in display order, newest
// first. It is an ordered collection, not a keyed map: a poll_created for
// an id already present prepends a second entry, exactly as the server
// currently behaves (it never re-announces an id; if that ever changes
// the duplicate will surface in tests rather than be hidden here).
//
// Patches are copy-on-write: only matched entries get a new value,
// untouched entries keep their pointers across snapshots so readers can
// cheaply detect what changed.
type PollStore struct {
	mu    sync.RWMutex
	polls []*model.Poll
}

func NewPollStore() *PollStore {
	return &PollStore{}
}

// Replace swaps in a freshly fetched collection. The fetch result is
// authoritative at this point; any counts patched in by earlier push
// events are overwritten.
func (s *PollStore) Replace(polls []*model.Poll) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls = append([]*model.Poll(nil), polls...)
}

// Prepend inserts a poll at the front of the display order.
func (s *PollStore) Prepend(p *model.Poll) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls = append([]*model.Poll{p}, s.polls...)
}

// Remove drops every entry with the given id. Reports whether anything
// was removed.
func (s *PollStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.polls[:0]
	removed := false
	for _, p := range s.polls {
		if p.ID == id {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	s.polls = kept
	return removed
}

// Patch applies a field-scoped update to every entry with the given id.
// The update function receives a copy and returns the replacement value;
// entries with other ids are left untouched, pointer-stable. Reports
// whether any entry matched; an unmatched id is a no-op and never
// creates a placeholder.
func (s *PollStore) Patch(id string, update func(model.Poll) model.Poll) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := false
	for i, p := range s.polls {
		if p.ID != id {
			continue
		}
		next := update(*p)
		s.polls[i] = &next
		matched = true
	}
	return matched
}

// Snapshot returns the current collection in display order. The returned
// slice is the caller's; the pointed-to polls are shared and must not be
// mutated.
func (s *PollStore) Snapshot() []*model.Poll {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*model.Poll(nil), s.polls...)
}

// Get returns the first entry with the given id.
func (s *PollStore) Get(id string) (*model.Poll, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.polls {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (s *PollStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.polls)
}
