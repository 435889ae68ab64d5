package session

import (
	"sort"
	"sync"
)

type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*Info
	observers []Observer
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Info),
	}
}

// Observe registers fn for every subsequent lifecycle event.
func (s *Store) Observe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) Get(id string) (*Info, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return info.Clone(), true
}

// GetAll returns copies of every record, oldest first.
func (s *Store) GetAll() []*Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Info, 0, len(s.sessions))
	for _, info := range s.sessions {
		result = append(result, info.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result
}

// Update stores a copy of info and notifies observers.
func (s *Store) Update(info *Info) {
	s.mu.Lock()
	ev, observers := s.putLocked(info)
	s.mu.Unlock()
	notify(observers, ev)
}

// Mutate applies fn to the stored record under id and publishes the result.
// It reports false when no such record exists.
func (s *Store) Mutate(id string, fn func(*Info)) bool {
	s.mu.Lock()
	current, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	next := current.Clone()
	fn(next)
	ev, observers := s.putLocked(next)
	s.mu.Unlock()
	notify(observers, ev)
	return true
}

func (s *Store) putLocked(info *Info) (Event, []Observer) {
	_, existed := s.sessions[info.ID]
	s.sessions[info.ID] = info.Clone()
	ev := Event{Info: info.Clone(), ActiveCount: s.activeLocked()}
	switch {
	case info.IsTerminal():
		ev.Type = EventTerminal
	case existed:
		ev.Type = EventUpdate
	default:
		ev.Type = EventNew
	}
	return ev, append([]Observer(nil), s.observers...)
}

func notify(observers []Observer, ev Event) {
	for _, fn := range observers {
		fn(ev)
	}
}

// PruneClosed drops terminal records beyond the newest keep.
func (s *Store) PruneClosed(keep int) int {
	all := s.GetAll()
	var closed []*Info
	for _, info := range all {
		if info.IsTerminal() {
			closed = append(closed, info)
		}
	}
	if len(closed) <= keep {
		return 0
	}
	drop := closed[:len(closed)-keep]
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, info := range drop {
		delete(s.sessions, info.ID)
	}
	return len(drop)
}

func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked()
}

func (s *Store) activeLocked() int {
	count := 0
	for _, info := range s.sessions {
		if !info.IsTerminal() {
			count++
		}
	}
	return count
}
