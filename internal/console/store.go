package console

import (
	"sync"
	"time"
)

// ActionType enumerates the store transitions.
type ActionType string

const (
	ActionFetchStart    ActionType = "FETCH_START"
	ActionFetchSuccess  ActionType = "FETCH_SUCCESS"
	ActionFetchFailure  ActionType = "FETCH_FAILURE"
	ActionFetchRejected ActionType = "FETCH_REJECTED"
	ActionFetchCancel   ActionType = "FETCH_CANCEL"
)

// Action is a single store transition for one domain.
type Action struct {
	Type       ActionType
	Domain     DomainID
	Generation uint64
	Data       any
	Error      string
	At         time.Time
}

// Reduce applies the action to the previous state. It does not check
// generations; the Store does that before reducing.
func Reduce(prev DomainState, a Action) DomainState {
	next := prev
	switch a.Type {
	case ActionFetchStart:
		next.Loading = true
		next.Error = ""
		next.Generation = a.Generation
	case ActionFetchSuccess:
		next.Data = a.Data
		next.Loading = false
		next.Error = ""
		next.UpdatedAt = a.At
	case ActionFetchFailure:
		next.Data = a.Data
		next.Loading = false
		next.Error = a.Error
		next.UpdatedAt = a.At
	case ActionFetchRejected:
		next.Loading = false
		next.Error = a.Error
		next.Generation = a.Generation
	case ActionFetchCancel:
		next.Loading = false
		next.Generation = a.Generation
	}
	return next
}

// StoreReader is the read side of the store consulted by the dispatch policy.
type StoreReader interface {
	Get(id DomainID) DomainState
}

// Store is the per-session record of every domain's state. Only fetch
// routines write to it.
type Store struct {
	mu          sync.RWMutex
	states      map[DomainID]DomainState
	generations map[DomainID]uint64
	clock       func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		states:      make(map[DomainID]DomainState),
		generations: make(map[DomainID]uint64),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Get returns the domain's state; untouched domains read as the zero state.
func (s *Store) Get(id DomainID) DomainState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[id]
}

// Snapshot copies every domain's state.
func (s *Store) Snapshot() map[DomainID]DomainState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[DomainID]DomainState, len(AllDomains))
	for _, id := range AllDomains {
		out[id] = s.states[id]
	}
	return out
}

// Generation returns the domain's current fetch generation.
func (s *Store) Generation(id DomainID) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generations[id]
}

// Begin marks the domain as loading and returns the generation the caller
// must present when completing.
func (s *Store) Begin(id DomainID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := s.nextGenerationLocked(id)
	s.applyLocked(Action{Type: ActionFetchStart, Domain: id, Generation: gen})
	return gen
}

// Succeed stores data for the generation. It returns false when the
// generation is stale and the result was discarded.
func (s *Store) Succeed(id DomainID, gen uint64, data any) bool {
	return s.complete(Action{Type: ActionFetchSuccess, Domain: id, Generation: gen, Data: data})
}

// Fail stores the empty default and the failure message for the generation.
func (s *Store) Fail(id DomainID, gen uint64, emptyDefault any, msg string) bool {
	return s.complete(Action{Type: ActionFetchFailure, Domain: id, Generation: gen, Data: emptyDefault, Error: msg})
}

// Cancel clears loading for an abandoned fetch of the generation.
func (s *Store) Cancel(id DomainID, gen uint64) bool {
	return s.complete(Action{Type: ActionFetchCancel, Domain: id, Generation: gen})
}

// Abandon invalidates whatever fetch is in flight for the domain and clears
// loading. Late results of that fetch are discarded.
func (s *Store) Abandon(id DomainID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := s.nextGenerationLocked(id)
	s.applyLocked(Action{Type: ActionFetchCancel, Domain: id, Generation: gen})
}

// Reject records a pre-flight failure. Data keeps its current value and any
// in-flight fetch for the domain is invalidated.
func (s *Store) Reject(id DomainID, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := s.nextGenerationLocked(id)
	s.applyLocked(Action{Type: ActionFetchRejected, Domain: id, Generation: gen, Error: msg})
}

func (s *Store) complete(a Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[a.Domain] != a.Generation {
		return false
	}
	s.applyLocked(a)
	return true
}

func (s *Store) nextGenerationLocked(id DomainID) uint64 {
	s.generations[id]++
	return s.generations[id]
}

func (s *Store) applyLocked(a Action) {
	if a.At.IsZero() {
		a.At = s.clock()
	}
	s.states[a.Domain] = Reduce(s.states[a.Domain], a)
}
