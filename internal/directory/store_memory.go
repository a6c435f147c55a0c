package directory

import (
	"context"
	"sync"

	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/platform/sentinel"
)

// InMemory backs unit tests and local development.
type InMemory struct {
	mu      sync.RWMutex
	actors  map[string]Actor
	persons map[string]Person
	places  map[string]Place
}

func NewInMemory() *InMemory {
	return &InMemory{
		actors:  make(map[string]Actor),
		persons: make(map[string]Person),
		places:  make(map[string]Place),
	}
}

// Seed helpers keep test setup terse. They are not part of the Store
// contract.

func (s *InMemory) PutActor(a Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actors[a.ID] = a
}

func (s *InMemory) PutPerson(p Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persons[p.ID] = p
}

func (s *InMemory) PutPlace(p Place) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.places[p.ID] = p
}

func (s *InMemory) Actor(_ context.Context, id string) (*Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}

func (s *InMemory) Person(_ context.Context, id string) (*Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *InMemory) Place(_ context.Context, id string) (*Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.places[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *InMemory) Places(_ context.Context, ids []string) ([]*Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Place, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.places[id]; ok {
			place := p
			out = append(out, &place)
		}
	}
	return out, nil
}

func (s *InMemory) CountPersons(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.persons), nil
}

func (s *InMemory) CountPlaces(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.places), nil
}
