package otp

import (
	"context"
	"sync"
	"time"
)

// Store persists challenges keyed by correlation id. Implementations must keep
// at most one live challenge per phone: Save marks any prior live challenge
// for the same phone superseded.
type Store interface {
	Save(ctx context.Context, ch Challenge) error
	Find(ctx context.Context, correlationID string) (Challenge, error)
	Update(ctx context.Context, ch Challenge) error
	// PurgeExpired drops challenges whose expiry is before the cutoff and
	// returns how many were removed. Purely maintenance; expiry is also
	// checked synchronously on verify.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
}

type memoryStore struct {
	mu      sync.Mutex
	byID    map[string]Challenge
	byPhone map[string]string
}

// NewMemoryStore constructs an in-memory challenge store, suitable for a
// single-instance deployment and for tests.
func NewMemoryStore() Store {
	return &memoryStore{
		byID:    make(map[string]Challenge),
		byPhone: make(map[string]string),
	}
}

func (s *memoryStore) Save(_ context.Context, ch Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if priorID, ok := s.byPhone[ch.Phone]; ok {
		if prior, ok := s.byID[priorID]; ok && !prior.Consumed {
			prior.Superseded = true
			s.byID[priorID] = prior
		}
	}
	s.byID[ch.CorrelationID] = ch
	s.byPhone[ch.Phone] = ch.CorrelationID
	return nil
}

func (s *memoryStore) Find(_ context.Context, correlationID string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.byID[correlationID]
	if !ok {
		return Challenge{}, ErrChallengeNotFound
	}
	return ch, nil
}

func (s *memoryStore) Update(_ context.Context, ch Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[ch.CorrelationID]; !ok {
		return ErrChallengeNotFound
	}
	s.byID[ch.CorrelationID] = ch
	return nil
}

func (s *memoryStore) PurgeExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for id, ch := range s.byID {
		if ch.ExpiresAt.Before(cutoff) {
			delete(s.byID, id)
			if s.byPhone[ch.Phone] == id {
				delete(s.byPhone, ch.Phone)
			}
			purged++
		}
	}
	return purged, nil
}
