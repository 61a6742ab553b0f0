package store

import (
	"context"
	"sort"
	"sync"

	"coursehub/internal/enrollment/models"
	"coursehub/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded enrollment store used in tests and dev mode.
// It enforces the same (user, course) uniqueness the postgres unique index
// does, so services behave identically against either adapter.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[string]*models.Enrollment
	byPair map[pairKey]string
}

type pairKey struct {
	userID   string
	courseID string
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[string]*models.Enrollment),
		byPair: make(map[pairKey]string),
	}
}

func (s *InMemory) Insert(_ context.Context, enrollment *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{enrollment.UserID, enrollment.CourseID}
	if _, ok := s.byPair[key]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byID[enrollment.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *enrollment
	s.byID[enrollment.ID] = &cp
	s.byPair[key] = enrollment.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enrollment, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *enrollment
	return &cp, nil
}

func (s *InMemory) FindByUserAndCourse(_ context.Context, userID, courseID string) (*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPair[pairKey{userID, courseID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enrollment, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byPair, pairKey{enrollment.UserID, enrollment.CourseID})
	return nil
}

func (s *InMemory) ListByUser(_ context.Context, userID string, offset, limit int) ([]*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*models.Enrollment
	for _, enrollment := range s.byID {
		if enrollment.UserID == userID {
			cp := *enrollment
			matched = append(matched, &cp)
		}
	}
	// Newest first, ID as a stable tie-break for equal timestamps.
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].EnrolledAt.Equal(matched[j].EnrolledAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].EnrolledAt.After(matched[j].EnrolledAt)
	})

	if offset < 0 || offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) || end < offset {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (s *InMemory) CountByUser(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, enrollment := range s.byID {
		if enrollment.UserID == userID {
			count++
		}
	}
	return count, nil
}
