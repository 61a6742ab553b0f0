package store

import (
	"context"
	"sort"
	"sync"

	"coursehub/internal/course/models"
	"coursehub/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded course store used in tests and dev mode.
type InMemory struct {
	mu      sync.RWMutex
	courses map[string]*models.Course
}

func NewInMemory() *InMemory {
	return &InMemory{courses: make(map[string]*models.Course)}
}

func (s *InMemory) Create(_ context.Context, course *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[course.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *course
	s.courses[course.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	course, ok := s.courses[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *course
	return &cp, nil
}

func (s *InMemory) Update(_ context.Context, course *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.courses[course.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	cp := *course
	// The counter is owned by AdjustStudentCount; a caller racing an
	// enrollment must not write a stale value back.
	cp.StudentCount = stored.StudentCount
	s.courses[course.ID] = &cp
	return nil
}

func (s *InMemory) ListPublished(_ context.Context) ([]*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Course
	for _, course := range s.courses {
		if course.IsPublished() {
			cp := *course
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AdjustStudentCount applies delta to the denormalized counter. The counter
// never goes negative; a decrement below zero means the caller's transaction
// discipline is broken.
func (s *InMemory) AdjustStudentCount(_ context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	course, ok := s.courses[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if course.StudentCount+delta < 0 {
		return sentinel.ErrInvalidState
	}
	course.StudentCount += delta
	return nil
}
