package student

import (
	"context"
	"sort"
	"sync"
	"time"

	"iskolar.org/internal/ids"
)

// timeNow is a seam for tests.
var timeNow = func() time.Time { return time.Now().UTC() }

// Service defines scholar record operations. The Postgres store and the
// in-memory store both satisfy it.
type Service interface {
	Create(ctx context.Context, s *Student) error
	Get(ctx context.Context, id string) (*Student, error)
	List(ctx context.Context, f Filter) ([]*Student, error)
	Update(ctx context.Context, s *Student) error
	Delete(ctx context.Context, id string) error
}

// InMemory implements Service with in-process concurrency safety. Used by
// tests and DSN-less development runs.
type InMemory struct {
	mu       sync.RWMutex
	students map[string]*Student
}

// NewInMemory creates an empty record set.
func NewInMemory() *InMemory {
	return &InMemory{students: make(map[string]*Student)}
}

func (m *InMemory) Create(ctx context.Context, s *Student) error {
	s.Normalize()
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = ids.New()
	}
	now := timeNow()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	cp := *s
	m.students[s.ID] = &cp
	return nil
}

func (m *InMemory) Get(ctx context.Context, id string) (*Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *InMemory) List(ctx context.Context, f Filter) ([]*Student, error) {
	f = f.Clamp()
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*Student, 0, len(m.students))
	for _, s := range m.students {
		if f.Barangay != "" && s.Barangay != f.Barangay {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		cp := *s
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		if matched[i].FirstName != matched[j].FirstName {
			return matched[i].FirstName < matched[j].FirstName
		}
		return matched[i].ID < matched[j].ID
	})

	if f.Offset >= len(matched) {
		return []*Student{}, nil
	}
	end := f.Offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end], nil
}

func (m *InMemory) Update(ctx context.Context, s *Student) error {
	s.Normalize()
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.students[s.ID]
	if !ok {
		return ErrNotFound
	}
	s.CreatedAt = cur.CreatedAt
	s.UpdatedAt = timeNow()
	cp := *s
	m.students[s.ID] = &cp
	return nil
}

func (m *InMemory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return ErrNotFound
	}
	delete(m.students, id)
	return nil
}
