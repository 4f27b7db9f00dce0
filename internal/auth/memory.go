package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"iskolar.org/internal/ids"
)

// MemoryStore implements Store for tests and single-node development runs.
// The mutex makes the unique-email check and the insert one atomic step, so
// concurrent creates for the same address resolve to exactly one winner.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account // id -> account
	byEmail  map[string]string   // normalized email -> id
	sessions map[string]*Session // id -> session
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*Account),
		byEmail:  make(map[string]string),
		sessions: make(map[string]*Session),
	}
}

func (m *MemoryStore) Accounts() AccountStore { return &memoryAccounts{m} }
func (m *MemoryStore) Sessions() SessionStore { return &memorySessions{m} }

type memoryAccounts struct{ s *MemoryStore }

func (st *memoryAccounts) Create(ctx context.Context, a *Account) error {
	email := NormalizeEmail(a.Email)
	if email == "" {
		return ErrInvalidInput
	}
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if _, taken := st.s.byEmail[email]; taken {
		return ErrEmailTaken
	}
	if a.ID == "" {
		a.ID = ids.New()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	a.Email = email
	cp := *a
	st.s.accounts[a.ID] = &cp
	st.s.byEmail[email] = a.ID
	return nil
}

func (st *memoryAccounts) Find(ctx context.Context, id string) (*Account, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	a, ok := st.s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (st *memoryAccounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	id, ok := st.s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	a, ok := st.s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (st *memoryAccounts) List(ctx context.Context) ([]*Account, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	out := make([]*Account, 0, len(st.s.accounts))
	for _, a := range st.s.accounts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *memoryAccounts) Update(ctx context.Context, a *Account) error {
	email := NormalizeEmail(a.Email)
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	cur, ok := st.s.accounts[a.ID]
	if !ok {
		return ErrAccountNotFound
	}
	if email != cur.Email {
		if _, taken := st.s.byEmail[email]; taken {
			return ErrEmailTaken
		}
		delete(st.s.byEmail, cur.Email)
		st.s.byEmail[email] = a.ID
	}
	a.Email = email
	cp := *a
	st.s.accounts[a.ID] = &cp
	return nil
}

func (st *memoryAccounts) Delete(ctx context.Context, id string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	a, ok := st.s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	delete(st.s.byEmail, a.Email)
	delete(st.s.accounts, id)
	return nil
}

type memorySessions struct{ s *MemoryStore }

func (st *memorySessions) Create(ctx context.Context, sess *Session) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if sess.ID == "" {
		sess.ID = ids.New()
	}
	cp := copySession(sess)
	st.s.sessions[sess.ID] = cp
	return nil
}

func (st *memorySessions) Find(ctx context.Context, id string) (*Session, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	sess, ok := st.s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(sess), nil
}

func (st *memorySessions) Revoke(ctx context.Context, id string, at time.Time) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	sess, ok := st.s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.RevokedAt == nil {
		t := at.UTC()
		sess.RevokedAt = &t
	}
	return nil
}

func (st *memorySessions) RevokeBySubject(ctx context.Context, subjectID string, at time.Time) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	t := at.UTC()
	for _, sess := range st.s.sessions {
		if sess.SubjectID == subjectID && sess.RevokedAt == nil {
			sess.RevokedAt = &t
		}
	}
	return nil
}

func (st *memorySessions) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var n int64
	for id, sess := range st.s.sessions {
		if sess.ExpiresAt.Before(cutoff) {
			delete(st.s.sessions, id)
			n++
		}
	}
	return n, nil
}

func copySession(s *Session) *Session {
	cp := *s
	if s.RevokedAt != nil {
		t := *s.RevokedAt
		cp.RevokedAt = &t
	}
	return &cp
}
