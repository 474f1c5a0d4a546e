package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/access-portal/internal/domain"
	"github.com/spec-kit/access-portal/internal/events"
	"github.com/spec-kit/access-portal/internal/session"
)

// in-memory stand-ins for the Postgres repositories and the Redis session
// store, honoring the same contracts (pgx.ErrNoRows, pending upsert, ordered
// listings).

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	copied := *account
	r.accounts[account.Identifier] = &copied
	return nil
}

func (r *fakeAccountRepo) Update(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.Identifier]; !ok {
		return pgx.ErrNoRows
	}
	copied := *account
	copied.UpdatedAt = time.Now()
	r.accounts[account.Identifier] = &copied
	return nil
}

func (r *fakeAccountRepo) GetByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[identifier]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*domain.AccessRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[string]*domain.AccessRequest)}
}

func (r *fakeRequestRepo) Upsert(_ context.Context, req *domain.AccessRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// replace an existing pending request in place, keeping its id
	for _, existing := range r.requests {
		if existing.Identifier == req.Identifier && existing.Status == domain.RequestStatusPending {
			req.ID = existing.ID
			break
		}
	}

	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	copied := *req
	r.requests[req.ID] = &copied
	return nil
}

func (r *fakeRequestRepo) Update(_ context.Context, req *domain.AccessRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *req
	copied.UpdatedAt = time.Now()
	r.requests[req.ID] = &copied
	return nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id string) (*domain.AccessRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *req
	return &copied, nil
}

func (r *fakeRequestRepo) GetLatestByIdentifier(_ context.Context, identifier string) (*domain.AccessRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.AccessRequest
	for _, req := range r.requests {
		if req.Identifier != identifier {
			continue
		}
		if latest == nil || req.CreatedAt.After(latest.CreatedAt) {
			latest = req
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeRequestRepo) ListPending(_ context.Context) ([]*domain.AccessRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []*domain.AccessRequest
	for _, req := range r.requests {
		if req.Status == domain.RequestStatusPending {
			copied := *req
			pending = append(pending, &copied)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	return pending, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	saveErr  error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *fakeSessionStore) Save(_ context.Context, sess *domain.Session) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *sess
	s.sessions[sess.TokenID] = &copied
	return nil
}

func (s *fakeSessionStore) Clear(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenID)
	return nil
}

func (s *fakeSessionStore) Current(_ context.Context, tokenID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[tokenID]
	if !ok {
		return nil, session.ErrNoSession
	}
	copied := *sess
	return &copied, nil
}

func (s *fakeSessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
