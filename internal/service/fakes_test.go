package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/hr-attendance-api/internal/dto"
	"github.com/noah-isme/hr-attendance-api/internal/models"
)

type fakeUserStore struct {
	mu        sync.Mutex
	users     map[string]*models.User
	lastLogin map[string]time.Time
	findErr   error
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{users: map[string]*models.User{}, lastLogin: map[string]time.Time{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLogin[id] = ts
	return nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (s *fakeUserStore) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

type fakeAccessTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*models.AccessToken
}

func newFakeAccessTokenStore() *fakeAccessTokenStore {
	return &fakeAccessTokenStore{tokens: map[string]*models.AccessToken{}}
}

func (s *fakeAccessTokenStore) Create(_ context.Context, token *models.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.tokens[token.ID] = &cp
	return nil
}

func (s *fakeAccessTokenStore) FindByID(_ context.Context, id string) (*models.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (s *fakeAccessTokenStore) Touch(_ context.Context, id string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[id]; ok {
		t.LastUsedAt = &ts
	}
	return nil
}

func (s *fakeAccessTokenStore) DeleteByUserDevice(_ context.Context, userID, deviceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.tokens {
		if t.UserID == userID && t.DeviceID == deviceID {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeAccessTokenStore) DeleteByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.tokens {
		if t.UserID == userID {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeAccessTokenStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.tokens {
		if t.Expired(now) {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeAccessTokenStore) count(userID, deviceID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.UserID == userID && t.DeviceID == deviceID {
			n++
		}
	}
	return n
}

type fakeRefreshStore struct {
	mu        sync.Mutex
	seq       int
	tokens    map[string]*models.RefreshToken
	order     map[string]int
	createErr error
}

func newFakeRefreshStore() *fakeRefreshStore {
	return &fakeRefreshStore{tokens: map[string]*models.RefreshToken{}, order: map[string]int{}}
}

func (s *fakeRefreshStore) Create(_ context.Context, token *models.RefreshToken, maxPerDevice int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return 0, s.createErr
	}
	if token.ID == "" {
		token.ID = uuid.NewString()
	}

	var ids []string
	for id, t := range s.tokens {
		if t.UserID == token.UserID && t.DeviceID == token.DeviceID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return s.order[ids[i]] < s.order[ids[j]] })

	evicted := 0
	if overflow := len(ids) - (maxPerDevice - 1); overflow > 0 {
		for _, id := range ids[:overflow] {
			delete(s.tokens, id)
			delete(s.order, id)
		}
		evicted = overflow
	}

	s.seq++
	cp := *token
	s.tokens[token.ID] = &cp
	s.order[token.ID] = s.seq
	return evicted, nil
}

func (s *fakeRefreshStore) Consume(_ context.Context, hash, deviceID string, now time.Time) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tokens {
		if t.TokenHash != hash || t.DeviceID != deviceID {
			continue
		}
		delete(s.tokens, id)
		delete(s.order, id)
		if !now.Before(t.ExpiresAt) {
			return nil, sql.ErrNoRows
		}
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *fakeRefreshStore) DeleteByUserDevice(_ context.Context, userID, deviceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.tokens {
		if t.UserID == userID && t.DeviceID == deviceID {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeRefreshStore) DeleteByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.tokens {
		if t.UserID == userID {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeRefreshStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.tokens {
		if !now.Before(t.ExpiresAt) {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeRefreshStore) count(userID, deviceID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.UserID == userID && t.DeviceID == deviceID {
			n++
		}
	}
	return n
}

type recordingAudit struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (r *recordingAudit) Record(_ context.Context, event models.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAudit) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

func (r *recordingAudit) last(name string) (models.AuditEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Event == name {
			return r.events[i], true
		}
	}
	return models.AuditEvent{}, false
}

type stubSessionData struct {
	data  *dto.SessionData
	hit   bool
	err   error
	calls int
}

func (s *stubSessionData) Collect(context.Context, *models.User) (*dto.SessionData, bool, error) {
	s.calls++
	if s.err != nil {
		return nil, false, s.err
	}
	return s.data, s.hit, nil
}
