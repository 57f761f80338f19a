package authist_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-authist"
	"github.com/stretchr/testify/mock"
)

// MockLogger implements authist.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// memoryStore is an identity store keyed by lower cased email or username.
type memoryStore struct {
	mu     sync.Mutex
	byKey  map[string]*authist.Identity
	byUID  map[string]*authist.Identity
	saves  int
	nextID int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		byKey: map[string]*authist.Identity{},
		byUID: map[string]*authist.Identity{},
	}
}

func (s *memoryStore) add(key, hash string) *authist.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(key, authist.UserInfo{Email: key}, hash)
}

func (s *memoryStore) insert(key string, info authist.UserInfo, hash string) *authist.Identity {
	s.nextID++
	identity := &authist.Identity{
		User: authist.User{
			UID:          fmt.Sprintf("uid-%d", s.nextID),
			Email:        info.Email,
			DisplayName:  info.DisplayName,
			ProviderData: info,
		},
		PasswordHash: hash,
	}
	s.byKey[strings.ToLower(key)] = identity
	s.byUID[identity.UID] = identity
	return identity
}

func (s *memoryStore) GetIdentity(_ context.Context, key string) (*authist.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byKey[strings.ToLower(key)]
	if !ok {
		return nil, nil
	}
	clone := *identity
	return &clone, nil
}

func (s *memoryStore) GetUserByID(_ context.Context, uid string) (*authist.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byUID[uid]
	if !ok {
		return nil, nil
	}
	user := identity.User
	return &user, nil
}

func (s *memoryStore) SaveEmail(_ context.Context, info authist.UserInfo, hash string) (*authist.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	identity := s.insert(info.Email, info, hash)
	user := identity.User
	return &user, nil
}

func (s *memoryStore) SaveUsername(_ context.Context, info authist.UserInfo, hash string) (*authist.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	identity := s.insert(info.Username, info, hash)
	user := identity.User
	return &user, nil
}

func (s *memoryStore) SaveProfile(_ context.Context, info authist.UserInfo, _ *authist.Profile) (*authist.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	identity := s.insert(info.Email, info, "")
	user := identity.User
	return &user, nil
}

func (s *memoryStore) UpdatePassword(_ context.Context, hash string, user *authist.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byUID[user.UID]
	if !ok {
		return fmt.Errorf("unknown uid %s", user.UID)
	}
	identity.PasswordHash = hash
	return nil
}

func (s *memoryStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// failureRecorder collects errors passed to the failure hook.
type failureRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *failureRecorder) Hook(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *failureRecorder) All() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// stubFetcher returns a fixed profile, or err.
type stubFetcher struct {
	name    string
	profile *authist.Profile
	err     error
	tokens  []string
}

func (f *stubFetcher) Name() string { return f.name }

func (f *stubFetcher) FetchProfile(_ context.Context, token string) (*authist.Profile, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	return &p, nil
}
