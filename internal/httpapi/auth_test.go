package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Subby02/web-project/internal/domain"
	"github.com/Subby02/web-project/internal/store"
)

const testSecret = "test-secret-key-with-at-least-32-chars"

type userStoreStub struct {
	mu    sync.Mutex
	users map[string]domain.UserAccount
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	if _, exists := s.users[user.Username]; exists {
		return store.ErrConflict
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func TestRegisterUserStoresPasswordHash(t *testing.T) {
	users := &userStoreStub{}
	manager := NewAuthManager(testSecret, time.Hour, users)

	created, err := manager.RegisterUser(context.Background(), "NewShopper", "pass1234", domain.RoleCustomer)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if created.Username != "newshopper" {
		t.Fatalf("expected lower-cased username, got %s", created.Username)
	}
	if created.ID == "" {
		t.Fatalf("expected generated user id")
	}

	stored := users.users["newshopper"]
	if stored.Password == "pass1234" || !strings.HasPrefix(stored.Password, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", stored.Password)
	}

	resp, actor, err := manager.Login(context.Background(), "newshopper", "pass1234")
	if err != nil {
		t.Fatalf("login with registered user failed: %v", err)
	}
	if resp.AccessToken == "" || resp.Role != domain.RoleCustomer {
		t.Fatalf("unexpected login response %+v", resp)
	}
	if actor.UserID != stored.ID {
		t.Fatalf("expected actor id %s, got %s", stored.ID, actor.UserID)
	}

	if _, err := manager.RegisterUser(context.Background(), "newshopper", "pass1234", domain.RoleCustomer); err == nil {
		t.Fatalf("expected duplicate username to fail")
	}
}

func TestRegisterUserValidation(t *testing.T) {
	manager := NewAuthManager(testSecret, time.Hour, &userStoreStub{})

	cases := []struct {
		username string
		password string
		role     string
	}{
		{"abc", "pass1234", domain.RoleCustomer},
		{"with space", "pass1234", domain.RoleCustomer},
		{"shopper", "123", domain.RoleCustomer},
		{"shopper", "pass1234", "cashier"},
	}
	for _, tc := range cases {
		if _, err := manager.RegisterUser(context.Background(), tc.username, tc.password, tc.role); err == nil {
			t.Fatalf("expected %+v to be rejected", tc)
		}
	}
}

func TestLoginRejectsBadCredentialsAndInactiveAccounts(t *testing.T) {
	users := &userStoreStub{}
	manager := NewAuthManager(testSecret, time.Hour, users)
	if _, err := manager.RegisterUser(context.Background(), "shopper", "pass1234", domain.RoleCustomer); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, _, err := manager.Login(context.Background(), "shopper", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, err := manager.Login(context.Background(), "nobody", "pass1234"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}

	user := users.users["shopper"]
	user.Active = false
	users.users["shopper"] = user
	if _, _, err := manager.Login(context.Background(), "shopper", "pass1234"); !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("expected inactive account, got %v", err)
	}
}

func TestParseTokenRoundTripAndExpiry(t *testing.T) {
	users := &userStoreStub{}
	manager := NewAuthManager(testSecret, time.Hour, users)
	if _, err := manager.RegisterUser(context.Background(), "adminuser", "pass1234", domain.RoleAdmin); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	resp, _, err := manager.Login(context.Background(), "adminuser", "pass1234")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Role != domain.RoleAdmin || actor.Username != "adminuser" || actor.UserID == "" {
		t.Fatalf("unexpected actor %+v", actor)
	}

	other := NewAuthManager("another-secret-key-with-32-characters", time.Hour, users)
	if _, err := other.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}

	manager.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := manager.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}
