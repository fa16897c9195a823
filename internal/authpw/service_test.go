package authpw

import (
	"context"
	"errors"
	"testing"

	"notesapp/api/internal/store"
)

// mockUserStore is a mock implementation of UserStore for testing
type mockUserStore struct {
	users      map[string]store.User
	emailIndex map[string]string // email -> userID
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:      make(map[string]store.User),
		emailIndex: make(map[string]string),
	}
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if userID, ok := m.emailIndex[email]; ok {
		return m.users[userID], nil
	}
	return store.User{}, errors.New("user not found")
}

func (m *mockUserStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return store.User{}, errors.New("user not found")
}

func (m *mockUserStore) CreateUser(ctx context.Context, user store.User) error {
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user.ID
	return nil
}

func TestSignUpCreatesUserWithHashedPassword(t *testing.T) {
	ms := newMockUserStore()
	svc := NewService(ms)

	profile, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:    "Avery@Example.com",
		Password: "correct-horse",
		Name:     "Avery",
	})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if profile.ID == "" {
		t.Fatal("expected a generated user ID")
	}
	if profile.Email != "avery@example.com" {
		t.Fatalf("expected lowercased email, got %q", profile.Email)
	}

	stored := ms.users[profile.ID]
	if stored.PasswordHash == "" || stored.PasswordHash == "correct-horse" {
		t.Fatalf("expected hashed password, got %q", stored.PasswordHash)
	}
}

func TestSignUpValidation(t *testing.T) {
	tests := []struct {
		name string
		req  SignUpRequest
	}{
		{name: "missing email", req: SignUpRequest{Password: "correct-horse", Name: "Avery"}},
		{name: "missing password", req: SignUpRequest{Email: "a@example.com", Name: "Avery"}},
		{name: "missing name", req: SignUpRequest{Email: "a@example.com", Password: "correct-horse"}},
		{name: "short password", req: SignUpRequest{Email: "a@example.com", Password: "short", Name: "Avery"}},
		{name: "bad email", req: SignUpRequest{Email: "not-an-email", Password: "correct-horse", Name: "Avery"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMockUserStore())
			if _, err := svc.SignUp(context.Background(), tt.req); err == nil {
				t.Fatal("expected SignUp() to fail")
			}
		})
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	ms := newMockUserStore()
	svc := NewService(ms)

	if _, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:    "avery@example.com",
		Password: "correct-horse",
		Name:     "Avery",
	}); err != nil {
		t.Fatalf("first SignUp() error = %v", err)
	}
	_, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:    "avery@example.com",
		Password: "other-password",
		Name:     "Impostor",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignInWithCorrectPassword(t *testing.T) {
	ms := newMockUserStore()
	svc := NewService(ms)

	profile, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:    "avery@example.com",
		Password: "correct-horse",
		Name:     "Avery",
	})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	user, err := svc.SignIn(context.Background(), SignInRequest{
		Email:    "avery@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if user.ID != profile.ID {
		t.Fatalf("expected user %s, got %s", profile.ID, user.ID)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	ms := newMockUserStore()
	svc := NewService(ms)

	if _, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:    "avery@example.com",
		Password: "correct-horse",
		Name:     "Avery",
	}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	_, err := svc.SignIn(context.Background(), SignInRequest{
		Email:    "avery@example.com",
		Password: "wrong-horse",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignInDoesNotRevealUnknownEmail(t *testing.T) {
	svc := NewService(newMockUserStore())

	_, err := svc.SignIn(context.Background(), SignInRequest{
		Email:    "nobody@example.com",
		Password: "whatever-password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}
