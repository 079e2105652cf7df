package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/coduxa/coduxa-api/internal/domain/activity"
	"github.com/coduxa/coduxa-api/internal/domain/user"
	"github.com/coduxa/coduxa-api/internal/pkg/jwt"
	"github.com/coduxa/coduxa-api/internal/pkg/password"
)

type fakeUserRepo struct {
	created *user.User
	byEmail *user.User
	byID    *user.User
}

func (f *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	f.created = u
	f.byID = u
	f.byEmail = u
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if f.byID != nil && f.byID.ID == id {
		return f.byID, nil
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if f.byEmail != nil && f.byEmail.Email == email {
		return f.byEmail, nil
	}
	return nil, user.ErrNotFound
}


type fakeRecorder struct {
	entries []*activity.Entry
}

func (f *fakeRecorder) Insert(ctx context.Context, e *activity.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

func newAuthService(repo user.Repository, rec activity.Recorder) *Service {
	jwtSvc := jwt.NewService("test-secret", 15*time.Minute, 7*24*time.Hour)
	return NewService(repo, jwtSvc, rec)
}

func TestRegisterCreatesUserAndTokens(t *testing.T) {
	repo := &fakeUserRepo{}
	rec := &fakeRecorder{}
	svc := newAuthService(repo, rec)

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "  Dev@Example.COM ",
		Username: "devone",
		Password: "super-secret-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.created == nil {
		t.Fatal("expected user to be created")
	}
	if repo.created.Email != "dev@example.com" {
		t.Fatalf("email not normalized: %q", repo.created.Email)
	}
	if repo.created.Role != user.RoleUser {
		t.Fatalf("expected role user, got %q", repo.created.Role)
	}
	if !password.Verify("super-secret-1", repo.created.PasswordHash) {
		t.Fatal("stored hash does not verify against the original password")
	}
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}
}

func TestRegisterRecordsActivity(t *testing.T) {
	rec := &fakeRecorder{}
	svc := newAuthService(&fakeUserRepo{}, rec)

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "dev@example.com",
		Username: "devone",
		Password: "super-secret-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.entries) != 1 || rec.entries[0].Type != activity.TypeUserRegistration {
		t.Fatalf("expected one user_registration entry, got %+v", rec.entries)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newAuthService(repo, nil)

	req := &RegisterRequest{Email: "dev@example.com", Username: "devone", Password: "super-secret-1"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "dev@example.com",
		Username: "devtwo",
		Password: "super-secret-2",
	})
	if err != ErrEmailAlreadyExists {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newAuthService(repo, nil)

	if _, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "dev@example.com",
		Username: "devone",
		Password: "super-secret-1",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	resp, err := svc.Login(context.Background(), &LoginRequest{Email: "dev@example.com", Password: "super-secret-1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.User.Email != "dev@example.com" {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}
	if resp.Tokens.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Fatalf("unexpected access TTL: %d", resp.Tokens.ExpiresIn)
	}
	if resp.Tokens.RefreshExpiresIn != int((7 * 24 * time.Hour).Seconds()) {
		t.Fatalf("unexpected refresh TTL: %d", resp.Tokens.RefreshExpiresIn)
	}

	if _, err := svc.Login(context.Background(), &LoginRequest{Email: "dev@example.com", Password: "wrong"}); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), &LoginRequest{Email: "nobody@example.com", Password: "x"}); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newAuthService(repo, nil)

	registered, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "dev@example.com",
		Username: "devone",
		Password: "super-secret-1",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), registered.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.Tokens.AccessToken == "" {
		t.Fatal("expected a new access token")
	}

	if _, err := svc.Refresh(context.Background(), "not-a-token"); err != ErrInvalidRefreshToken {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
	// An access token must not pass as a refresh token
	if _, err := svc.Refresh(context.Background(), registered.Tokens.AccessToken); err != ErrInvalidRefreshToken {
		t.Fatalf("expected ErrInvalidRefreshToken for access token, got %v", err)
	}
}
