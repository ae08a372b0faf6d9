package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvellmar/storeratings-backend/internal/users"
	pkgauth "github.com/dvellmar/storeratings-backend/pkg/auth"
	"github.com/dvellmar/storeratings-backend/pkg/config"
	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	"github.com/dvellmar/storeratings-backend/pkg/enums"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/security"
)

type stubUserRepo struct {
	byEmail   map[string]*models.User
	createErr error
	created   *users.CreateUserDTO
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: map[string]*models.User{}}
}

func (s *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = &dto
	user := dto.ToModel()
	user.ID = uuid.New()
	s.byEmail[user.Email] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type stubSessions struct {
	revokedID  string
	revokedTTL time.Duration
}

func (s *stubSessions) Revoke(ctx context.Context, tokenID string, remaining time.Duration) error {
	s.revokedID = tokenID
	s.revokedTTL = remaining
	return nil
}

func fastPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func testTokenManager() *pkgauth.TokenManager {
	return pkgauth.NewTokenManager(config.JWTConfig{
		Secret:            "unit-test-secret-of-sufficient-size!",
		Issuer:            "storeratings",
		ExpirationMinutes: 15,
	})
}

func newTestService(t *testing.T, repo *stubUserRepo, sessions *stubSessions) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		TokenManager:   testTokenManager(),
		SessionManager: sessions,
		PasswordConfig: fastPasswordConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRegisterAssignsUserRole(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(t, repo, &stubSessions{})

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Riya Shah",
		Email:    "Riya@Example.com",
		Password: "plenty-strong-1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if repo.created.Role != enums.RoleUser {
		t.Fatalf("expected role user, got %s", repo.created.Role)
	}
	if repo.created.Email != "riya@example.com" {
		t.Fatalf("expected normalized email, got %q", repo.created.Email)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected an access token")
	}
	if resp.User.Email != "riya@example.com" {
		t.Fatalf("unexpected user %+v", resp.User)
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(t, repo, &stubSessions{})

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Name: "Riya", Email: "r@example.com", Password: "plenty-strong-1",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if repo.created.PasswordHash == "plenty-strong-1" {
		t.Fatal("password stored in plaintext")
	}
	ok, err := security.VerifyPassword("plenty-strong-1", repo.created.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("hash should verify, ok=%v err=%v", ok, err)
	}
}

func TestLoginUnknownEmailAndWrongPasswordShareMessage(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(t, repo, &stubSessions{})

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Name: "Riya", Email: "r@example.com", Password: "plenty-strong-1",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, unknownErr := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	_, wrongErr := svc.Login(context.Background(), LoginRequest{Email: "r@example.com", Password: "bad-guess"})

	for _, err := range []error{unknownErr, wrongErr} {
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
		if appErr.Message() != invalidCredentialsMessage {
			t.Fatalf("expected uniform message, got %q", appErr.Message())
		}
	}
}

func TestLoginSuccessReturnsParsableToken(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(t, repo, &stubSessions{})

	reg, err := svc.Register(context.Background(), RegisterRequest{
		Name: "Riya", Email: "r@example.com", Password: "plenty-strong-1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "r@example.com", Password: "plenty-strong-1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := testTokenManager().Parse(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != reg.User.ID {
		t.Fatalf("token subject mismatch: %s vs %s", claims.UserID, reg.User.ID)
	}
}

func TestLogoutDenylistsRemainingLifetime(t *testing.T) {
	sessions := &stubSessions{}
	svc := newTestService(t, newStubUserRepo(), sessions)

	expiry := time.Now().Add(10 * time.Minute)
	if err := svc.Logout(context.Background(), "jti-1", expiry); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if sessions.revokedID != "jti-1" {
		t.Fatalf("expected jti-1 revoked, got %q", sessions.revokedID)
	}
	if sessions.revokedTTL <= 9*time.Minute || sessions.revokedTTL > 10*time.Minute {
		t.Fatalf("unexpected ttl %s", sessions.revokedTTL)
	}
}

func TestMeUnknownUser(t *testing.T) {
	svc := newTestService(t, newStubUserRepo(), &stubSessions{})

	_, err := svc.Me(context.Background(), uuid.New())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
