package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"prodline_backend/internal/auth/password"
	"prodline_backend/internal/auth/repository"
	"prodline_backend/internal/auth/token"
	"prodline_backend/platform/apperr"
	"prodline_backend/platform/logger"
)

type fakeStore struct {
	users  map[uuid.UUID]repository.User
	tokens map[string]storedToken
}

type storedToken struct {
	userID    uuid.UUID
	expiresAt time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[uuid.UUID]repository.User),
		tokens: make(map[string]storedToken),
	}
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (repository.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (f *fakeStore) GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error) {
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) ListUsers(ctx context.Context) ([]repository.User, error) {
	out := make([]repository.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeStore) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	u, ok := f.users[id]
	return ok && u.IsActive, nil
}

func (f *fakeStore) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	f.tokens[tokenHash] = storedToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeStore) GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	t, ok := f.tokens[tokenHash]
	if !ok {
		return uuid.Nil, time.Time{}, repository.ErrNotFound
	}
	return t.userID, t.expiresAt, nil
}

func (f *fakeStore) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	delete(f.tokens, tokenHash)
	return nil
}

func (f *fakeStore) RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	for hash, t := range f.tokens {
		if t.userID == userID {
			delete(f.tokens, hash)
		}
	}
	return nil
}

type testConfig struct{}

func (testConfig) GetJWTAccessSecret() string        { return "test-secret" }
func (testConfig) GetAccessTokenTTL() time.Duration  { return 15 * time.Minute }
func (testConfig) GetRefreshTokenTTL() time.Duration { return 24 * time.Hour }

func addUser(t *testing.T, store *fakeStore, email, plain, role string, active bool) repository.User {
	t.Helper()
	hash, err := password.Hash(plain)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := repository.User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
	}
	store.users[u.ID] = u
	return u
}

func TestSignInIssuesAccessTokenWithRoleClaims(t *testing.T) {
	store := newFakeStore()
	user := addUser(t, store, "admin@factory.test", "correct horse", "admin", true)
	svc := New(store, testConfig{}, logger.New("test"))

	pair, err := svc.SignIn(context.Background(), user.Email, "correct horse")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if pair.RefreshToken == "" {
		t.Fatal("no refresh token issued")
	}

	parsed, err := jwt.Parse(pair.AccessToken, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("access token does not verify: %v", err)
	}

	claims := parsed.Claims.(jwt.MapClaims)
	if claims["type"] != "access" {
		t.Errorf("type claim = %v, want access", claims["type"])
	}
	if claims["sub"] != user.ID.String() {
		t.Errorf("sub claim = %v, want %s", claims["sub"], user.ID)
	}
	roles, _ := claims["roles"].([]interface{})
	if len(roles) != 1 || roles[0] != "admin" {
		t.Errorf("roles claim = %v, want [admin]", claims["roles"])
	}
}

func TestSignInRejectsBadPasswordAndInactiveAccount(t *testing.T) {
	store := newFakeStore()
	active := addUser(t, store, "worker@factory.test", "secret pw", "operator", true)
	inactive := addUser(t, store, "gone@factory.test", "secret pw", "operator", false)
	svc := New(store, testConfig{}, logger.New("test"))

	if _, err := svc.SignIn(context.Background(), active.Email, "wrong"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("bad password: err = %v, want unauthorized", err)
	}
	if _, err := svc.SignIn(context.Background(), inactive.Email, "secret pw"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("inactive account: err = %v, want unauthorized", err)
	}
	if _, err := svc.SignIn(context.Background(), "nobody@factory.test", "x"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("unknown user: err = %v, want unauthorized", err)
	}
}

func TestRefreshRotatesAndRevokesOldToken(t *testing.T) {
	store := newFakeStore()
	user := addUser(t, store, "worker@factory.test", "secret pw", "operator", true)
	svc := New(store, testConfig{}, logger.New("test"))

	pair, err := svc.SignIn(context.Background(), user.Email, "secret pw")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	rotated, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	// The used token must be gone.
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("replayed token: err = %v, want unauthorized", err)
	}

	// The rotated token still works.
	if _, err := svc.Refresh(context.Background(), rotated.RefreshToken); err != nil {
		t.Errorf("rotated token rejected: %v", err)
	}
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	store := newFakeStore()
	user := addUser(t, store, "worker@factory.test", "secret pw", "operator", true)
	svc := New(store, testConfig{}, logger.New("test"))

	raw, err := token.GenerateRandomToken(48)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	store.tokens[token.HashSHA256(raw)] = storedToken{
		userID:    user.ID,
		expiresAt: time.Now().Add(-time.Minute),
	}

	if _, err := svc.Refresh(context.Background(), raw); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expired token: err = %v, want unauthorized", err)
	}
	if len(store.tokens) != 0 {
		t.Error("expired token was not revoked")
	}
}

func TestSignOutRevokesToken(t *testing.T) {
	store := newFakeStore()
	user := addUser(t, store, "worker@factory.test", "secret pw", "operator", true)
	svc := New(store, testConfig{}, logger.New("test"))

	pair, err := svc.SignIn(context.Background(), user.Email, "secret pw")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := svc.SignOut(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("signed-out token: err = %v, want unauthorized", err)
	}
}
