package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgAuth "github.com/hifravl/toolstock-backend/pkg/auth"
	"github.com/hifravl/toolstock-backend/pkg/auth/session"
	"github.com/hifravl/toolstock-backend/pkg/config"
	pkgmodels "github.com/hifravl/toolstock-backend/pkg/db/models"
	"github.com/hifravl/toolstock-backend/pkg/enums"
	pkgerrors "github.com/hifravl/toolstock-backend/pkg/errors"
	"github.com/hifravl/toolstock-backend/pkg/security"
)

var testJWTConfig = config.JWTConfig{
	Secret:                 "test-secret",
	Issuer:                 "toolstock-test",
	ExpirationMinutes:      15,
	RefreshTokenTTLMinutes: 60,
}

type stubLoginRepo struct {
	user      *pkgmodels.User
	lastLogin *time.Time
}

func (s *stubLoginRepo) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubLoginRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin = &at
	return nil
}

type stubSessionManager struct {
	sessions map[string]string
	revoked  []string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{sessions: map[string]string{}}
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	s.sessions[accessID] = token
	return token, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := s.sessions[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	newAccessID := session.NewAccessID()
	token := "refresh-" + newAccessID
	s.sessions[newAccessID] = token
	return newAccessID, token, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(s.sessions, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

func newLoginTestUser(t *testing.T, email, password string, active bool) *pkgmodels.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	})
	require.NoError(t, err)
	return &pkgmodels.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         "Alex Doe",
		Role:         enums.RoleUser,
		IsActive:     active,
	}
}

func newAuthServiceForTest(t *testing.T, repo *stubLoginRepo, sessions *stubSessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
	})
	require.NoError(t, err)
	return svc
}

func TestLogin_issuesTokenPairAndRecordsLogin(t *testing.T) {
	repo := &stubLoginRepo{user: newLoginTestUser(t, "alex@example.com", "super-secret", true)}
	sessions := newStubSessionManager()
	svc := newAuthServiceForTest(t, repo, sessions)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "Alex@Example.com",
		Password: "super-secret",
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.NotNil(t, resp.User)
	assert.Equal(t, "alex@example.com", resp.User.Email)
	require.NotNil(t, repo.lastLogin)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, repo.user.ID, claims.UserID)
	assert.Equal(t, enums.RoleUser, claims.Role)

	// The jti must key the stored refresh session.
	stored, ok := sessions.sessions[claims.ID]
	require.True(t, ok)
	assert.Equal(t, stored, resp.RefreshToken)
}

func TestLogin_rejectsBadCredentialsAndInactiveAccounts(t *testing.T) {
	repo := &stubLoginRepo{user: newLoginTestUser(t, "alex@example.com", "super-secret", true)}
	svc := newAuthServiceForTest(t, repo, newStubSessionManager())

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "alex@example.com", "not-it"},
		{"unknown email", "nobody@example.com", "super-secret"},
		{"blank email", "", "super-secret"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), LoginRequest{Email: tc.email, Password: tc.password})
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
		})
	}

	repo.user.IsActive = false
	_, err := svc.Login(context.Background(), LoginRequest{Email: "alex@example.com", Password: "super-secret"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestRefresh_rotatesSessionAndInvalidatesOldToken(t *testing.T) {
	repo := &stubLoginRepo{user: newLoginTestUser(t, "alex@example.com", "super-secret", true)}
	sessions := newStubSessionManager()
	svc := newAuthServiceForTest(t, repo, sessions)

	login, err := svc.Login(context.Background(), LoginRequest{Email: "alex@example.com", Password: "super-secret"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, login.AccessToken, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, repo.user.ID, claims.UserID)

	// The original pair is dead after rotation.
	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestRefresh_rejectsForgedAccessToken(t *testing.T) {
	repo := &stubLoginRepo{user: newLoginTestUser(t, "alex@example.com", "super-secret", true)}
	svc := newAuthServiceForTest(t, repo, newStubSessionManager())

	_, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  "not-a-jwt",
		RefreshToken: "whatever",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestLogout_revokesSession(t *testing.T) {
	repo := &stubLoginRepo{user: newLoginTestUser(t, "alex@example.com", "super-secret", true)}
	sessions := newStubSessionManager()
	svc := newAuthServiceForTest(t, repo, sessions)

	login, err := svc.Login(context.Background(), LoginRequest{Email: "alex@example.com", Password: "super-secret"})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims.ID))
	assert.Contains(t, sessions.revoked, claims.ID)
	assert.Empty(t, sessions.sessions)

	err = svc.Logout(context.Background(), "  ")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}
