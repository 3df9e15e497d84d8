package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hifravl/toolstock-backend/internal/users"
	"github.com/hifravl/toolstock-backend/pkg/config"
	pkgmodels "github.com/hifravl/toolstock-backend/pkg/db/models"
	"github.com/hifravl/toolstock-backend/pkg/enums"
	pkgerrors "github.com/hifravl/toolstock-backend/pkg/errors"
	"github.com/hifravl/toolstock-backend/pkg/security"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserRepository struct {
	data      map[string]*pkgmodels.User
	created   *pkgmodels.User
	createErr error
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{data: map[string]*pkgmodels.User{}}
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) Create(ctx context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

func newRegisterServiceForTest(t *testing.T, repo *stubUserRepository, signup config.SignupConfig) RegisterService {
	t.Helper()

	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: stubTxRunner{},
		RepoFactory: func(tx *gorm.DB) RegistrationRepo {
			return repo
		},
		PasswordConfig: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     8,
			ArgonKeyLen:      16,
		},
		SignupConfig: signup,
	})
	require.NoError(t, err)
	return svc
}

func TestRegister_createsUserWithHashedPassword(t *testing.T) {
	repo := newStubUserRepository()
	svc := newRegisterServiceForTest(t, repo, config.SignupConfig{})

	dto, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Alex Doe",
		Email:    "Alex.Doe@Example.com",
		Password: "super-secret",
	})
	require.NoError(t, err)
	require.NotNil(t, dto)
	assert.Equal(t, "alex.doe@example.com", dto.Email)
	assert.Equal(t, enums.RoleUser, dto.Role)

	require.NotNil(t, repo.created)
	assert.NotEqual(t, "super-secret", repo.created.PasswordHash)
	ok, err := security.VerifyPassword("super-secret", repo.created.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegister_duplicateEmailConflicts(t *testing.T) {
	repo := newStubUserRepository()
	svc := newRegisterServiceForTest(t, repo, config.SignupConfig{})

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Alex Doe",
		Email:    "alex@example.com",
		Password: "super-secret",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterRequest{
		Name:     "Alex Clone",
		Email:    "alex@example.com",
		Password: "other-secret",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestRegister_adminRequiresSignupKey(t *testing.T) {
	repo := newStubUserRepository()
	svc := newRegisterServiceForTest(t, repo, config.SignupConfig{AdminKey: "top-secret"})

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Admin Wannabe",
		Email:    "admin@example.com",
		Password: "super-secret",
		Role:     "admin",
		AdminKey: "wrong",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	dto, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Real Admin",
		Email:    "admin@example.com",
		Password: "super-secret",
		Role:     "admin",
		AdminKey: "top-secret",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, dto.Role)
}

func TestRegister_adminBlockedWhenKeyUnset(t *testing.T) {
	repo := newStubUserRepository()
	svc := newRegisterServiceForTest(t, repo, config.SignupConfig{})

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Admin Wannabe",
		Email:    "admin@example.com",
		Password: "super-secret",
		Role:     "admin",
		AdminKey: "",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}
