package service

import (
	"context"
	"errors"
	"testing"

	"mosaic/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates user and issues a valid token", func(t *testing.T) {
		t.Parallel()
		creds := newTestCredentials()
		repo := noopUserRepo()
		var saved *models.User
		repo.createFn = func(_ context.Context, u *models.User) error {
			u.ID = 11
			saved = u
			return nil
		}
		svc := NewAuthService(repo, creds)

		res, err := svc.Register(context.Background(), RegisterInput{
			Username: "ada",
			Email:    " Ada@Example.com ",
			Password: "correct horse",
		})
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, "ada@example.com", saved.Email)
		assert.NotEqual(t, "correct horse", saved.Password)
		assert.True(t, creds.VerifyPassword("correct horse", saved.Password))

		id, err := creds.ValidateToken(res.Token)
		require.NoError(t, err)
		assert.Equal(t, uint(11), id)
		assert.Equal(t, uint(11), res.User.ID)
	})

	t.Run("existing username or email is a duplicate", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.findByUsernameOrEmailFn = func(context.Context, string, string) (*models.User, error) {
			return &models.User{ID: 1, Username: "ada"}, nil
		}
		created := false
		repo.createFn = func(context.Context, *models.User) error {
			created = true
			return nil
		}
		svc := NewAuthService(repo, newTestCredentials())

		_, err := svc.Register(context.Background(), RegisterInput{Username: "ada", Email: "new@example.com", Password: "correct horse"})
		assert.Equal(t, models.CodeDuplicateUser, models.ErrorCode(err))
		assert.False(t, created)
	})

	t.Run("lost race on the unique index is a duplicate", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.createFn = func(context.Context, *models.User) error {
			return models.NewDuplicateUserError()
		}
		svc := NewAuthService(repo, newTestCredentials())

		_, err := svc.Register(context.Background(), RegisterInput{Username: "ada", Email: "ada@example.com", Password: "correct horse"})
		assert.Equal(t, models.CodeDuplicateUser, models.ErrorCode(err))
	})

	validation := []struct {
		name string
		in   RegisterInput
	}{
		{name: "missing username", in: RegisterInput{Email: "a@example.com", Password: "correct horse"}},
		{name: "missing email", in: RegisterInput{Username: "ada", Password: "correct horse"}},
		{name: "missing password", in: RegisterInput{Username: "ada", Email: "a@example.com"}},
		{name: "bad username", in: RegisterInput{Username: "a!", Email: "a@example.com", Password: "correct horse"}},
		{name: "bad email", in: RegisterInput{Username: "ada", Email: "nope", Password: "correct horse"}},
		{name: "short password", in: RegisterInput{Username: "ada", Email: "a@example.com", Password: "short"}},
	}
	for _, tt := range validation {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewAuthService(noopUserRepo(), newTestCredentials())
			_, err := svc.Register(context.Background(), tt.in)
			assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()
	creds := newTestCredentials()
	hash, err := creds.HashPassword("correct horse")
	require.NoError(t, err)
	ada := &models.User{ID: 5, Username: "ada", Email: "ada@example.com", Password: hash}

	newRepo := func() *userRepoStub {
		repo := noopUserRepo()
		repo.getByUsernameFn = func(_ context.Context, name string) (*models.User, error) {
			if name == "ada" {
				return ada, nil
			}
			return nil, nil
		}
		repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
			if email == "ada@example.com" {
				return ada, nil
			}
			return nil, nil
		}
		return repo
	}

	tests := []struct {
		name     string
		in       LoginInput
		wantCode string
	}{
		{name: "username", in: LoginInput{Identifier: "ada", Password: "correct horse"}},
		{name: "email fallback", in: LoginInput{Identifier: "ADA@example.com", Password: "correct horse"}},
		{name: "wrong password", in: LoginInput{Identifier: "ada", Password: "wrong horse"}, wantCode: models.CodeUnauthorized},
		{name: "unknown user", in: LoginInput{Identifier: "bob", Password: "correct horse"}, wantCode: models.CodeUnauthorized},
		{name: "missing password", in: LoginInput{Identifier: "ada"}, wantCode: models.CodeValidation},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewAuthService(newRepo(), creds)
			res, err := svc.Login(context.Background(), tt.in)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, models.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			id, err := creds.ValidateToken(res.Token)
			require.NoError(t, err)
			assert.Equal(t, ada.ID, id)
		})
	}

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		t.Parallel()
		svc := NewAuthService(newRepo(), creds)
		_, errWrong := svc.Login(context.Background(), LoginInput{Identifier: "ada", Password: "nope nope"})
		_, errUnknown := svc.Login(context.Background(), LoginInput{Identifier: "bob", Password: "nope nope"})
		assert.Equal(t, errWrong.Error(), errUnknown.Error())
	})
}

func TestAuthService_Resolve(t *testing.T) {
	t.Parallel()
	creds := newTestCredentials()
	token, err := creds.IssueToken(9)
	require.NoError(t, err)

	t.Run("known user", func(t *testing.T) {
		t.Parallel()
		svc := NewAuthService(noopUserRepo(), creds)
		user, err := svc.Resolve(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, uint(9), user.ID)
	})

	t.Run("deleted user", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		}
		_, err := NewAuthService(repo, creds).Resolve(context.Background(), token)
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("repository failure surfaces", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("db down")
		repo := noopUserRepo()
		repo.getByIDFn = func(context.Context, uint) (*models.User, error) { return nil, boom }
		_, err := NewAuthService(repo, creds).Resolve(context.Background(), token)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("bad token", func(t *testing.T) {
		t.Parallel()
		_, err := NewAuthService(noopUserRepo(), creds).Resolve(context.Background(), "bad")
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})
}
