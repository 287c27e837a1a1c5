package service

import (
	"context"
	"testing"

	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func strPtr(s string) *string { return &s }

func TestUserService_CreateUser_Validation(t *testing.T) {
	t.Parallel()

	svc := NewUserService(noopUserRepo())
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateUserInput
	}{
		{"invalid email", CreateUserInput{Email: "nope", Password: "s3cret-pass"}},
		{"short password", CreateUserInput{Email: "a@example.com", Password: "short"}},
		{"numeric password", CreateUserInput{Email: "a@example.com", Password: "1234567890"}},
		{"bad username", CreateUserInput{Email: "a@example.com", Password: "s3cret-pass", Username: "_x"}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CreateUser(ctx, tc.input)
			assertValidationError(t, err)
		})
	}
}

func TestUserService_CreateUser_HashesAndNormalizes(t *testing.T) {
	t.Parallel()

	var stored *models.User
	users := noopUserRepo()
	users.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 1
		stored = u
		return nil
	}
	svc := NewUserService(users)

	user, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email: " Alice@Example.COM ", Password: "s3cret-pass", Username: "alice",
	})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "s3cret-pass", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("s3cret-pass")))
}

func TestUserService_CreateUser_DuplicateEmail(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.createFn = func(_ context.Context, _ *models.User) error { return repository.ErrDuplicate }
	svc := NewUserService(users)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{Email: "a@example.com", Password: "s3cret-pass"})
	assertValidationError(t, err)
	assert.Equal(t, "user with this email already exists", err.Error())
}

func TestUserService_Authenticate(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	users := usersByEmail(models.User{ID: 1, Email: "a@example.com", Password: string(hash)})
	svc := NewUserService(users)
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "A@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, uint(1), user.ID)

	_, err = svc.Authenticate(ctx, "a@example.com", "wrong-pass")
	assertUnauthorizedError(t, err)

	_, err = svc.Authenticate(ctx, "ghost@example.com", "s3cret-pass")
	assertUnauthorizedError(t, err)
}

func TestUserService_UpdateProfile_Partial(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Email: "a@example.com", Username: "alice", Bio: "old"}, nil
	}
	svc := NewUserService(users)

	user, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: 1, Bio: strPtr("new bio")})
	require.NoError(t, err)
	assert.Equal(t, "new bio", user.Bio)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "a@example.com", user.Email)

	_, err = svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: 1, Email: strPtr("broken")})
	assertValidationError(t, err)
}

func TestUserService_ByEmail_SelfOnly(t *testing.T) {
	t.Parallel()

	deleted := uint(0)
	users := usersByEmail(
		models.User{ID: 1, Email: "a@example.com"},
		models.User{ID: 2, Email: "b@example.com"},
	)
	users.deleteFn = func(_ context.Context, id uint) error {
		deleted = id
		return nil
	}
	svc := NewUserService(users)
	ctx := context.Background()

	_, err := svc.UpdateProfileByEmail(ctx, 1, "b@example.com", UpdateProfileInput{Bio: strPtr("x")})
	assertAppError(t, err, models.CodeForbidden)

	err = svc.DeleteUserByEmail(ctx, 1, "b@example.com")
	assertAppError(t, err, models.CodeForbidden)
	assert.Zero(t, deleted)

	err = svc.DeleteUserByEmail(ctx, 1, "ghost@example.com")
	assertAppError(t, err, models.CodeNotFound)

	require.NoError(t, svc.DeleteUserByEmail(ctx, 1, "A@example.com"))
	assert.Equal(t, uint(1), deleted)
}
