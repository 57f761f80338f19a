package authist_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-authist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("bcrypt by default", func(t *testing.T) {
		opts := &authist.PasswordProviderOptions{BcryptCost: 4}

		hash, err := opts.HashPassword("password")
		require.NoError(t, err)
		assert.NotEqual(t, "password", hash)
		assert.Contains(t, hash, "$2a$04$")

		assert.NoError(t, opts.ComparePassword("password", hash))
		assert.ErrorIs(t, opts.ComparePassword("wrong", hash), authist.ErrPasswordMismatch)
	})

	t.Run("plaintext", func(t *testing.T) {
		opts := &authist.PasswordProviderOptions{HashingAlgorithm: authist.HashPlaintext}

		hash, err := opts.HashPassword("password")
		require.NoError(t, err)
		assert.Equal(t, "password", hash)
		assert.NoError(t, opts.ComparePassword("password", hash))
		assert.ErrorIs(t, opts.ComparePassword("Password", hash), authist.ErrPasswordMismatch)
	})

	t.Run("empty password", func(t *testing.T) {
		_, err := (&authist.PasswordProviderOptions{}).HashPassword("")
		assert.ErrorIs(t, err, authist.ErrPasswordRequired)
	})

	t.Run("malformed stored hash", func(t *testing.T) {
		opts := &authist.PasswordProviderOptions{}
		assert.ErrorIs(t, opts.ComparePassword("password", "not-a-bcrypt-hash"), authist.ErrPasswordMismatch)
	})
}

func TestValidationHooks(t *testing.T) {
	ctx := context.Background()
	policy := authist.PasswordPolicy(8, 16)
	var inputErr *authist.InputError

	assert.NoError(t, policy(ctx, "12345678"))
	assert.ErrorAs(t, policy(ctx, "short"), &inputErr)
	assert.Equal(t, "password", inputErr.Field)
	assert.Error(t, policy(ctx, "this-one-is-far-too-long"))

	assert.NoError(t, authist.RequireEmailFormat(ctx, authist.UserInfo{Email: "a@example.com"}, ""))
	assert.ErrorAs(t, authist.RequireEmailFormat(ctx, authist.UserInfo{Email: "nope"}, ""), &inputErr)
	assert.Equal(t, "email", inputErr.Field)
	assert.ErrorIs(t, authist.RequireEmailFormat(ctx, authist.UserInfo{}, ""), authist.ErrEmailRequired)

	assert.NoError(t, authist.ConfirmPassword("secret", "secret"))
	assert.ErrorAs(t, authist.ConfirmPassword("secret", "secreT"), &inputErr)
	assert.Equal(t, "passwordConfirmation", inputErr.Field)
	assert.ErrorAs(t, authist.ConfirmPassword("secret", ""), &inputErr)
}
