package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vulnreport/pkg/domain-errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("unit-test-key", "vulnreport")

	tok, err := svc.Generate("alice", "user", time.Hour)
	require.NoError(t, err)

	claims, err := svc.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "vulnreport", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateRejections(t *testing.T) {
	svc := NewService("unit-test-key", "vulnreport")

	t.Run("expired token", func(t *testing.T) {
		tok, err := svc.Generate("alice", "user", -time.Minute)
		require.NoError(t, err)

		_, err = svc.Validate(tok)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
		assert.Equal(t, "token has expired", dErrors.DescriptionOf(err))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewService("another-key", "vulnreport")
		tok, err := other.Generate("alice", "admin", time.Hour)
		require.NoError(t, err)

		_, err = svc.Validate(tok)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	t.Run("malformed token", func(t *testing.T) {
		_, err := svc.Validate("definitely.not.a-jwt")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	t.Run("missing username", func(t *testing.T) {
		tok, err := svc.Generate("", "user", time.Hour)
		require.NoError(t, err)

		_, err = svc.Validate(tok)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})
}
