package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
)

func TestDefaultTestDBConfig(t *testing.T) {
	t.Run("defaults to local test database port 55432", func(t *testing.T) {
		for _, k := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME"} {
			t.Setenv(k, "")
		}
		cfg := DefaultTestDBConfig()
		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, "55432", cfg.Port)
		assert.Equal(t, "storefront", cfg.User)
		assert.Equal(t, "storefront_gate", cfg.DBName)
	})

	t.Run("respects TEST_DB_* overrides", func(t *testing.T) {
		t.Setenv("TEST_DB_HOST", "postgres")
		t.Setenv("TEST_DB_PORT", "5432")
		t.Setenv("DB_SSL_MODE", "")
		cfg := DefaultTestDBConfig()
		assert.Equal(t, "postgres", cfg.Host)
		assert.Equal(t, "5432", cfg.Port)
		assert.Contains(t, cfg.DSN(), "@postgres:5432/")
		assert.Contains(t, cfg.DSN(), "sslmode=disable")
	})
}

func TestSessionBuilder(t *testing.T) {
	sess := NewSession().WithID("s-9").WithUser("u-9").WithRole(domainauth.RoleAdmin).Unverified().ExpiresIn(-time.Minute).Build()

	assert.Equal(t, "s-9", sess.ID)
	assert.Equal(t, "u-9", sess.UserID)
	assert.Equal(t, domainauth.RoleAdmin, sess.Role)
	assert.False(t, sess.EmailVerified)
	assert.True(t, sess.ExpiresAt.Before(time.Now()))

	p := ProfileFor(sess)
	assert.Equal(t, "u-9", p.UserID)
	assert.Equal(t, domainauth.RoleAdmin, p.Role)
}
