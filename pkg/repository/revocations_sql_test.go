package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/social-idm/pkg/auth"
	"github.com/tendant/social-idm/pkg/domain"
)

// runRevocationListSuite exercises the SQL revocation list against any
// migrated database.
func runRevocationListSuite(t *testing.T, open func(t *testing.T) *sqlx.DB) {
	ctx := context.Background()

	t.Run("revoked until expiry", func(t *testing.T) {
		list := NewSQLRevocationList(open(t))
		now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		list.now = func() time.Time { return now }

		revoked, err := list.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)

		require.NoError(t, list.Revoke(ctx, "jti-1", time.Hour))
		revoked, err = list.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		now = now.Add(2 * time.Hour)
		revoked, err = list.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("revoking again extends expiry", func(t *testing.T) {
		list := NewSQLRevocationList(open(t))
		now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		list.now = func() time.Time { return now }

		require.NoError(t, list.Revoke(ctx, "jti-2", time.Minute))
		require.NoError(t, list.Revoke(ctx, "jti-2", time.Hour))

		now = now.Add(30 * time.Minute)
		revoked, err := list.IsRevoked(ctx, "jti-2")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("expired rows are purged", func(t *testing.T) {
		db := open(t)
		list := NewSQLRevocationList(db)
		now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		list.now = func() time.Time { return now }

		require.NoError(t, list.Revoke(ctx, "old", time.Minute))
		now = now.Add(time.Hour)
		require.NoError(t, list.Revoke(ctx, "new", time.Minute))

		var jtis []string
		require.NoError(t, db.SelectContext(ctx, &jtis, `SELECT jti FROM revoked_tokens`))
		assert.Equal(t, []string{"new"}, jtis)
	})

	t.Run("empty jti and non-positive ttl are ignored", func(t *testing.T) {
		db := open(t)
		list := NewSQLRevocationList(db)
		require.NoError(t, list.Revoke(ctx, "", time.Hour))
		require.NoError(t, list.Revoke(ctx, "jti-3", 0))

		var n int
		require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(*) FROM revoked_tokens`))
		assert.Zero(t, n)

		revoked, err := list.IsRevoked(ctx, "")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("blacklist survives a new token service", func(t *testing.T) {
		db := open(t)
		cfg := auth.TokenConfig{JWTSecret: []byte("0123456789abcdef0123456789abcdef")}

		first, err := auth.NewTokenService(cfg, NewSQLRevocationList(db))
		require.NoError(t, err)
		pair, err := first.IssueForUser(ctx, 42)
		require.NoError(t, err)
		require.NoError(t, first.Blacklist(ctx, pair.RefreshToken))

		restarted, err := auth.NewTokenService(cfg, NewSQLRevocationList(db))
		require.NoError(t, err)
		_, err = restarted.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, domain.ErrTokenRevoked)
	})
}

func TestSQLRevocationList_SQLite(t *testing.T) {
	runRevocationListSuite(t, newSQLiteDB)
}
