package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLRevocationList keeps revoked refresh token ids in the revoked_tokens
// table, so revocations survive restarts and are shared by every instance
// using the same database.
type SQLRevocationList struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLRevocationList uses db, whose schema must be migrated.
func NewSQLRevocationList(db *sqlx.DB) *SQLRevocationList {
	return &SQLRevocationList{db: db, now: time.Now}
}

// Revoke records jti until ttl elapses. Revoking the same jti again moves its
// expiry. Rows that have already expired are purged on the way.
func (l *SQLRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	now := l.now().UTC()
	_, err := l.db.ExecContext(ctx, l.db.Rebind(`
		INSERT INTO revoked_tokens (jti, expires_at)
		VALUES (?, ?)
		ON CONFLICT (jti) DO UPDATE SET expires_at = excluded.expires_at`),
		jti, now.Add(ttl))
	if err != nil {
		return translateError(err)
	}
	if _, err := l.db.ExecContext(ctx, l.db.Rebind(`DELETE FROM revoked_tokens WHERE expires_at < ?`), now); err != nil {
		return translateError(err)
	}
	return nil
}

// IsRevoked reports whether jti is on the list and not yet expired.
func (l *SQLRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDuration.Observe(time.Since(start).Seconds())
	}()

	if jti == "" {
		return false, nil
	}
	var expiresAt time.Time
	err := l.db.GetContext(ctx, &expiresAt, l.db.Rebind(`SELECT expires_at FROM revoked_tokens WHERE jti = ?`), jti)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, translateError(err)
	}
	return l.now().Before(expiresAt), nil
}
