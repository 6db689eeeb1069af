package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tendant/social-idm/pkg/domain"
)

// Postgres error codes we react to.
const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// translateError maps driver errors onto domain error kinds so callers never
// see driver types. Unique violations are classified by the constraint that
// fired.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return uniqueViolation(pqErr.Constraint)
		case pqSerializationFailure, pqDeadlockDetected:
			// The competing transaction won the same registration or rename.
			return fmt.Errorf("%w: concurrent update, retry: %s", domain.ErrAlreadyExists, pqErr.Message)
		}
		return fmt.Errorf("%w: %s", domain.ErrStorageFault, pqErr.Message)
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return uniqueViolation(sqliteErr.Error())
		case sqlite3.SQLITE_CONSTRAINT:
			if msg := sqliteErr.Error(); strings.Contains(msg, "UNIQUE constraint failed") {
				return uniqueViolation(msg)
			}
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: database busy, retry: %v", domain.ErrStorageFault, sqliteErr)
		}
	}

	return fmt.Errorf("%w: %v", domain.ErrStorageFault, err)
}

// uniqueViolation picks the conflict kind from a constraint name or driver
// message, e.g. "accounts_nickname_key" or
// "UNIQUE constraint failed: accounts.nickname".
func uniqueViolation(detail string) error {
	detail = strings.ToLower(detail)
	switch {
	case strings.Contains(detail, "nickname"):
		return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, domain.ErrNicknameTaken)
	case strings.Contains(detail, "email"):
		return domain.ErrEmailTaken
	case strings.Contains(detail, "social"):
		return domain.ErrSocialLinkTaken
	default:
		return domain.ErrAlreadyExists
	}
}
