package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tendant/social-idm/pkg/domain"
)

// ProfileService reads and edits the signed-in user's profile.
type ProfileService struct {
	uow    domain.UnitOfWork
	logger *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(uow domain.UnitOfWork, logger *slog.Logger) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{uow: uow, logger: logger}
}

// GetProfile returns the account snapshot, or nil if no such account exists.
func (s *ProfileService) GetProfile(ctx context.Context, accountID int64) (*Snapshot, error) {
	start := time.Now()
	defer observeOperation("get_profile", start)

	ctx, span := tracer.Start(ctx, "account.GetProfile",
		trace.WithAttributes(attribute.Int64("account.id", accountID)))
	defer span.End()

	var snap *Snapshot
	err := s.uow.WithinTx(ctx, func(ctx context.Context, accounts domain.AccountRepository) error {
		acc, err := accounts.FindByID(ctx, accountID)
		if err != nil || acc == nil {
			return err
		}
		out := NewSnapshot(acc)
		snap = &out
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		s.logger.ErrorContext(ctx, "get profile failed", "account_id", accountID, "error", err)
		return nil, err
	}
	return snap, nil
}

// UpdateNickname renames the account. The new name must be valid and not
// held by any other account; keeping the current name succeeds without a
// uniqueness lookup.
func (s *ProfileService) UpdateNickname(ctx context.Context, accountID int64, nickname string) (*Snapshot, error) {
	start := time.Now()
	defer observeOperation("update_nickname", start)

	ctx, span := tracer.Start(ctx, "account.UpdateNickname",
		trace.WithAttributes(attribute.Int64("account.id", accountID)))
	defer span.End()

	var (
		snap    Snapshot
		changed bool
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, accounts domain.AccountRepository) error {
		acc, err := accounts.FindByID(ctx, accountID)
		if err != nil {
			return err
		}
		if acc == nil {
			return fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, accountID)
		}

		newName, err := domain.NewNickname(nickname)
		if err != nil {
			return err
		}

		previous := acc.Nickname()
		if err := acc.UpdateNickname(ctx, newName, nicknameAvailable(accounts)); err != nil {
			return err
		}
		changed = acc.Nickname() != previous

		saved, err := accounts.Save(ctx, acc)
		if err != nil {
			return err
		}
		snap = NewSnapshot(saved)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		args := []any{"account_id", accountID, "error", err, "kind", ErrorKind(err)}
		if isFault(err) {
			s.logger.ErrorContext(ctx, "update nickname failed", args...)
		} else {
			s.logger.WarnContext(ctx, "update nickname rejected", args...)
		}
		return nil, err
	}

	if changed {
		nicknameChanges.Inc()
		s.logger.InfoContext(ctx, "nickname changed", "account_id", accountID)
	}
	return &snap, nil
}

// nicknameAvailable treats a name as free when nobody holds it or when the
// holder is the asking account itself.
func nicknameAvailable(accounts domain.AccountRepository) domain.NicknameAvailable {
	return func(ctx context.Context, nickname domain.Nickname, accountID int64) (bool, error) {
		holder, err := accounts.FindByNickname(ctx, nickname)
		if err != nil {
			return false, err
		}
		return holder == nil || holder.ID() == accountID, nil
	}
}
