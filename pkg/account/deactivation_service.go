package account

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tendant/social-idm/pkg/domain"
)

// DeactivationService deletes accounts.
type DeactivationService struct {
	uow    domain.UnitOfWork
	logger *slog.Logger
}

// NewDeactivationService creates a new deactivation service.
func NewDeactivationService(uow domain.UnitOfWork, logger *slog.Logger) *DeactivationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeactivationService{uow: uow, logger: logger}
}

// Deactivate deletes the account and its social links. Deactivating an
// account that does not exist succeeds.
func (s *DeactivationService) Deactivate(ctx context.Context, accountID int64) error {
	start := time.Now()
	defer observeOperation("deactivate", start)

	ctx, span := tracer.Start(ctx, "account.Deactivate",
		trace.WithAttributes(attribute.Int64("account.id", accountID)))
	defer span.End()

	err := s.uow.WithinTx(ctx, func(ctx context.Context, accounts domain.AccountRepository) error {
		return accounts.Delete(ctx, accountID)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		s.logger.ErrorContext(ctx, "deactivate failed", "account_id", accountID, "error", err)
		return err
	}

	deactivations.Inc()
	s.logger.InfoContext(ctx, "account deactivated", "account_id", accountID)
	return nil
}
