package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tendant/social-idm/pkg/auth"
	"github.com/tendant/social-idm/pkg/domain"
)

var tracer = otel.Tracer("github.com/tendant/social-idm/pkg/account")

// ErrCodeFlowUnsupported is returned when an authorization code is sent for
// a provider whose verifier cannot redeem codes.
var ErrCodeFlowUnsupported = fmt.Errorf("%w: provider does not accept authorization codes", domain.ErrValidation)

// VerifierResolver resolves a provider name to its verifier.
type VerifierResolver interface {
	Get(provider string) (auth.SocialTokenVerifier, error)
}

// TokenIssuer issues and revokes session tokens.
type TokenIssuer interface {
	IssueForUser(ctx context.Context, accountID int64) (*domain.TokenPair, error)
	Blacklist(ctx context.Context, refreshToken string) error
}

// LoginRequest is the input to LoginOrRegister. IDToken is verified directly;
// Code (with CodeVerifier) is used only when IDToken is empty.
type LoginRequest struct {
	Provider           string
	IDToken            string
	Code               string
	CodeVerifier       string
	NicknameSuggestion string
}

// AuthResult is returned by a successful login.
type AuthResult struct {
	Tokens    domain.TokenPair
	Account   Snapshot
	IsNewUser bool
}

// Login results recorded in metrics and logs.
const (
	resultReturning  = "returning"
	resultLinked     = "linked"
	resultRegistered = "registered"
)

// AuthService signs users in with a social provider, creating or linking
// accounts as needed.
type AuthService struct {
	uow       domain.UnitOfWork
	verifiers VerifierResolver
	tokens    TokenIssuer
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(uow domain.UnitOfWork, verifiers VerifierResolver, tokens TokenIssuer, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		uow:       uow,
		verifiers: verifiers,
		tokens:    tokens,
		logger:    logger,
		now:       time.Now,
	}
}

// LoginOrRegister verifies the provider credential and signs the user in.
//
// Accounts are matched by social link first, then by email (which links the
// new provider to the existing account). Otherwise a new account is created
// with the suggested nickname, the provider's display name or the email local
// part, in that order. The credential is verified before the transaction
// opens; the lookup, the account write and the token issuance then run in one
// transaction and either all happen or none do.
func (s *AuthService) LoginOrRegister(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	start := time.Now()
	defer observeOperation("login", start)

	ctx, span := tracer.Start(ctx, "account.LoginOrRegister",
		trace.WithAttributes(attribute.String("auth.provider", req.Provider)))
	defer span.End()

	var (
		result  *AuthResult
		outcome string
	)
	err := func() error {
		// Verification talks to the provider and must not hold a connection.
		verifier, err := s.verifiers.Get(req.Provider)
		if err != nil {
			return err
		}
		claim, err := s.verify(ctx, verifier, req)
		if err != nil {
			return err
		}
		link, err := domain.NewSocialLink(verifier.Provider(), claim.SocialID)
		if err != nil {
			return err
		}
		email, err := domain.NewEmail(claim.Email)
		if err != nil {
			return err
		}

		return s.uow.WithinTx(ctx, func(ctx context.Context, accounts domain.AccountRepository) error {
			account, branch, err := s.resolve(ctx, accounts, link, email, claim, req.NicknameSuggestion)
			if err != nil {
				return err
			}
			outcome = branch

			saved, err := accounts.Save(ctx, account)
			if err != nil {
				return err
			}

			tokens, err := s.tokens.IssueForUser(ctx, saved.ID())
			if err != nil {
				return err
			}

			result = &AuthResult{
				Tokens:    *tokens,
				Account:   NewSnapshot(saved),
				IsNewUser: outcome == resultRegistered,
			}
			return nil
		})
	}()

	provider := normalizeLabel(req.Provider)
	if err != nil {
		kind := ErrorKind(err)
		loginsTotal.WithLabelValues(provider, kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		s.logFailure(ctx, "social login failed", err, "provider", req.Provider)
		return nil, err
	}

	loginsTotal.WithLabelValues(provider, outcome).Inc()
	span.SetAttributes(
		attribute.Int64("account.id", result.Account.ID),
		attribute.String("auth.result", outcome),
	)
	s.logger.InfoContext(ctx, "social login",
		"provider", provider,
		"account_id", result.Account.ID,
		"result", outcome,
	)
	return result, nil
}

// Logout revokes the refresh token. Unusable tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ctx, span := tracer.Start(ctx, "account.Logout")
	defer span.End()

	if err := s.tokens.Blacklist(ctx, refreshToken); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		s.logFailure(ctx, "logout failed", err)
		return err
	}
	return nil
}

func (s *AuthService) verify(ctx context.Context, verifier auth.SocialTokenVerifier, req LoginRequest) (*domain.VerifiedClaim, error) {
	if req.IDToken == "" && req.Code != "" {
		exchanger, ok := verifier.(auth.CodeExchanger)
		if !ok {
			return nil, ErrCodeFlowUnsupported
		}
		return exchanger.ExchangeCode(ctx, req.Code, req.CodeVerifier)
	}
	return verifier.Verify(ctx, req.IDToken)
}

// resolve finds or builds the account to sign in and reports which branch
// was taken. Only the returned account is mutated.
func (s *AuthService) resolve(
	ctx context.Context,
	accounts domain.AccountRepository,
	link domain.SocialLink,
	email domain.Email,
	claim *domain.VerifiedClaim,
	suggestion string,
) (*domain.Account, string, error) {
	now := s.now()

	existing, err := accounts.FindBySocialLink(ctx, link)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		existing.RecordLogin(now)
		return existing, resultReturning, nil
	}

	existing, err = accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		existing.AddSocialLink(link)
		existing.RecordLogin(now)
		return existing, resultLinked, nil
	}

	nickname, err := domain.NewNickname(chooseNickname(suggestion, claim.Nickname, email))
	if err != nil {
		return nil, "", err
	}
	holder, err := accounts.FindByNickname(ctx, nickname)
	if err != nil {
		return nil, "", err
	}
	if holder != nil {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrNicknameTaken, nickname.Name())
	}
	return domain.NewAccount(email, nickname, link, now), resultRegistered, nil
}

func chooseNickname(suggestion, claimed string, email domain.Email) string {
	switch {
	case suggestion != "":
		return suggestion
	case claimed != "":
		return claimed
	default:
		return email.LocalPart()
	}
}

func (s *AuthService) logFailure(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "error", err, "kind", ErrorKind(err))
	if isFault(err) {
		s.logger.ErrorContext(ctx, msg, args...)
		return
	}
	s.logger.WarnContext(ctx, msg, args...)
}

// normalizeLabel keeps metric label cardinality bounded to registered
// providers.
func normalizeLabel(provider string) string {
	if p := strings.ToLower(strings.TrimSpace(provider)); domain.IsSupportedProvider(p) {
		return p
	}
	return "unknown"
}
