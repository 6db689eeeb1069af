package domain

import "context"

// AccountRepository persists Account aggregates. Finders return (nil, nil)
// when nothing matches. Implementations translate storage failures into the
// error categories in this package.
type AccountRepository interface {
	FindByID(ctx context.Context, id int64) (*Account, error)
	FindByEmail(ctx context.Context, email Email) (*Account, error)
	FindByNickname(ctx context.Context, nickname Nickname) (*Account, error)
	FindBySocialLink(ctx context.Context, link SocialLink) (*Account, error)

	// Save inserts a new account or updates an existing one together with its
	// social links, and returns the persisted state with its assigned id.
	Save(ctx context.Context, account *Account) (*Account, error)

	// Delete removes the account and its links. Deleting an absent id is not
	// an error.
	Delete(ctx context.Context, id int64) error
}

// UnitOfWork runs fn atomically: every repository call made through the
// supplied AccountRepository commits together or not at all.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, accounts AccountRepository) error) error
}
