package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tendant/social-idm/pkg/domain"
)

// AccountsRepository handles account persistence.
type AccountsRepository struct {
	db sqlx.ExtContext
}

// NewAccountsRepository creates a repository that runs each statement on its
// own. Use TxManager for atomic workflows.
func NewAccountsRepository(db *sqlx.DB) *AccountsRepository {
	return &AccountsRepository{db: db}
}

type accountRow struct {
	ID          int64        `db:"id"`
	Email       string       `db:"email"`
	Nickname    string       `db:"nickname"`
	CreatedAt   time.Time    `db:"created_at"`
	LastLoginAt sql.NullTime `db:"last_login_at"`
}

type socialLinkRow struct {
	Provider string `db:"provider"`
	SocialID string `db:"social_id"`
}

const selectAccount = `
	SELECT a.id, a.email, a.nickname, a.created_at, a.last_login_at
	FROM accounts a
`

// FindByID retrieves an account by id.
func (r *AccountsRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.findOne(ctx, selectAccount+`WHERE a.id = ?`, id)
}

// FindByEmail retrieves an account by normalized email.
func (r *AccountsRepository) FindByEmail(ctx context.Context, email domain.Email) (*domain.Account, error) {
	return r.findOne(ctx, selectAccount+`WHERE a.email = ?`, email.Address())
}

// FindByNickname retrieves an account by exact nickname.
func (r *AccountsRepository) FindByNickname(ctx context.Context, nickname domain.Nickname) (*domain.Account, error) {
	return r.findOne(ctx, selectAccount+`WHERE a.nickname = ?`, nickname.Name())
}

// FindBySocialLink retrieves the account a provider identity is linked to.
func (r *AccountsRepository) FindBySocialLink(ctx context.Context, link domain.SocialLink) (*domain.Account, error) {
	return r.findOne(ctx, selectAccount+`
		JOIN account_social_links l ON l.account_id = a.id
		WHERE l.provider = ? AND l.social_id = ?`,
		link.Provider(), link.SocialID(),
	)
}

// Save inserts or updates the account row and reconciles its social links.
func (r *AccountsRepository) Save(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	id := account.ID()
	lastLogin := nullTime(account.LastLoginAt())

	if account.IsNew() {
		query := `
			INSERT INTO accounts (email, nickname, created_at, last_login_at)
			VALUES (?, ?, ?, ?)
			RETURNING id
		`
		err := r.db.QueryRowxContext(ctx, r.db.Rebind(query),
			account.Email().Address(), account.Nickname().Name(), account.CreatedAt().UTC(), lastLogin,
		).Scan(&id)
		if err != nil {
			return nil, translateError(err)
		}
	} else {
		query := `
			UPDATE accounts
			SET email = ?, nickname = ?, last_login_at = ?
			WHERE id = ?
		`
		result, err := r.db.ExecContext(ctx, r.db.Rebind(query),
			account.Email().Address(), account.Nickname().Name(), lastLogin, id,
		)
		if err != nil {
			return nil, translateError(err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return nil, translateError(err)
		}
		if rows == 0 {
			return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
		}
	}

	if err := r.syncSocialLinks(ctx, id, account.SocialLinks()); err != nil {
		return nil, err
	}

	saved, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
	}
	return saved, nil
}

// Delete removes an account and its social links.
func (r *AccountsRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM account_social_links WHERE account_id = ?`), id); err != nil {
		return translateError(err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM accounts WHERE id = ?`), id); err != nil {
		return translateError(err)
	}
	return nil
}

// syncSocialLinks makes the stored links for accountID equal to links.
func (r *AccountsRepository) syncSocialLinks(ctx context.Context, accountID int64, links []domain.SocialLink) error {
	stored, err := r.loadLinks(ctx, accountID)
	if err != nil {
		return err
	}

	want := make(map[socialLinkRow]bool, len(links))
	for _, l := range links {
		want[socialLinkRow{Provider: l.Provider(), SocialID: l.SocialID()}] = true
	}
	have := make(map[socialLinkRow]bool, len(stored))
	for _, row := range stored {
		have[row] = true
		if !want[row] {
			_, err := r.db.ExecContext(ctx,
				r.db.Rebind(`DELETE FROM account_social_links WHERE account_id = ? AND provider = ? AND social_id = ?`),
				accountID, row.Provider, row.SocialID,
			)
			if err != nil {
				return translateError(err)
			}
		}
	}

	for _, l := range links {
		row := socialLinkRow{Provider: l.Provider(), SocialID: l.SocialID()}
		if have[row] {
			continue
		}
		_, err := r.db.ExecContext(ctx,
			r.db.Rebind(`INSERT INTO account_social_links (account_id, provider, social_id, created_at) VALUES (?, ?, ?, ?)`),
			accountID, row.Provider, row.SocialID, time.Now().UTC(),
		)
		if err != nil {
			return translateError(err)
		}
	}
	return nil
}

func (r *AccountsRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	var row accountRow
	err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err)
	}
	return r.hydrate(ctx, row)
}

func (r *AccountsRepository) loadLinks(ctx context.Context, accountID int64) ([]socialLinkRow, error) {
	var rows []socialLinkRow
	err := sqlx.SelectContext(ctx, r.db, &rows,
		r.db.Rebind(`SELECT provider, social_id FROM account_social_links WHERE account_id = ? ORDER BY id`),
		accountID,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}

func (r *AccountsRepository) hydrate(ctx context.Context, row accountRow) (*domain.Account, error) {
	email, err := domain.NewEmail(row.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: account %d has invalid stored email: %v", domain.ErrStorageFault, row.ID, err)
	}
	nickname, err := domain.NewNickname(row.Nickname)
	if err != nil {
		return nil, fmt.Errorf("%w: account %d has invalid stored nickname: %v", domain.ErrStorageFault, row.ID, err)
	}

	linkRows, err := r.loadLinks(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	links := make([]domain.SocialLink, 0, len(linkRows))
	for _, lr := range linkRows {
		link, err := domain.NewSocialLink(lr.Provider, lr.SocialID)
		if err != nil {
			// A provider may have been removed from the allow-list.
			slog.Warn("skipping stored social link", "account_id", row.ID, "provider", lr.Provider, "error", err)
			continue
		}
		links = append(links, link)
	}

	var lastLogin *time.Time
	if row.LastLoginAt.Valid {
		t := row.LastLoginAt.Time
		lastLogin = &t
	}
	return domain.RestoreAccount(row.ID, email, nickname, links, row.CreatedAt, lastLogin), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
