package account

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/tendant/social-idm/pkg/auth"
	"github.com/tendant/social-idm/pkg/domain"
)

type storedAccount struct {
	email     domain.Email
	nickname  domain.Nickname
	links     []domain.SocialLink
	createdAt time.Time
	lastLogin *time.Time
}

// memStore is a transactional in-memory account store. WithinTx restores the
// previous state when fn fails.
type memStore struct {
	mu       sync.Mutex
	rows     map[int64]storedAccount
	nextID   int64
	saves    int
	deletes  int
	failSave error
	failFind error
	txs      int
	inTx     bool
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]storedAccount{}, nextID: 1}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, accounts domain.AccountRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txs++
	m.inTx = true
	defer func() { m.inTx = false }()

	backup := maps.Clone(m.rows)
	nextID := m.nextID
	if err := fn(ctx, memRepo{m}); err != nil {
		m.rows = backup
		m.nextID = nextID
		return err
	}
	return nil
}

// seed inserts an account outside any transaction and returns its id.
func (m *memStore) seed(email, nickname string, links ...domain.SocialLink) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, _ := domain.NewEmail(email)
	n, _ := domain.NewNickname(nickname)
	id := m.nextID
	m.nextID++
	m.rows[id] = storedAccount{email: e, nickname: n, links: links, createdAt: time.Unix(0, 0).UTC()}
	return id
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memStore) get(id int64) (storedAccount, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	return row, ok
}

type memRepo struct{ m *memStore }

func (r memRepo) restore(id int64, row storedAccount) *domain.Account {
	return domain.RestoreAccount(id, row.email, row.nickname, row.links, row.createdAt, row.lastLogin)
}

func (r memRepo) find(match func(storedAccount) bool) (*domain.Account, error) {
	if r.m.failFind != nil {
		return nil, r.m.failFind
	}
	for id, row := range r.m.rows {
		if match(row) {
			return r.restore(id, row), nil
		}
	}
	return nil, nil
}

func (r memRepo) FindByID(_ context.Context, id int64) (*domain.Account, error) {
	if r.m.failFind != nil {
		return nil, r.m.failFind
	}
	row, ok := r.m.rows[id]
	if !ok {
		return nil, nil
	}
	return r.restore(id, row), nil
}

func (r memRepo) FindByEmail(_ context.Context, email domain.Email) (*domain.Account, error) {
	return r.find(func(row storedAccount) bool { return row.email == email })
}

func (r memRepo) FindByNickname(_ context.Context, nickname domain.Nickname) (*domain.Account, error) {
	return r.find(func(row storedAccount) bool { return row.nickname == nickname })
}

func (r memRepo) FindBySocialLink(_ context.Context, link domain.SocialLink) (*domain.Account, error) {
	return r.find(func(row storedAccount) bool {
		for _, l := range row.links {
			if l == link {
				return true
			}
		}
		return false
	})
}

func (r memRepo) Save(_ context.Context, a *domain.Account) (*domain.Account, error) {
	r.m.saves++
	if r.m.failSave != nil {
		return nil, r.m.failSave
	}

	id := a.ID()
	if !a.IsNew() {
		if _, ok := r.m.rows[id]; !ok {
			return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
		}
	}
	for otherID, row := range r.m.rows {
		if otherID == id {
			continue
		}
		if row.nickname == a.Nickname() {
			return nil, fmt.Errorf("%w: %w", domain.ErrAlreadyExists, domain.ErrNicknameTaken)
		}
		if row.email == a.Email() {
			return nil, domain.ErrEmailTaken
		}
		for _, l := range row.links {
			if a.HasSocialLink(l) {
				return nil, domain.ErrSocialLinkTaken
			}
		}
	}

	if a.IsNew() {
		id = r.m.nextID
		r.m.nextID++
	}
	row := storedAccount{
		email:     a.Email(),
		nickname:  a.Nickname(),
		links:     a.SocialLinks(),
		createdAt: a.CreatedAt(),
		lastLogin: a.LastLoginAt(),
	}
	r.m.rows[id] = row
	return r.restore(id, row), nil
}

func (r memRepo) Delete(_ context.Context, id int64) error {
	r.m.deletes++
	delete(r.m.rows, id)
	return nil
}

// stubVerifier returns a fixed claim or error and counts calls.
type stubVerifier struct {
	provider string
	claim    *domain.VerifiedClaim
	err      error
	calls    int
	tokens   []string
	onVerify func()
}

func (v *stubVerifier) Provider() string { return v.provider }

func (v *stubVerifier) Verify(_ context.Context, token string) (*domain.VerifiedClaim, error) {
	v.calls++
	v.tokens = append(v.tokens, token)
	if v.onVerify != nil {
		v.onVerify()
	}
	if v.err != nil {
		return nil, v.err
	}
	c := *v.claim
	return &c, nil
}

// exchangingVerifier also redeems authorization codes.
type exchangingVerifier struct {
	stubVerifier
	codes []string
}

func (v *exchangingVerifier) ExchangeCode(_ context.Context, code, codeVerifier string) (*domain.VerifiedClaim, error) {
	v.codes = append(v.codes, code+"|"+codeVerifier)
	c := *v.claim
	return &c, nil
}

var _ auth.CodeExchanger = (*exchangingVerifier)(nil)

// countingIssuer issues deterministic tokens.
type countingIssuer struct {
	issued      []int64
	blacklisted []string
	err         error
}

func (c *countingIssuer) IssueForUser(_ context.Context, accountID int64) (*domain.TokenPair, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.issued = append(c.issued, accountID)
	return &domain.TokenPair{
		AccessToken:  fmt.Sprintf("access-%d", accountID),
		RefreshToken: fmt.Sprintf("refresh-%d", accountID),
		TokenType:    "Bearer",
		ExpiresIn:    900,
	}, nil
}

func (c *countingIssuer) Blacklist(_ context.Context, refreshToken string) error {
	if c.err != nil {
		return c.err
	}
	c.blacklisted = append(c.blacklisted, refreshToken)
	return nil
}

var errBoom = errors.New("boom")
