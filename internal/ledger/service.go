package ledger

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"osryn.bank/internal/auth"
	"osryn.bank/internal/ids"
)

// maxIDAttempts bounds the retries when a generated account id collides.
const maxIDAttempts = 32

// Service defines ledger operations.
type Service interface {
	CreateAccount(ctx context.Context, in NewAccount) (Account, error)
	Authenticate(ctx context.Context, username, secret string) (Account, error)
	GetAccount(ctx context.Context, id string) (Account, error)
	UpdateProfile(ctx context.Context, id string, p Profile) (Account, error)
	ChangeSecret(ctx context.Context, id, current, next string) error
	Deposit(ctx context.Context, id string, amount int64) (Transaction, error)
	Withdraw(ctx context.Context, id string, amount int64) (Transaction, error)
	Transfer(ctx context.Context, fromID, toID string, amount int64) (TransferResult, error)
	PayBill(ctx context.Context, id, biller string, amount int64) (Transaction, error)
	ListTransactions(ctx context.Context, id string) ([]Transaction, error)
	BalanceHistory(ctx context.Context, id string) ([]int64, error)
}

// InMemory implements Service with in-process concurrency safety.
// The registry lock guards membership; each account has its own lock for
// balance and history. Transfers lock both accounts in id order.
type InMemory struct {
	mu     sync.RWMutex
	accts  map[string]*account
	byUser map[string]*account // folded username -> account

	cost  int
	newID func() string
	now   func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

var _ Service = (*InMemory)(nil)

// Option configures an InMemory ledger.
type Option func(*InMemory)

// WithPasswordCost sets the bcrypt cost used for stored secrets.
func WithPasswordCost(cost int) Option {
	return func(l *InMemory) { l.cost = cost }
}

// WithIDGenerator overrides the account id source.
func WithIDGenerator(fn func() string) Option {
	return func(l *InMemory) {
		if fn != nil {
			l.newID = fn
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(fn func() time.Time) Option {
	return func(l *InMemory) {
		if fn != nil {
			l.now = fn
		}
	}
}

// NewInMemory creates a fresh, empty ledger.
func NewInMemory(opts ...Option) *InMemory {
	l := &InMemory{
		accts:  make(map[string]*account),
		byUser: make(map[string]*account),
		cost:   auth.DefaultCost,
		newID:  ids.AccountNumber,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Len reports the number of accounts.
func (l *InMemory) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.accts)
}

func (l *InMemory) CreateAccount(ctx context.Context, in NewAccount) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	in.Username = strings.TrimSpace(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Username == "" || in.Secret == "" || len(in.Secret) > auth.MaxPasswordBytes {
		return Account{}, ErrInvalidInput
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Username
	}
	switch in.Kind {
	case "":
		in.Kind = KindSavings
	case KindSavings, KindCurrent:
	default:
		return Account{}, ErrInvalidInput
	}

	// Hash outside the registry lock; bcrypt is deliberately slow.
	hash, err := auth.HashPassword(in.Secret, l.cost)
	if err != nil {
		return Account{}, err
	}

	key := foldUsername(in.Username)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.byUser[key]; taken {
		return Account{}, ErrDuplicateUsername
	}
	id, err := l.allocateID()
	if err != nil {
		return Account{}, err
	}
	acc := newAccount(id, in, hash, l.now())
	l.accts[id] = acc
	l.byUser[key] = acc
	return acc.snapshot(), nil
}

// allocateID draws ids until one is free. Caller holds l.mu.
func (l *InMemory) allocateID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := l.newID()
		if id == "" {
			continue
		}
		if _, exists := l.accts[id]; !exists {
			return id, nil
		}
	}
	return "", ErrIDSpaceExhausted
}

func (l *InMemory) Authenticate(ctx context.Context, username, secret string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	l.mu.RLock()
	acc, ok := l.byUser[foldUsername(username)]
	l.mu.RUnlock()

	if !ok {
		// Pay for one comparison anyway so a miss looks like a bad secret.
		_ = auth.VerifyPassword(l.missHash(), secret)
		return Account{}, ErrInvalidCredentials
	}

	acc.mu.Lock()
	hash := acc.secretHash
	acc.mu.Unlock()

	if err := auth.VerifyPassword(hash, secret); err != nil {
		return Account{}, ErrInvalidCredentials
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.snapshot(), nil
}

func (l *InMemory) missHash() string {
	l.dummyOnce.Do(func() {
		l.dummyHash, _ = auth.HashPassword(ids.New(), l.cost)
	})
	return l.dummyHash
}

func (l *InMemory) GetAccount(ctx context.Context, id string) (Account, error) {
	acc, err := l.lookup(id)
	if err != nil {
		return Account{}, err
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.snapshot(), nil
}

func (l *InMemory) UpdateProfile(ctx context.Context, id string, p Profile) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	if p.DisplayName != nil && strings.TrimSpace(*p.DisplayName) == "" {
		return Account{}, ErrInvalidInput
	}
	acc, err := l.lookup(id)
	if err != nil {
		return Account{}, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	if p.DisplayName != nil {
		acc.displayName = strings.TrimSpace(*p.DisplayName)
	}
	if p.Email != nil {
		acc.email = strings.TrimSpace(*p.Email)
	}
	if p.Phone != nil {
		acc.phone = strings.TrimSpace(*p.Phone)
	}
	return acc.snapshot(), nil
}

func (l *InMemory) ChangeSecret(ctx context.Context, id, current, next string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if next == "" || len(next) > auth.MaxPasswordBytes {
		return ErrInvalidInput
	}
	acc, err := l.lookup(id)
	if err != nil {
		return err
	}

	acc.mu.Lock()
	old := acc.secretHash
	acc.mu.Unlock()

	if err := auth.VerifyPassword(old, current); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(next, l.cost)
	if err != nil {
		return err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	// Lost a race with another change: the verified secret is stale.
	if acc.secretHash != old {
		return ErrInvalidCredentials
	}
	acc.secretHash = hash
	return nil
}

func (l *InMemory) Deposit(ctx context.Context, id string, amount int64) (Transaction, error) {
	if err := ctx.Err(); err != nil {
		return Transaction{}, err
	}
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	acc, err := l.lookup(id)
	if err != nil {
		return Transaction{}, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	if acc.balance > math.MaxInt64-amount {
		return Transaction{}, ErrInvalidAmount
	}
	return acc.post(newTx(TxDeposit, amount, "ATM / Cash", "", l.now())), nil
}

func (l *InMemory) Withdraw(ctx context.Context, id string, amount int64) (Transaction, error) {
	return l.debit(ctx, id, amount, TxWithdrawal, "ATM Withdrawal")
}

func (l *InMemory) PayBill(ctx context.Context, id, biller string, amount int64) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	biller = strings.TrimSpace(biller)
	if biller == "" {
		return Transaction{}, ErrInvalidInput
	}
	return l.debit(ctx, id, amount, TxBillPayment, "To: "+biller)
}

func (l *InMemory) debit(ctx context.Context, id string, amount int64, kind TxKind, desc string) (Transaction, error) {
	if err := ctx.Err(); err != nil {
		return Transaction{}, err
	}
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	acc, err := l.lookup(id)
	if err != nil {
		return Transaction{}, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	if acc.balance < amount {
		return Transaction{}, ErrInsufficientFunds
	}
	return acc.post(newTx(kind, -amount, desc, "", l.now())), nil
}

func (l *InMemory) Transfer(ctx context.Context, fromID, toID string, amount int64) (TransferResult, error) {
	if err := ctx.Err(); err != nil {
		return TransferResult{}, err
	}
	if amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	// A transfer to oneself has no valid target.
	if fromID == toID {
		return TransferResult{}, ErrAccountNotFound
	}
	from, err := l.lookup(fromID)
	if err != nil {
		return TransferResult{}, err
	}
	to, err := l.lookup(toID)
	if err != nil {
		return TransferResult{}, err
	}

	first, second := from, to
	if second.id < first.id {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if from.balance < amount {
		return TransferResult{}, ErrInsufficientFunds
	}
	if to.balance > math.MaxInt64-amount {
		return TransferResult{}, ErrInvalidAmount
	}

	now := l.now()
	debit := from.post(newTx(TxTransferOut, -amount, "To: "+to.displayName, to.id, now))
	credit := to.post(newTx(TxTransferIn, amount, "From: "+from.displayName, from.id, now))
	return TransferResult{Debit: debit, Credit: credit}, nil
}

func (l *InMemory) ListTransactions(ctx context.Context, id string) ([]Transaction, error) {
	acc, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.transactions(), nil
}

func (l *InMemory) BalanceHistory(ctx context.Context, id string) ([]int64, error) {
	acc, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.balanceHistory(), nil
}

func (l *InMemory) lookup(id string) (*account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, ok := l.accts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acc, nil
}

func newTx(kind TxKind, amount int64, desc, counterparty string, at time.Time) Transaction {
	return Transaction{
		ID:           ids.New(),
		Reference:    ids.Reference(),
		Kind:         kind,
		Amount:       amount,
		Description:  desc,
		Counterparty: counterparty,
		CreatedAt:    at,
	}
}

func foldUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}
