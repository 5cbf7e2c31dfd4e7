package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osryn.bank/internal/auth"
)

func newTestLedger(opts ...Option) *InMemory {
	return NewInMemory(append([]Option{WithPasswordCost(auth.MinCost)}, opts...)...)
}

func open(t *testing.T, l *InMemory, username string) Account {
	t.Helper()
	acc, err := l.CreateAccount(context.Background(), NewAccount{
		DisplayName: strings.ToUpper(username[:1]) + username[1:],
		Username:    username,
		Secret:      username + "-pw",
		Email:       username + "@example.com",
		Phone:       "555-0100",
	})
	require.NoError(t, err)
	return acc
}

func fund(t *testing.T, l *InMemory, id string, amount int64) {
	t.Helper()
	_, err := l.Deposit(context.Background(), id, amount)
	require.NoError(t, err)
}

func balance(t *testing.T, l *InMemory, id string) int64 {
	t.Helper()
	acc, err := l.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

// requireConsistent checks that the balance equals the sum of the history
// and that nothing went negative.
func requireConsistent(t *testing.T, l *InMemory, id string) {
	t.Helper()
	ctx := context.Background()
	acc, err := l.GetAccount(ctx, id)
	require.NoError(t, err)
	txs, err := l.ListTransactions(ctx, id)
	require.NoError(t, err)

	var sum int64
	for _, tx := range txs {
		sum += tx.Amount
	}
	require.Equal(t, acc.Balance, sum, "balance must equal sum of transactions")
	require.GreaterOrEqual(t, acc.Balance, int64(0))

	hist, err := l.BalanceHistory(ctx, id)
	require.NoError(t, err)
	require.LessOrEqual(t, len(hist), HistoryCapacity)
	require.Equal(t, acc.Balance, hist[len(hist)-1])
}

func TestCreateAccountDefaults(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	acc := open(t, l, "alice")
	assert.Len(t, acc.ID, 9)
	assert.Equal(t, "alice", acc.Username)
	assert.Equal(t, "Alice", acc.DisplayName)
	assert.Equal(t, KindSavings, acc.Kind)
	assert.Zero(t, acc.Balance)
	assert.False(t, acc.CreatedAt.IsZero())

	hist, err := l.BalanceHistory(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, hist)

	txs, err := l.ListTransactions(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestCreateAccountDuplicateUsernameIgnoresCase(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	_, err := l.CreateAccount(ctx, NewAccount{Username: "Alice", Secret: "x"})
	require.NoError(t, err)

	_, err = l.CreateAccount(ctx, NewAccount{Username: "alice", Secret: "y"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = l.CreateAccount(ctx, NewAccount{Username: "  ALICE ", Secret: "y"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
	assert.Equal(t, 1, l.Len())
}

func TestCreateAccountValidation(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	cases := map[string]NewAccount{
		"blank username": {Username: "  ", Secret: "x"},
		"blank secret":   {Username: "bob"},
		"unknown kind":   {Username: "bob", Secret: "x", Kind: "brokerage"},
		"long secret":    {Username: "bob", Secret: strings.Repeat("s", 73)},
	}
	for name, in := range cases {
		_, err := l.CreateAccount(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidInput, name)
	}
	assert.Zero(t, l.Len())

	acc, err := l.CreateAccount(ctx, NewAccount{Username: "carol", Secret: "x", Kind: KindCurrent})
	require.NoError(t, err)
	assert.Equal(t, KindCurrent, acc.Kind)
}

func TestCreateAccountRetriesOnIDCollision(t *testing.T) {
	seq := []string{"000000001", "000000001", "000000001", "000000002"}
	var mu sync.Mutex
	gen := func() string {
		mu.Lock()
		defer mu.Unlock()
		id := seq[0]
		if len(seq) > 1 {
			seq = seq[1:]
		}
		return id
	}
	l := newTestLedger(WithIDGenerator(gen))

	a := open(t, l, "alice")
	b := open(t, l, "bob")
	assert.Equal(t, "000000001", a.ID)
	assert.Equal(t, "000000002", b.ID)

	// The generator is stuck on an id that is taken.
	_, err := l.CreateAccount(context.Background(), NewAccount{Username: "carol", Secret: "x"})
	assert.ErrorIs(t, err, ErrIDSpaceExhausted)
	assert.Equal(t, 2, l.Len())
}

func TestAuthenticate(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	alice := open(t, l, "alice")

	got, err := l.Authenticate(ctx, "ALICE", "alice-pw")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, wrongSecret := l.Authenticate(ctx, "alice", "nope")
	_, unknownUser := l.Authenticate(ctx, "mallory", "alice-pw")
	_, empty := l.Authenticate(ctx, "", "")

	for _, err := range []error{wrongSecret, unknownUser, empty} {
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, ErrInvalidCredentials.Error(), err.Error())
	}
}

func TestDeposit(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	acc := open(t, l, "alice")

	tx, err := l.Deposit(ctx, acc.ID, 2500)
	require.NoError(t, err)
	assert.Equal(t, TxDeposit, tx.Kind)
	assert.Equal(t, int64(2500), tx.Amount)
	assert.Equal(t, int64(2500), tx.BalanceAfter)
	assert.Equal(t, "ATM / Cash", tx.Description)
	assert.Len(t, tx.Reference, 8)
	assert.NotEmpty(t, tx.ID)

	for _, amt := range []int64{0, -5} {
		_, err := l.Deposit(ctx, acc.ID, amt)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	assert.Equal(t, int64(2500), balance(t, l, acc.ID))

	_, err = l.Deposit(ctx, "999999999", 10)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	requireConsistent(t, l, acc.ID)
}

func TestWithdraw(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	acc := open(t, l, "alice")
	fund(t, l, acc.ID, 1000)

	tx, err := l.Withdraw(ctx, acc.ID, 400)
	require.NoError(t, err)
	assert.Equal(t, TxWithdrawal, tx.Kind)
	assert.Equal(t, int64(-400), tx.Amount)
	assert.Equal(t, "ATM Withdrawal", tx.Description)

	_, err = l.Withdraw(ctx, acc.ID, 601)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = l.Withdraw(ctx, acc.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Withdraw(ctx, acc.ID, 600)
	require.NoError(t, err)
	assert.Zero(t, balance(t, l, acc.ID))
	requireConsistent(t, l, acc.ID)
}

func TestTransferSuccessAndBalance(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	a := open(t, l, "alice")
	b := open(t, l, "bob")
	fund(t, l, a.ID, 150)

	res, err := l.Transfer(ctx, a.ID, b.ID, 100)
	require.NoError(t, err)

	assert.Equal(t, int64(50), balance(t, l, a.ID))
	assert.Equal(t, int64(100), balance(t, l, b.ID))

	assert.Equal(t, TxTransferOut, res.Debit.Kind)
	assert.Equal(t, int64(-100), res.Debit.Amount)
	assert.Equal(t, "To: Bob", res.Debit.Description)
	assert.Equal(t, b.ID, res.Debit.Counterparty)

	assert.Equal(t, TxTransferIn, res.Credit.Kind)
	assert.Equal(t, int64(100), res.Credit.Amount)
	assert.Equal(t, "From: Alice", res.Credit.Description)
	assert.Equal(t, a.ID, res.Credit.Counterparty)

	aTxs, _ := l.ListTransactions(ctx, a.ID)
	bTxs, _ := l.ListTransactions(ctx, b.ID)
	require.Len(t, aTxs, 2)
	require.Len(t, bTxs, 1)
	assert.Equal(t, res.Debit, aTxs[0])
	assert.Equal(t, res.Credit, bTxs[0])

	requireConsistent(t, l, a.ID)
	requireConsistent(t, l, b.ID)
}

func TestTransferRejections(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	a := open(t, l, "alice")
	b := open(t, l, "bob")
	fund(t, l, a.ID, 100)

	cases := []struct {
		name   string
		from   string
		to     string
		amount int64
		want   error
	}{
		{"zero amount", a.ID, b.ID, 0, ErrInvalidAmount},
		{"negative amount", a.ID, b.ID, -1, ErrInvalidAmount},
		{"self transfer", a.ID, a.ID, 50, ErrAccountNotFound},
		{"unknown target", a.ID, "123456789", 50, ErrAccountNotFound},
		{"unknown sender", "123456789", b.ID, 50, ErrAccountNotFound},
		{"insufficient", a.ID, b.ID, 101, ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Transfer(ctx, tc.from, tc.to, tc.amount)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Equal(t, int64(100), balance(t, l, a.ID))
	assert.Zero(t, balance(t, l, b.ID))
	aTxs, _ := l.ListTransactions(ctx, a.ID)
	assert.Len(t, aTxs, 1)
}

func TestPayBill(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	acc := open(t, l, "alice")
	fund(t, l, acc.ID, 5000)

	tx, err := l.PayBill(ctx, acc.ID, "Electricity Corp", 1200)
	require.NoError(t, err)
	assert.Equal(t, TxBillPayment, tx.Kind)
	assert.Equal(t, int64(-1200), tx.Amount)
	assert.Equal(t, "To: Electricity Corp", tx.Description)

	_, err = l.PayBill(ctx, acc.ID, "Global Internet", 9000)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = l.PayBill(ctx, acc.ID, "Global Internet", -3)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = l.PayBill(ctx, acc.ID, "  ", 10)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, int64(3800), balance(t, l, acc.ID))
	requireConsistent(t, l, acc.ID)
}

func TestListTransactionsMostRecentFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	l := newTestLedger(WithClock(clock))
	ctx := context.Background()
	acc := open(t, l, "alice")

	fund(t, l, acc.ID, 100)
	_, err := l.Withdraw(ctx, acc.ID, 30)
	require.NoError(t, err)
	_, err = l.PayBill(ctx, acc.ID, "City Water Dept", 20)
	require.NoError(t, err)

	txs, err := l.ListTransactions(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, []TxKind{TxBillPayment, TxWithdrawal, TxDeposit},
		[]TxKind{txs[0].Kind, txs[1].Kind, txs[2].Kind})
	assert.True(t, txs[0].CreatedAt.After(txs[1].CreatedAt))
	assert.True(t, txs[1].CreatedAt.After(txs[2].CreatedAt))

	// Listings are copies.
	txs[0].Amount = 1_000_000
	again, _ := l.ListTransactions(ctx, acc.ID)
	assert.Equal(t, int64(-20), again[0].Amount)
}

func TestBalanceHistoryBounded(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	acc := open(t, l, "alice")

	for i := 1; i <= 25; i++ {
		fund(t, l, acc.ID, 1)
	}
	hist, err := l.BalanceHistory(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, hist, HistoryCapacity)

	want := make([]int64, 0, HistoryCapacity)
	for v := int64(6); v <= 25; v++ {
		want = append(want, v)
	}
	assert.Equal(t, want, hist)
}

func TestChangeSecret(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	acc := open(t, l, "alice")

	err := l.ChangeSecret(ctx, acc.ID, "wrong", "next")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	err = l.ChangeSecret(ctx, acc.ID, "alice-pw", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, l.ChangeSecret(ctx, acc.ID, "alice-pw", "next"))

	_, err = l.Authenticate(ctx, "alice", "alice-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = l.Authenticate(ctx, "alice", "next")
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	acc := open(t, l, "alice")

	name := "Alice Liddell"
	email := "alice@wonder.land"
	got, err := l.UpdateProfile(ctx, acc.ID, Profile{DisplayName: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, name, got.DisplayName)
	assert.Equal(t, email, got.Email)
	assert.Equal(t, "555-0100", got.Phone)
	assert.Equal(t, "alice", got.Username)

	blank := " "
	_, err = l.UpdateProfile(ctx, acc.ID, Profile{DisplayName: &blank})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Transfers pick up the new display name.
	b := open(t, l, "bob")
	fund(t, l, acc.ID, 10)
	res, err := l.Transfer(ctx, acc.ID, b.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, "From: Alice Liddell", res.Credit.Description)
}

func TestCanceledContext(t *testing.T) {
	l := newTestLedger()
	acc := open(t, l, "alice")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Deposit(ctx, acc.ID, 10)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, balance(t, l, acc.ID))
}

func TestSeedDemo(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	acc, err := SeedDemo(ctx, l)
	require.NoError(t, err)
	assert.Equal(t, int64(1250050), acc.Balance)
	assert.Equal(t, "Admin User", acc.DisplayName)

	got, err := l.Authenticate(ctx, DemoUsername, DemoSecret)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)

	txs, _ := l.ListTransactions(ctx, acc.ID)
	require.Len(t, txs, 1)
	assert.Equal(t, "Initial Funding", txs[0].Description)

	hist, _ := l.BalanceHistory(ctx, acc.ID)
	assert.Equal(t, demoTrend, hist)
	requireConsistent(t, l, acc.ID)

	_, err = SeedDemo(ctx, l)
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestConcurrentTransfers(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	a := open(t, l, "alice")
	b := open(t, l, "bob")
	fund(t, l, a.ID, 1000)
	fund(t, l, b.ID, 1000)

	var wg sync.WaitGroup
	const n = 200
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = l.Transfer(ctx, a.ID, b.ID, 3)
		}()
		go func() {
			defer wg.Done()
			_, _ = l.Transfer(ctx, b.ID, a.ID, 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(2000), balance(t, l, a.ID)+balance(t, l, b.ID))
	requireConsistent(t, l, a.ID)
	requireConsistent(t, l, b.ID)
}

func TestConcurrentRegistrationSameUsername(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.CreateAccount(ctx, NewAccount{
				Username: fmt.Sprintf("Dup%s", strings.Repeat("e", i%2)),
				Secret:   "x",
			})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	}
	// "Dup" and "Dupe" each succeed exactly once.
	assert.Equal(t, 2, ok)
	assert.Equal(t, 2, l.Len())
}
