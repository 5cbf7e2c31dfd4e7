package ledger

import (
	"sync"
	"time"
)

// account is the mutable state behind an Account. All fields except the
// immutable identity are guarded by mu.
type account struct {
	mu sync.Mutex

	id        string
	username  string
	createdAt time.Time

	secretHash  string
	displayName string
	email       string
	phone       string
	kind        AccountKind

	balance int64
	txs     []Transaction // most recent first
	history []int64       // oldest first, len <= HistoryCapacity
}

func newAccount(id string, in NewAccount, secretHash string, now time.Time) *account {
	return &account{
		id:          id,
		username:    in.Username,
		createdAt:   now,
		secretHash:  secretHash,
		displayName: in.DisplayName,
		email:       in.Email,
		phone:       in.Phone,
		kind:        in.Kind,
		history:     []int64{0},
	}
}

// applyBalanceChange sets the balance and records it in the trend buffer.
// Callers must have validated sufficiency.
func (a *account) applyBalanceChange(newBalance int64) {
	a.balance = newBalance
	a.history = append(a.history, newBalance)
	if over := len(a.history) - HistoryCapacity; over > 0 {
		a.history = append(a.history[:0:0], a.history[over:]...)
	}
}

// appendTransaction puts t at the front of the history.
func (a *account) appendTransaction(t Transaction) {
	a.txs = append(a.txs, Transaction{})
	copy(a.txs[1:], a.txs)
	a.txs[0] = t
}

// post applies a signed delta and records the matching transaction.
func (a *account) post(t Transaction) Transaction {
	a.applyBalanceChange(a.balance + t.Amount)
	t.BalanceAfter = a.balance
	a.appendTransaction(t)
	return t
}

func (a *account) snapshot() Account {
	return Account{
		ID:          a.id,
		Username:    a.username,
		DisplayName: a.displayName,
		Email:       a.email,
		Phone:       a.phone,
		Kind:        a.kind,
		Balance:     a.balance,
		CreatedAt:   a.createdAt,
	}
}

func (a *account) transactions() []Transaction {
	out := make([]Transaction, len(a.txs))
	copy(out, a.txs)
	return out
}

func (a *account) balanceHistory() []int64 {
	out := make([]int64, len(a.history))
	copy(out, a.history)
	return out
}
