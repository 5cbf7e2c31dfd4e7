package ledger

import "time"

// Amounts are represented in minor units (e.g., poisha). No floats.

// AccountKind tags an account; it carries no behaviour.
type AccountKind string

const (
	KindSavings AccountKind = "savings"
	KindCurrent AccountKind = "current"
)

// TxKind classifies a balance-affecting event.
type TxKind string

const (
	TxDeposit     TxKind = "deposit"
	TxWithdrawal  TxKind = "withdrawal"
	TxTransferIn  TxKind = "transfer_in"
	TxTransferOut TxKind = "transfer_out"
	TxBillPayment TxKind = "bill_payment"
)

// HistoryCapacity bounds the balance trend kept per account.
const HistoryCapacity = 20

// Account is a point-in-time copy of an account. The ledger never hands out
// its internal state.
type Account struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"display_name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Kind        AccountKind `json:"kind"`
	Balance     int64       `json:"balance"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Transaction is an immutable record of one balance change.
type Transaction struct {
	ID           string    `json:"id"`
	Reference    string    `json:"reference"`
	Kind         TxKind    `json:"kind"`
	Amount       int64     `json:"amount"` // signed minor units
	Description  string    `json:"description"`
	Counterparty string    `json:"counterparty,omitempty"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// TransferResult holds both legs of a transfer.
type TransferResult struct {
	Debit  Transaction `json:"debit"`
	Credit Transaction `json:"credit"`
}

// NewAccount carries registration input.
type NewAccount struct {
	DisplayName string
	Username    string
	Secret      string
	Email       string
	Phone       string
	Kind        AccountKind
}

// Profile carries the mutable contact metadata. Nil fields are left as is.
type Profile struct {
	DisplayName *string
	Email       *string
	Phone       *string
}
