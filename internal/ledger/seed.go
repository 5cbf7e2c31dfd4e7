package ledger

import "context"

// Demo account credentials created by SeedDemo.
const (
	DemoUsername = "admin"
	DemoSecret   = "admin"
)

// demoTrend is the display-only balance trend given to the demo account.
var demoTrend = []int64{500000, 520000, 480000, 600000, 850000, 700000, 1250050}

// SeedDemo registers the demo account and funds it with an initial deposit.
func SeedDemo(ctx context.Context, l *InMemory) (Account, error) {
	acc, err := l.CreateAccount(ctx, NewAccount{
		DisplayName: "Admin User",
		Username:    DemoUsername,
		Secret:      DemoSecret,
		Email:       "admin@osryn.bank",
		Phone:       "000-0000",
	})
	if err != nil {
		return Account{}, err
	}

	a, err := l.lookup(acc.ID)
	if err != nil {
		return Account{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.post(newTx(TxDeposit, 1250050, "Initial Funding", "", l.now()))
	a.history = append(a.history[:0:0], demoTrend...)
	return a.snapshot(), nil
}
