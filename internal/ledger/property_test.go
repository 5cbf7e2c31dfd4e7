package ledger

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type opKind int

const (
	opDeposit opKind = iota
	opWithdraw
	opTransfer
	opPayBill
	opKinds
)

type op struct {
	Kind   opKind
	From   int
	To     int
	Amount int64
}

func genOps(seed int64, accounts int) []op {
	var ops []op
	f := fuzz.NewWithSeed(seed).NilChance(0).NumElements(200, 400).Funcs(
		func(o *op, c fuzz.Continue) {
			o.Kind = opKind(c.Intn(int(opKinds)))
			o.From = c.Intn(accounts)
			o.To = c.Intn(accounts)
			// Mostly valid amounts with some zero and negative ones mixed in.
			o.Amount = int64(c.Intn(3000)) - 200
		},
	)
	f.Fuzz(&ops)
	return ops
}

func apply(ctx context.Context, l *InMemory, ids []string, o op) error {
	switch o.Kind {
	case opDeposit:
		_, err := l.Deposit(ctx, ids[o.From], o.Amount)
		return err
	case opWithdraw:
		_, err := l.Withdraw(ctx, ids[o.From], o.Amount)
		return err
	case opTransfer:
		_, err := l.Transfer(ctx, ids[o.From], ids[o.To], o.Amount)
		return err
	default:
		_, err := l.PayBill(ctx, ids[o.From], "Mobile Services", o.Amount)
		return err
	}
}

func expectedError(err error) bool {
	return err == nil ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrAccountNotFound)
}

func TestRandomSequencesKeepInvariants(t *testing.T) {
	ctx := context.Background()
	for seed := int64(1); seed <= 20; seed++ {
		l := newTestLedger()
		names := []string{"alice", "bob", "carol", "dave"}
		ids := make([]string, len(names))
		for i, n := range names {
			ids[i] = open(t, l, n).ID
		}

		var total int64
		for _, o := range genOps(seed, len(ids)) {
			before := make([]int64, len(ids))
			for i, id := range ids {
				before[i] = balance(t, l, id)
			}

			err := apply(ctx, l, ids, o)
			require.Truef(t, expectedError(err), "seed %d: unexpected error %v", seed, err)

			if err != nil {
				// Failed operations change nothing.
				for i, id := range ids {
					require.Equal(t, before[i], balance(t, l, id))
				}
				continue
			}
			switch o.Kind {
			case opDeposit:
				total += o.Amount
			case opWithdraw, opPayBill:
				total -= o.Amount
			}
			for _, id := range ids {
				requireConsistent(t, l, id)
			}
		}

		var sum int64
		for _, id := range ids {
			sum += balance(t, l, id)
		}
		require.Equalf(t, total, sum, "seed %d: money created or destroyed", seed)
	}
}

func TestConcurrentRandomOperations(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()
	names := []string{"alice", "bob", "carol", "dave", "erin", "frank"}
	ids := make([]string, len(names))
	for i, n := range names {
		ids[i] = open(t, l, n).ID
		fund(t, l, ids[i], 10_000)
	}

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)))
		g.Go(func() error {
			for i := 0; i < 300; i++ {
				from, to := rnd.Intn(len(ids)), rnd.Intn(len(ids))
				_, err := l.Transfer(ctx, ids[from], ids[to], int64(rnd.Intn(500)+1))
				if !expectedError(err) {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var sum int64
	for _, id := range ids {
		requireConsistent(t, l, id)
		sum += balance(t, l, id)
	}
	require.Equal(t, int64(10_000*len(ids)), sum)
}
