package main

import (
	"context"
	"fmt"

	fuzz "github.com/google/gofuzz"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"osryn.bank/internal/ids"
	"osryn.bank/internal/ledger"
	"osryn.bank/internal/ledger/remote"
)

const (
	fAccounts  = "accounts"
	fTransfers = "transfers"
	fThreads   = "threads"
	fSeed      = "seed"
)

const smokeFunding = 1_000_00

type step struct {
	From, To int
	Amount   int64
}

func newSmoke() *cli.Command {
	return &cli.Command{
		Name:        "smoke",
		Usage:       "end-to-end check against a running server",
		Description: "opens throwaway accounts, runs concurrent transfers and verifies money is conserved",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: fAccounts, Value: 4},
			&cli.IntFlag{Name: fTransfers, Value: 50},
			&cli.IntFlag{Name: fThreads, Value: 8, Aliases: []string{"t"}},
			&cli.Int64Flag{Name: fSeed, Value: 1},
		},
		Action: runSmoke,
	}
}

func runSmoke(c *cli.Context) error {
	n := c.Int(fAccounts)
	if n < 2 {
		return errors.New("smoke needs at least two accounts")
	}
	client, err := dial(c)
	if err != nil {
		return err
	}
	svc := remote.NewService(client)

	ctx, cancel := remote.WithTimeout(c.Context, c.Duration(fTimeout)*10)
	defer cancel()

	run := ids.Reference()
	accts := make([]ledger.Account, n)
	for i := range accts {
		acc, err := svc.CreateAccount(ctx, ledger.NewAccount{
			DisplayName: fmt.Sprintf("Smoke %s-%d", run, i),
			Username:    fmt.Sprintf("smoke-%s-%d", run, i),
			Secret:      ids.New(),
		})
		if err != nil {
			return errors.Wrapf(err, "create account %d", i)
		}
		if _, err := svc.Deposit(ctx, acc.ID, smokeFunding); err != nil {
			return errors.Wrapf(err, "fund account %d", i)
		}
		accts[i] = acc
	}

	plan := genPlan(c.Int64(fSeed), c.Int(fTransfers), n)
	failed, err := execute(ctx, svc, accts, plan, c.Int(fThreads))
	if err != nil {
		return err
	}

	var total int64
	for i, acc := range accts {
		got, err := svc.GetAccount(ctx, acc.ID)
		if err != nil {
			return errors.Wrapf(err, "read account %d", i)
		}
		if got.Balance < 0 {
			return errors.Errorf("account %s went negative: %d", got.ID, got.Balance)
		}
		total += got.Balance
	}
	if want := int64(n) * smokeFunding; total != want {
		return errors.Errorf("ledger conservation failed: have %d, want %d", total, want)
	}

	fmt.Fprintf(c.App.Writer, "smoke test passed: accounts=%d transfers=%d rejected=%d\n", n, len(plan), failed)
	return nil
}

// genPlan draws a reproducible transfer plan; amounts stay within a few
// fundings so some transfers are rejected for insufficient funds.
func genPlan(seed int64, count, accounts int) []step {
	f := fuzz.NewWithSeed(seed).NilChance(0).Funcs(
		func(s *step, c fuzz.Continue) {
			s.From = c.Intn(accounts)
			s.To = (s.From + 1 + c.Intn(accounts-1)) % accounts
			s.Amount = 1 + c.Int63n(smokeFunding/2)
		},
	)
	plan := make([]step, count)
	for i := range plan {
		f.Fuzz(&plan[i])
	}
	return plan
}

func execute(ctx context.Context, svc ledger.Service, accts []ledger.Account, plan []step, threads int) (int, error) {
	if threads <= 0 {
		threads = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)

	rejected := make(chan struct{}, len(plan))
	for _, s := range plan {
		s := s
		g.Go(func() error {
			_, err := svc.Transfer(gctx, accts[s.From].ID, accts[s.To].ID, s.Amount)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, ledger.ErrInsufficientFunds):
				rejected <- struct{}{}
				return nil
			default:
				return errors.Wrapf(err, "transfer %s -> %s", accts[s.From].ID, accts[s.To].ID)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(rejected), nil
}
