package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"osryn.bank/internal/ledger"
	"osryn.bank/internal/ledger/remote"
	"osryn.bank/internal/money"
)

// amountArg parses the single positional amount, e.g. "1250.50".
func amountArg(c *cli.Context) (int64, error) {
	if c.NArg() != 1 {
		return 0, errors.New("expected exactly one argument: the amount")
	}
	amount, err := money.Parse(c.Args().First())
	return amount, errors.Wrap(err, "amount")
}

func newDeposit() *cli.Command {
	return &cli.Command{
		Name:      "deposit",
		Usage:     "add funds",
		ArgsUsage: "<amount>",
		Action: func(c *cli.Context) error {
			amount, err := amountArg(c)
			if err != nil {
				return err
			}
			client, cr, err := session(c)
			if err != nil {
				return err
			}
			ctx, cancel := remote.WithTimeout(c.Context, c.Duration(fTimeout))
			defer cancel()

			tx, err := client.Deposit(ctx, cr, amount)
			if err != nil {
				return errors.Wrap(err, "deposit")
			}
			printReceipt(c, tx)
			return nil
		},
	}
}

func newWithdraw() *cli.Command {
	return &cli.Command{
		Name:      "withdraw",
		Usage:     "take funds out",
		ArgsUsage: "<amount>",
		Action: func(c *cli.Context) error {
			amount, err := amountArg(c)
			if err != nil {
				return err
			}
			client, cr, err := session(c)
			if err != nil {
				return err
			}
			ctx, cancel := remote.WithTimeout(c.Context, c.Duration(fTimeout))
			defer cancel()

			tx, err := client.Withdraw(ctx, cr, amount)
			if err != nil {
				return errors.Wrap(err, "withdraw")
			}
			printReceipt(c, tx)
			return nil
		},
	}
}

func newTransfer() *cli.Command {
	return &cli.Command{
		Name:      "transfer",
		Usage:     "send funds to another account",
		ArgsUsage: "<amount>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Required: true, Usage: "recipient account number"},
		},
		Action: func(c *cli.Context) error {
			amount, err := amountArg(c)
			if err != nil {
				return err
			}
			client, cr, err := session(c)
			if err != nil {
				return err
			}
			ctx, cancel := remote.WithTimeout(c.Context, c.Duration(fTimeout))
			defer cancel()

			res, err := client.Transfer(ctx, cr, c.String("to"), amount)
			if err != nil {
				return errors.Wrap(err, "transfer")
			}
			printReceipt(c, res.Debit)
			return nil
		},
	}
}

func newPayBill() *cli.Command {
	return &cli.Command{
		Name:      "pay-bill",
		Usage:     "pay a biller (see `billers`)",
		ArgsUsage: "<amount>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "biller", Required: true},
		},
		Action: func(c *cli.Context) error {
			amount, err := amountArg(c)
			if err != nil {
				return err
			}
			client, cr, err := session(c)
			if err != nil {
				return err
			}
			ctx, cancel := remote.WithTimeout(c.Context, c.Duration(fTimeout))
			defer cancel()

			tx, err := client.PayBill(ctx, cr, c.String("biller"), amount)
			if err != nil {
				return errors.Wrap(err, "pay bill")
			}
			printReceipt(c, tx)
			return nil
		},
	}
}

func newBillers() *cli.Command {
	return &cli.Command{
		Name:  "billers",
		Usage: "list payable billers",
		Action: func(c *cli.Context) error {
			client, err := dial(c)
			if err != nil {
				return err
			}
			ctx, cancel := remote.WithTimeout(c.Context, c.Duration(fTimeout))
			defer cancel()

			billers, err := client.Billers(ctx)
			if err != nil {
				return errors.Wrap(err, "billers")
			}
			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCATEGORY")
			for _, b := range billers {
				fmt.Fprintf(tw, "%s\t%s\n", b.Name, b.Category)
			}
			return tw.Flush()
		},
	}
}

func newHistory() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "list transactions, most recent first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20},
		},
		Action: func(c *cli.Context) error {
			client, cr, err := session(c)
			if err != nil {
				return err
			}
			ctx, cancel := remote.WithTimeout(c.Context, c.Duration(fTimeout))
			defer cancel()

			txs, err := client.Transactions(ctx, cr, c.Int("limit"))
			if err != nil {
				return errors.Wrap(err, "history")
			}
			if len(txs) == 0 {
				fmt.Fprintln(c.App.Writer, "No transactions yet.")
				return nil
			}
			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "DATE\tREF\tDESCRIPTION\tAMOUNT\tBALANCE\t")
			for _, tx := range txs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
					tx.CreatedAt.Local().Format("2006-01-02 15:04"),
					tx.Reference,
					tx.Description,
					money.Format(tx.Amount),
					money.Format(tx.BalanceAfter),
				)
			}
			return tw.Flush()
		},
	}
}

func newTrend() *cli.Command {
	return &cli.Command{
		Name:  "trend",
		Usage: "show recent balances as a bar chart",
		Action: func(c *cli.Context) error {
			client, cr, err := session(c)
			if err != nil {
				return err
			}
			ctx, cancel := remote.WithTimeout(c.Context, c.Duration(fTimeout))
			defer cancel()

			points, err := client.BalanceHistory(ctx, cr)
			if err != nil {
				return errors.Wrap(err, "trend")
			}
			for _, line := range renderTrend(points, 40) {
				fmt.Fprintln(c.App.Writer, line)
			}
			return nil
		},
	}
}

func newStatement() *cli.Command {
	return &cli.Command{
		Name:  "statement",
		Usage: "download the account statement as PDF",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "statement.pdf"},
		},
		Action: func(c *cli.Context) error {
			client, cr, err := session(c)
			if err != nil {
				return err
			}
			ctx, cancel := remote.WithTimeout(c.Context, c.Duration(fTimeout))
			defer cancel()

			pdf, err := client.Statement(ctx, cr)
			if err != nil {
				return errors.Wrap(err, "statement")
			}
			out := c.String("out")
			if err := os.WriteFile(out, pdf, 0o600); err != nil {
				return errors.Wrapf(err, "write %s", out)
			}
			fmt.Fprintf(c.App.Writer, "saved %s (%d bytes)\n", out, len(pdf))
			return nil
		},
	}
}

// renderTrend draws one bar per balance, scaled to width.
func renderTrend(points []int64, width int) []string {
	var peak int64
	for _, p := range points {
		if p > peak {
			peak = p
		}
	}
	lines := make([]string, 0, len(points))
	for _, p := range points {
		n := 0
		if peak > 0 && p > 0 {
			n = int(float64(p) / float64(peak) * float64(width))
			if n == 0 {
				n = 1
			}
		}
		lines = append(lines, fmt.Sprintf("%15s |%s", money.Format(p), strings.Repeat("#", n)))
	}
	return lines
}

func printReceipt(c *cli.Context, tx ledger.Transaction) {
	fmt.Fprintf(c.App.Writer, "%s  %s  %s  balance %s  ref %s\n",
		tx.Kind, tx.Description, money.Format(tx.Amount), money.Format(tx.BalanceAfter), tx.Reference)
}
