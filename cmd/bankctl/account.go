package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"osryn.bank/internal/ledger"
	"osryn.bank/internal/ledger/remote"
	"osryn.bank/internal/money"
)

func newRegister() *cli.Command {
	return &cli.Command{
		Name:      "register",
		Usage:     "open a new account",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "display name (defaults to the username)"},
			&cli.StringFlag{Name: "email"},
			&cli.StringFlag{Name: "phone"},
			&cli.StringFlag{Name: "kind", Value: string(ledger.KindSavings), Usage: "savings or current"},
		},
		Action: func(c *cli.Context) error {
			client, err := dial(c)
			if err != nil {
				return err
			}
			cr, err := credentials(c)
			if err != nil {
				return err
			}
			ctx, cancel := remote.WithTimeout(c.Context, c.Duration(fTimeout))
			defer cancel()

			acc, err := client.Register(ctx, ledger.NewAccount{
				DisplayName: c.String("name"),
				Username:    cr.Username,
				Secret:      cr.Secret,
				Email:       c.String("email"),
				Phone:       c.String("phone"),
				Kind:        ledger.AccountKind(c.String("kind")),
			})
			if err != nil {
				return errors.Wrap(err, "register")
			}
			printAccount(c, acc)
			return nil
		},
	}
}

func newLogin() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "check credentials and show the account",
		Action: func(c *cli.Context) error {
			client, cr, err := session(c)
			if err != nil {
				return err
			}
			ctx, cancel := remote.WithTimeout(c.Context, c.Duration(fTimeout))
			defer cancel()

			acc, err := client.Login(ctx, cr)
			if err != nil {
				return errors.Wrap(err, "login")
			}
			fmt.Fprintf(c.App.Writer, "Welcome back, %s.\n", acc.DisplayName)
			printAccount(c, acc)
			return nil
		},
	}
}

func newBalance() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "show the current balance",
		Action: func(c *cli.Context) error {
			client, cr, err := session(c)
			if err != nil {
				return err
			}
			ctx, cancel := remote.WithTimeout(c.Context, c.Duration(fTimeout))
			defer cancel()

			acc, err := client.Me(ctx, cr)
			if err != nil {
				return errors.Wrap(err, "balance")
			}
			fmt.Fprintln(c.App.Writer, money.Format(acc.Balance))
			return nil
		},
	}
}

func newProfile() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "update display name, email or phone",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name"},
			&cli.StringFlag{Name: "email"},
			&cli.StringFlag{Name: "phone"},
		},
		Action: func(c *cli.Context) error {
			client, cr, err := session(c)
			if err != nil {
				return err
			}
			var p ledger.Profile
			if c.IsSet("name") {
				v := c.String("name")
				p.DisplayName = &v
			}
			if c.IsSet("email") {
				v := c.String("email")
				p.Email = &v
			}
			if c.IsSet("phone") {
				v := c.String("phone")
				p.Phone = &v
			}
			ctx, cancel := remote.WithTimeout(c.Context, c.Duration(fTimeout))
			defer cancel()

			acc, err := client.UpdateProfile(ctx, cr, p)
			if err != nil {
				return errors.Wrap(err, "profile")
			}
			printAccount(c, acc)
			return nil
		},
	}
}

func newPasswd() *cli.Command {
	return &cli.Command{
		Name:      "passwd",
		Usage:     "change the account secret",
		ArgsUsage: "<new-secret>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("expected exactly one argument: the new secret")
			}
			client, cr, err := session(c)
			if err != nil {
				return err
			}
			ctx, cancel := remote.WithTimeout(c.Context, c.Duration(fTimeout))
			defer cancel()

			if err := client.ChangeSecret(ctx, cr, c.Args().First()); err != nil {
				return errors.Wrap(err, "passwd")
			}
			fmt.Fprintln(c.App.Writer, "Secret changed.")
			return nil
		},
	}
}

func printAccount(c *cli.Context, acc ledger.Account) {
	w := c.App.Writer
	fmt.Fprintf(w, "Account:  %s (%s)\n", acc.ID, acc.Kind)
	fmt.Fprintf(w, "Holder:   %s <%s>\n", acc.DisplayName, acc.Username)
	if acc.Email != "" || acc.Phone != "" {
		fmt.Fprintf(w, "Contact:  %s %s\n", acc.Email, acc.Phone)
	}
	fmt.Fprintf(w, "Balance:  %s\n", money.Format(acc.Balance))
}
