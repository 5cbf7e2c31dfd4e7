package main

import (
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"osryn.bank/internal/ledger/remote"
)

const (
	fAddr    = "addr"
	fUser    = "user"
	fSecret  = "secret"
	fTimeout = "timeout"
)

const (
	EnvAddr    = "OSRYN_ADDR"
	EnvUser    = "OSRYN_USER"
	EnvSecret  = "OSRYN_SECRET"
	EnvTimeout = "OSRYN_TIMEOUT"
)

func main() {
	app := &cli.App{
		Name:  "bankctl",
		Usage: "Osryn bank command line client",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: fAddr, Value: "http://localhost:8080", Aliases: []string{"a"}, EnvVars: []string{EnvAddr}},
			&cli.StringFlag{Name: fUser, Aliases: []string{"u"}, EnvVars: []string{EnvUser}},
			&cli.StringFlag{Name: fSecret, Aliases: []string{"p"}, EnvVars: []string{EnvSecret}},
			&cli.DurationFlag{Name: fTimeout, Value: 10 * time.Second, EnvVars: []string{EnvTimeout}},
		},
		Commands: []*cli.Command{
			newRegister(),
			newLogin(),
			newBalance(),
			newProfile(),
			newPasswd(),
			newDeposit(),
			newWithdraw(),
			newTransfer(),
			newPayBill(),
			newBillers(),
			newHistory(),
			newTrend(),
			newStatement(),
			newSmoke(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dial(c *cli.Context) (*remote.Client, error) {
	client, err := remote.New(c.String(fAddr))
	return client, errors.Wrap(err, "dial")
}

func credentials(c *cli.Context) (remote.Credentials, error) {
	cr := remote.Credentials{Username: c.String(fUser), Secret: c.String(fSecret)}
	if cr.Username == "" || cr.Secret == "" {
		return cr, errors.Errorf("--%s and --%s (or %s/%s) are required", fUser, fSecret, EnvUser, EnvSecret)
	}
	return cr, nil
}

// session resolves the client and caller credentials for an authenticated command.
func session(c *cli.Context) (*remote.Client, remote.Credentials, error) {
	client, err := dial(c)
	if err != nil {
		return nil, remote.Credentials{}, err
	}
	cr, err := credentials(c)
	if err != nil {
		return nil, remote.Credentials{}, err
	}
	return client, cr, nil
}
