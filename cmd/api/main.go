package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"osryn.bank/internal/config"
	"osryn.bank/internal/httpapi"
	"osryn.bank/internal/ledger"
	"osryn.bank/internal/obs"
	"osryn.bank/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	log := obs.Logger()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err := obs.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.WithError(err).Fatal("configure logger")
	}
	obs.Init()
	obs.InitBuildInfo(version, commit)

	l := ledger.NewInMemory(ledger.WithPasswordCost(cfg.Ledger.BcryptCost))
	if cfg.Ledger.SeedDemo {
		acc, err := ledger.SeedDemo(context.Background(), l)
		if err != nil {
			log.WithError(err).Fatal("seed demo account")
		}
		log.WithField("account_id", acc.ID).Warn("demo account seeded with well-known credentials")
	}
	obs.SetAccounts(l.Len())

	events := stream.New(cfg.Events.Buffer)
	api := httpapi.New(l, events, version, httpapi.Options{
		RateBurst:     cfg.Server.RateLimit.Burst,
		RatePerSecond: cfg.Server.RateLimit.PerSecond,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		Heartbeat:     cfg.Events.Heartbeat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// No WriteTimeout: /v1/events is long-lived.
		IdleTimeout: 60 * time.Second,
		// Request contexts end on shutdown so event streams close.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{"version": version, "addr": srv.Addr}).Info("starting osryn-bank-api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("stopped")
}
