// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// authgate is an OIDC relying-party gateway.  It fronts a single identity
// provider, holds tokens in server-side sessions keyed by a browser cookie,
// and exposes login, logout, refresh and userinfo over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"

	"github.com/hashicorp/authgate/gateway"
	"github.com/hashicorp/authgate/oidc"
)

func main() {
	// a .env file is optional; the environment wins either way
	_ = godotenv.Load()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "authgate",
		Level: hclog.LevelFromString(os.Getenv("AUTHGATE_LOG_LEVEL")),
	})

	if err := run(logger); err != nil {
		logger.Error("gateway failed", "err", err)
		os.Exit(1)
	}
}

func run(logger hclog.Logger) error {
	cfg, err := gateway.ReadConfig()
	if err != nil {
		return err
	}

	providerConfig, err := oidc.NewConfig(
		cfg.Issuer,
		cfg.ClientID,
		oidc.ClientSecret(cfg.ClientSecret),
		[]oidc.Alg{oidc.RS256, oidc.ES256},
		cfg.RedirectURL,
		oidc.WithScopes(cfg.ScopeList()...),
		oidc.WithLogoutEndpoint(cfg.LogoutEndpoint),
		oidc.WithLogger(logger.Named("oidc")),
	)
	if err != nil {
		return err
	}

	// discovery must succeed before we accept any traffic
	provider, err := oidc.NewProvider(providerConfig)
	if err != nil {
		return err
	}
	defer provider.Done()

	store := gateway.NewInmemStore(cfg.SessionTTL)
	flow, err := gateway.NewFlow(provider, store, cfg.AppURL, cfg.RedirectURL,
		gateway.WithFlowLogger(logger.Named("flow")))
	if err != nil {
		return err
	}
	handler, err := gateway.NewHandler(flow, store,
		gateway.WithHandlerLogger(logger.Named("http")))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running", "addr", cfg.ListenAddr, "issuer", cfg.Issuer)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
