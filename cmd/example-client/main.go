// Command example-client demonstrates the client role (C1/C3/C4/C5): it
// loads its configuration from the environment, starts a Manager, and polls
// GetToken for a single managed token named "downstream-service" until
// interrupted. Mirrors the wiring shown in planb_client.rs.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kocoro-labs/rusty-tokens-go/internal/rtconfig"
	"github.com/kocoro-labs/rusty-tokens-go/internal/tokens"
	"github.com/kocoro-labs/rusty-tokens-go/internal/tracing"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	shutdown, err := tracing.Initialize(tracing.Config{
		Enabled:     os.Getenv("RUSTY_TOKENS_TRACING_ENABLED") == "true",
		ServiceName: "rusty-tokens-example-client",
	}, logger)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}
	defer shutdown(context.Background())

	clientCfg, err := rtconfig.LoadClientConfig()
	if err != nil {
		logger.Fatal("client config", zap.Error(err))
	}

	credsCfg, err := rtconfig.LoadFileCredentialsConfig()
	if err != nil {
		logger.Fatal("credentials config", zap.Error(err))
	}

	creds, err := tokens.NewFileCredentialsProvider(credsCfg.Dir, credsCfg.ClientFileName, credsCfg.UserFileName, logger)
	if err != nil {
		logger.Fatal("credentials provider", zap.Error(err))
	}
	defer creds.Close()

	provider := tokens.NewHTTPAccessTokenProvider(
		clientCfg.TokenProviderURL,
		clientCfg.Realm,
		&http.Client{Timeout: 10 * time.Second},
		logger,
	)

	manager := tokens.NewManager(tokens.Config{
		RefreshFactor: clientCfg.RefreshFactor,
		WarningFactor: clientCfg.WarningFactor,
		ManagedTokens: []tokens.ManagedToken{
			{Name: "downstream-service", Scopes: tokens.NewScopeSet("uid", "read")},
		},
	}, creds, provider, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	logger.Info("example client started, polling managed token", zap.String("name", "downstream-service"))

	for {
		select {
		case <-ticker.C:
			tok, err := manager.GetToken("downstream-service")
			if err != nil {
				logger.Warn("token not yet available", zap.Error(err))
				continue
			}
			logger.Info("current token", zap.Int("length", len(tok)))

		case <-sigCh:
			logger.Info("shutting down")
			manager.Stop()
			manager.Wait()
			return
		}
	}
}
