// Command example-resource-server demonstrates the resource-server role
// (C6/C7): it wires an Authenticator behind gorilla/mux, exposing one open
// health endpoint and one scope-gated endpoint. Mirrors the routing shown in
// hyper_iron_example.rs / iron_middleware_example.rs.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kocoro-labs/rusty-tokens-go/internal/middleware"
	"github.com/kocoro-labs/rusty-tokens-go/internal/resourceserver"
	"github.com/kocoro-labs/rusty-tokens-go/internal/rtconfig"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := rtconfig.LoadResourceServerConfig()
	if err != nil {
		logger.Fatal("resource server config", zap.Error(err))
	}

	auth, err := resourceserver.NewAuthenticator(
		cfg.TokenInfoURL, cfg.FallbackURL, cfg.QueryParameter,
		&http.Client{Timeout: 5 * time.Second}, logger,
	)
	if err != nil {
		logger.Fatal("authenticator init", zap.Error(err))
	}

	if redisAddr := os.Getenv("RUSTY_TOKENS_REDIS_ADDR"); redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		auth = auth.WithCache(resourceserver.NewRedisCache(client, "rusty-tokens:tokeninfo:", logger))
		logger.Info("token-info cache backed by redis", zap.String("addr", redisAddr))
	} else {
		auth = auth.WithCache(resourceserver.NewInMemoryCache(logger))
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(middleware.Authenticate(auth, logger))
	protected.Handle("/profile", middleware.RequireScopes("uid")(http.HandlerFunc(profileHandler))).Methods(http.MethodGet)

	var handler http.Handler = router
	handler = middleware.RewriteUnauthenticatedFailures(handler)

	addr := os.Getenv("RUSTY_TOKENS_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("example resource server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func profileHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"uid":    user.UID,
		"scopes": user.Scopes.Slice(),
	})
}
