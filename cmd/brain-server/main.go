// Command brain-server runs the HTTP task-query/entry-section/MCP API
// alongside the OAuth 2.1 authorization server (spec §4.6, spec §6
// "External interfaces"), grounded on the teacher's cmd/alex server-mode
// wiring: a single net/http.Server multiplexing a protected API router with
// unprotected OAuth discovery/issuance endpoints.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huynle/brain/internal/brainconfig"
	"github.com/huynle/brain/internal/httpapi"
	"github.com/huynle/brain/internal/oauth"
	"github.com/huynle/brain/internal/obslog"
	"github.com/huynle/brain/internal/obsmetrics"
	"github.com/huynle/brain/internal/taskstore"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to brain config YAML")
	jwtSecretFlag := flag.String("jwt-secret", "", "HMAC secret for access-token signing (default: random, dev only)")
	flag.Parse()

	cfg, err := brainconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "brain-server:", err)
		return 1
	}

	logger := obslog.New("server", os.Stderr, obslog.ParseLevel(os.Getenv("BRAIN_LOG_LEVEL")))

	indexer := taskstore.NewSubprocessIndexer(indexerBinary())
	tasks := taskstore.New(cfg.BrainDir, cfg.DefaultWorkDir, cfg.DefaultWorkDir, indexer)

	if err := os.MkdirAll(cfg.BrainDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "brain-server:", err)
		return 1
	}
	store, err := oauth.Open(cfg.DBPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "brain-server: open oauth store:", err)
		return 1
	}
	defer store.Close()

	secret, err := jwtSecret(*jwtSecretFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "brain-server:", err)
		return 1
	}
	issuer := cfg.APIURL
	tokens := oauth.NewTokenManager(secret, issuer)
	oauthServer := oauth.NewServer(store, tokens, logger, cfg.EnableAuth)

	handler := httpapi.New(tasks, logger)
	apiRouter := httpapi.NewRouter(handler, oauthServer.BearerMiddleware)

	mux := http.NewServeMux()
	mux.Handle("/.well-known/oauth-authorization-server", http.HandlerFunc(oauthServer.HandleAuthorizationServerMetadata))
	mux.Handle("/.well-known/oauth-protected-resource/mcp", http.HandlerFunc(oauthServer.HandleProtectedResourceMetadata))
	mux.Handle("/register", http.HandlerFunc(oauthServer.HandleRegister))
	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			oauthServer.HandleAuthorizeGet(w, r)
		case http.MethodPost:
			oauthServer.HandleAuthorizePost(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.Handle("/token", http.HandlerFunc(oauthServer.HandleToken))
	mux.Handle("/metrics", obsmetrics.Handler())
	mux.Handle("/", apiRouter)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go oauthServer.RunCleanupLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
			return 1
		}
		return 0
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server exited with error", "error", err)
			return 1
		}
		return 0
	}
}

func jwtSecret(flagValue string) ([]byte, error) {
	if flagValue != "" {
		return []byte(flagValue), nil
	}
	if v := os.Getenv("BRAIN_JWT_SECRET"); v != "" {
		return []byte(v), nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate random jwt secret: %w", err)
	}
	return buf, nil
}

func indexerBinary() string {
	if v := os.Getenv("BRAIN_INDEXER_BINARY"); v != "" {
		return v
	}
	return "brain-index"
}
