package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitwiser-client/internal/auth"
	"github.com/mmynk/splitwiser-client/internal/client"
	"github.com/mmynk/splitwiser-client/internal/config"
	"github.com/mmynk/splitwiser-client/internal/metrics"
	"github.com/mmynk/splitwiser-client/internal/service"
	"github.com/mmynk/splitwiser-client/internal/storage/sqlite"
	"github.com/mmynk/splitwiser-client/pkg/logging"
)

// globalFlags override the environment configuration.
type globalFlags struct {
	apiURL      string
	dbPath      string
	metricsAddr string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "splitwiser",
		Short:         "split shared expenses and track who owes whom",
		Long:          `splitwiser is a command line client for the Splitwiser API. It computes expense splits, records expenses in groups and shows net balances with every friend across groups.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := os.Getenv("LOG_LEVEL")
			if flags.logLevel != "" {
				level = flags.logLevel
			}
			logging.SetupWithLevel(logging.ParseLevel(level))
		},
	}

	root.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "API base URL (default $SPLITWISER_API_URL)")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "local database path (default $SPLITWISER_DB_PATH)")
	root.PersistentFlags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (default $LOG_LEVEL)")

	root.AddCommand(
		loginCmd(flags),
		signupCmd(flags),
		logoutCmd(flags),
		whoamiCmd(flags),
		groupsCmd(flags),
		balancesCmd(flags),
		settlementsCmd(flags),
		crosscheckCmd(flags),
		splitCmd(),
		addExpenseCmd(flags),
	)
	return root
}

// app wires configuration, storage, the API client and the services for
// one command invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *sqlite.SQLiteStore
	tokens *auth.TokenStore
	api    *client.Client

	sessions *service.SessionService
	balances *service.BalanceService
	expenses *service.ExpenseService

	metricsServer *http.Server
}

func newApp(flags *globalFlags) (*app, error) {
	cfg := config.Load()
	if flags.apiURL != "" {
		cfg.APIURL = flags.apiURL
	}
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}
	if flags.metricsAddr != "" {
		cfg.MetricsAddr = flags.metricsAddr
	}
	logger := slog.Default()

	store, err := sqlite.New(cfg.DBPath, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Debug("Storage initialized", "database", cfg.DBPath)

	m := metrics.New()
	tokens := auth.NewTokenStore(store, logger)
	api := client.New(client.Config{
		BaseURL:            cfg.APIURL,
		Timeout:            cfg.HTTPTimeout,
		MaxRetries:         cfg.MaxRetries,
		InitialBackoff:     cfg.InitialBackoff,
		MaxJitter:          cfg.MaxJitter,
		RetryNonIdempotent: cfg.RetryNonIdempotent,
		IdempotencyKeys:    cfg.IdempotencyKeys,
	}, tokens, client.WithLogger(logger), client.WithMetrics(m))
	api.OnUnauthorized(func(err error) {
		logger.Warn("Session ended by the server", "error", err)
	})

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		tokens:   tokens,
		api:      api,
		sessions: service.NewSessionService(api, tokens, logger),
		balances: service.NewBalanceService(api, store, cfg.FetchConcurrency, logger),
		expenses: service.NewExpenseService(api, logger),
	}
	if cfg.MetricsAddr != "" {
		a.serveMetrics(m)
	}
	return a, nil
}

// serveMetrics exposes the metrics registry until close. h2c lets scrapers
// use HTTP/2 without TLS.
func (a *app) serveMetrics(m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	a.metricsServer = &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("Metrics server starting", "address", a.cfg.MetricsAddr)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed", "error", err)
		}
	}()
}

func (a *app) close() {
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		a.metricsServer.Shutdown(ctx)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close storage", "error", err)
	}
}

// withApp runs fn with a wired app and closes it afterwards.
func withApp(flags *globalFlags, fn func(a *app) error) error {
	a, err := newApp(flags)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

// resume restores the persisted session and returns the current user ID.
func (a *app) resume(ctx context.Context) (string, error) {
	return a.sessions.Resume(ctx)
}
