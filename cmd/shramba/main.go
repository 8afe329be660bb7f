package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/shramba/internal/api"
	"github.com/erazemk/shramba/internal/auth"
	"github.com/erazemk/shramba/internal/catalog"
	"github.com/erazemk/shramba/internal/config"
	"github.com/erazemk/shramba/internal/db"
	"github.com/erazemk/shramba/internal/events"
	"github.com/erazemk/shramba/internal/jobs"
	"github.com/erazemk/shramba/internal/ledger"
	"github.com/erazemk/shramba/internal/lock"
	"github.com/erazemk/shramba/internal/logger"
	"github.com/erazemk/shramba/internal/metrics"
	"github.com/erazemk/shramba/internal/report"
	"github.com/erazemk/shramba/internal/schedule"
	"github.com/erazemk/shramba/internal/store"
	"github.com/erazemk/shramba/internal/volunteer"
)

const usage = `Usage: shramba [serve|token] [flags]

Commands:
  serve                   run the HTTP server (default)
  token                   print a signed bearer token

Flags:
  -d, -db <path>          SQLite database path (default: shramba.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log-level <level>  debug, info, warn or error (default: info)
  -e, -env <path>         .env file to load (default: ./.env)
  -h, -help               show this help and exit

Token flags:
  -s, -subject <id>       identity (organization id for a foodbank)
  -r, -role <role>        foodbank, individual, volunteer or admin
  -t, -ttl <duration>     token lifetime (default: 168h)

Environment: SHRAMBA_DB, SHRAMBA_ADDR, SHRAMBA_JWT_SECRET, SHRAMBA_LOG_LEVEL,
SHRAMBA_REPORT_SCHEDULE, SHRAMBA_EXPIRY_WINDOW.
`

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && (args[0] == "serve" || args[0] == "token") {
		cmd, args = args[0], args[1:]
	}

	envFile := envFlag(args)
	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("shramba", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stdout, usage) }
	cfg.BindFlags(fs)

	var ignoredEnv string
	fs.StringVar(&ignoredEnv, "env", "", "")
	fs.StringVar(&ignoredEnv, "e", "", "")

	var subject, role string
	var ttl time.Duration
	if cmd == "token" {
		fs.StringVar(&subject, "subject", "", "")
		fs.StringVar(&subject, "s", "", "")
		fs.StringVar(&role, "role", "", "")
		fs.StringVar(&role, "r", "", "")
		fs.DurationVar(&ttl, "ttl", auth.DefaultTokenExpiry, "")
		fs.DurationVar(&ttl, "t", auth.DefaultTokenExpiry, "")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	database, err := openDatabase(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	secret := cfg.JWTSecret
	if secret == "" {
		// Generated on first run and kept in the settings table.
		secret, err = store.GetJWTSecret(context.Background(), database)
		if err != nil {
			log.Fatal("failed to get JWT secret", zap.Error(err))
		}
	}

	switch cmd {
	case "token":
		tok, err := auth.GenerateToken(secret, subject, role, ttl)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(tok)
	default:
		if err := serve(cfg, database, secret, log); err != nil {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}
}

// envFlag finds -e/-env before the full flag set is parsed, since the file
// it names supplies the flag defaults.
func envFlag(args []string) string {
	for i, a := range args {
		switch a {
		case "-e", "-env", "--e", "--env":
			if i+1 < len(args) {
				return args[i+1]
			}
		}
		for _, p := range []string{"-e=", "-env=", "--e=", "--env="} {
			if len(a) > len(p) && a[:len(p)] == p {
				return a[len(p):]
			}
		}
	}
	return ""
}

func openDatabase(path string) (*sql.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return database, nil
}

func serve(cfg *config.Config, database *sql.DB, secret string, log *zap.Logger) error {
	m := metrics.New()
	locks := lock.New()

	catalogSvc := catalog.NewService(database, logger.Named(log, "svc.catalog"))
	ledgerSvc := ledger.NewService(database, locks, m, logger.Named(log, "svc.ledger"))
	jobSvc := jobs.NewService(database, m, logger.Named(log, "svc.jobs"))
	svc := api.Services{
		Catalog:   catalogSvc,
		Ledger:    ledgerSvc,
		Events:    events.NewService(database, logger.Named(log, "svc.events")),
		Schedule:  schedule.NewService(database, locks, ledgerSvc, m, logger.Named(log, "svc.schedule")),
		Jobs:      jobSvc,
		Volunteer: volunteer.NewService(database, locks, jobSvc, logger.Named(log, "svc.volunteer")),
	}

	reports := report.NewScheduler(database, catalogSvc, cfg.ReportSchedule, cfg.ExpiryWindow, logger.Named(log, "report"))
	if err := reports.Start(); err != nil {
		return err
	}
	defer reports.Stop()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(svc, secret, m, logger.Named(log, "http")),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		log.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	log.Info("server started", zap.String("addr", cfg.Addr), zap.String("db", cfg.DBPath))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.Info("server stopped, closing database")
	return nil
}
