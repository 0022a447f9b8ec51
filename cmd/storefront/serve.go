package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"storefront/internal/config"
	"storefront/internal/docstore"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/postal"
	"storefront/internal/repos"
)

type serveOptions struct {
	port string
	dsn  string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().StringVar(&opts.dsn, "db", "", "sqlite DSN (overrides DB_DSN)")
	return cmd
}

// setupLogging tees log entries to stdout and the configured file.
func setupLogging(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return func() {}, errors.Wrapf(err, "open log file %s", path)
	}
	applog.SetOutput(io.MultiWriter(os.Stdout, f))
	return func() { _ = f.Close() }, nil
}

func loadConfig(port, dsn string) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, errors.Wrap(err, "load config")
	}
	if port != "" {
		cfg.Port = port
	}
	if dsn != "" {
		cfg.DBDSN = dsn
	}
	return cfg, nil
}

func runServe(parent context.Context, opts *serveOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig(opts.port, opts.dsn)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg.LogFile)
	if err != nil {
		applog.Fail("log.file.open", err, nil)
	}
	defer closeLog()

	db, err := repos.OpenDB(cfg.DBDSN, seedUsers(cfg)...)
	if err != nil {
		applog.Fail("db.open", err, map[string]any{"dsn": cfg.DBDSN})
		return err
	}
	defer db.Close()

	docs, err := docstore.Open(db)
	if err != nil {
		applog.Fail("docstore.open", err, nil)
		return err
	}
	defer docs.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if n, err := repos.SeedBrands(ctx, repos.NewBrandRepo(docs), defaultBrands...); err != nil {
		applog.Fail("brand.seed", err, nil)
	} else if n > 0 {
		applog.Event("brand.seed", map[string]any{"count": n})
	}

	lookup := postal.NewClient(cfg.PostalBaseURL, cfg.PostalTimeout, cfg.PostalCacheTTL)
	deps := handlers.NewDeps(ctx, cfg, db, docs, lookup)
	defer deps.Sessions.Close()
	app := handlers.NewApp(cfg, deps)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			applog.Fail("server.shutdown", err, nil)
		}
	}()

	applog.Event("server.start", map[string]any{"port": cfg.Port})
	if err := app.Listen(":" + cfg.Port); err != nil {
		applog.Fail("server.listen", err, nil)
		return err
	}
	applog.Event("server.stop", nil)
	return nil
}
