package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"

	"github.com/tuannm99/heapsql"
	"github.com/tuannm99/heapsql/internal/config"
	"github.com/tuannm99/heapsql/internal/httpapi"
	"github.com/tuannm99/heapsql/server/heapsqlwire"
)

func main() {
	cfgPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "heapsql: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	c, err := buildContainer(cfgPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return c.Invoke(func(cfg *config.Config, db *heapsql.Database, wire *heapsqlwire.Server, api *httpapi.Server) error {
		defer func() {
			if err := db.Close(); err != nil {
				slog.Warn("close database", "err", err)
			}
		}()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return wire.ListenAndServe(gctx, cfg.Server.Addr) })
		if cfg.Server.HTTPAddr != "" {
			g.Go(func() error { return api.ListenAndServe(gctx, cfg.Server.HTTPAddr) })
		}
		err := g.Wait()
		slog.Info("heapsql stopped", "err", err)
		return err
	})
}

// buildContainer registers the object graph:
// config -> logger -> database -> servers.
func buildContainer(cfgPath string) (*dig.Container, error) {
	c := dig.New()
	constructors := []any{
		func() (*config.Config, error) { return config.LoadConfig(cfgPath) },
		newLogger,
		newDatabase,
		newWireServer,
		newHTTPServer,
	}
	for _, fn := range constructors {
		if err := c.Provide(fn); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	log, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	log = log.With("app", cfg.AppName)
	slog.SetDefault(log)
	return log, nil
}

// the logger is taken so it is installed as the default before the
// database logs anything
func newDatabase(cfg *config.Config, _ *slog.Logger) (*heapsql.Database, error) {
	return heapsql.Open(cfg)
}

func newWireServer(db *heapsql.Database, log *slog.Logger) *heapsqlwire.Server {
	return heapsqlwire.NewServer(db, log)
}

func newHTTPServer(cfg *config.Config, db *heapsql.Database, log *slog.Logger) *httpapi.Server {
	return httpapi.NewServer(db, log, cfg.Server.Debug)
}
