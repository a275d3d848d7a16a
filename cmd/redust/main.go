// Command redust runs the RESP-compatible in-memory key-value server:
// construct-then-wire every collaborator (config, logger, metrics, store,
// pub/sub hub, scripting engine, snapshot persistence), then supervise the
// listener, TTL sampler, and optional snapshot timer under one
// errgroup.Group so a signal cancels all three consistently.
//
// Grounded on the teacher's cmd/main.go startup sequence (print banner,
// read config, restore persistence, start background workers, listen,
// wait for graceful shutdown, save on the way out), generalized from its
// file-based redis.conf + AOF/RDB pair to REDUST_* environment variables
// and the single binary snapshot codec of spec.md §4.I.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tmfc/redust/internal/config"
	"github.com/tmfc/redust/internal/logging"
	"github.com/tmfc/redust/internal/metrics"
	"github.com/tmfc/redust/internal/pubsub"
	"github.com/tmfc/redust/internal/script"
	"github.com/tmfc/redust/internal/server"
	"github.com/tmfc/redust/internal/snapshot"
	"github.com/tmfc/redust/internal/store"
)

const banner = `
 _ __ ___  __| |_   _ ___| |_
| '__/ _ \/ _` + "`" + ` | | | / __| __|
| | |  __/ (_| | |_| \__ \ |_
|_|  \___|\__,_|\__,_|___/\__|
`

func main() {
	fmt.Print(banner)

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "redust: config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New()
	defer logger.Sync()

	logger.Info("starting redust",
		zap.String("addr", cfg.Addr),
		zap.Int("databases", cfg.Databases),
		zap.Int("shards", cfg.Shards),
	)

	st := store.New(cfg.Shards)
	st.SetMaxMemory(cfg.MaxMemoryBytes)
	st.SetPolicy(cfg.MaxMemoryPolicy)
	st.SetMaxValueBytes(cfg.MaxValueBytes)

	hub := pubsub.New()
	m := metrics.New()
	eng := script.New()

	if !cfg.DisablePersistence {
		if err := snapshot.Load(st, cfg.RDBPath); err != nil {
			logger.Warn("snapshot load failed, starting with an empty store", zap.Error(err))
		}
	}

	srv := server.New(st, hub, cfg, m, logger, eng)
	if !cfg.DisablePersistence {
		srv.SetSnapshotSaver(func() error {
			return snapshot.Save(st, cfg.RDBPath)
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen failed", zap.String("addr", cfg.Addr), zap.Error(err))
	}
	logger.Info("listening", zap.String("addr", cfg.Addr))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(gctx, listener)
	})

	g.Go(func() error {
		st.RunExpireSampler(gctx)
		return nil
	})

	if !cfg.DisablePersistence && cfg.RDBAutoSaveSecs > 0 {
		g.Go(func() error {
			runAutoSave(gctx, logger, st, cfg.RDBPath, time.Duration(cfg.RDBAutoSaveSecs)*time.Second)
			return nil
		})
	}

	if cfg.MetricsAddr != "" {
		metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler()}
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
		g.Go(func() error {
			logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	<-gctx.Done()
	logger.Info("shutdown signal received, draining connections")
	srv.Shutdown()

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", zap.Error(err))
	}

	if !cfg.DisablePersistence {
		if err := snapshot.Save(st, cfg.RDBPath); err != nil {
			logger.Error("final snapshot save failed", zap.Error(err))
		} else {
			logger.Info("final snapshot saved", zap.String("path", cfg.RDBPath))
		}
	}
	logger.Info("goodbye")
}

// runAutoSave periodically saves a snapshot until ctx is cancelled, logging
// failures without stopping the server (spec.md §9: snapshot save failure
// logs and continues serving).
func runAutoSave(ctx context.Context, logger *zap.Logger, st *store.Store, path string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := snapshot.Save(st, path); err != nil {
				logger.Warn("periodic snapshot save failed", zap.Error(err))
			} else {
				logger.Debug("periodic snapshot saved", zap.String("path", path))
			}
		}
	}
}
