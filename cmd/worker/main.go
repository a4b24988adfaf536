package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PhoneStore/internal/config"
	"PhoneStore/internal/db"
	"PhoneStore/internal/logger"
	"PhoneStore/internal/reconcile"
	"PhoneStore/internal/store"
	"PhoneStore/internal/worker"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	zlog, err := logger.New(cfg.Log, cfg.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync(zlog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DB.DSN, cfg.DB.MaxConns)
	if err != nil {
		zlog.Error("db connect failed", zap.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool)
	rec := reconcile.New(st, zlog.Named("reconcile"))
	if cfg.Orders.DecrementStock {
		rec.Stock = st
	}

	w := &worker.Worker{
		Payments:   st,
		Reconciler: rec,
		Interval:   time.Duration(cfg.Worker.IntervalSeconds) * time.Second,
		BatchSize:  cfg.Worker.BatchSize,
		Grace:      time.Duration(cfg.Worker.GraceSeconds) * time.Second,
		Log:        zlog.Named("worker"),
	}

	zlog.Info("worker started",
		zap.Duration("interval", w.Interval),
		zap.Duration("grace", w.Grace),
		zap.Int("batch_size", w.BatchSize))
	w.Run(ctx)
	zlog.Info("worker stopped")
}
