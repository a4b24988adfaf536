package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"PhoneStore/internal/config"
	"PhoneStore/internal/db"
	"PhoneStore/internal/logger"

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

	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = "migrations"
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN, 1)
	if err != nil {
		zlog.Fatal("db connect failed", zap.Error(err))
	}
	defer pool.Close()

	if err := ensureSchemaTable(ctx, pool); err != nil {
		zlog.Fatal("ensure schema table failed", zap.Error(err))
	}

	files, err := listSQLFiles(dir)
	if err != nil {
		zlog.Fatal("list migrations failed", zap.String("dir", dir), zap.Error(err))
	}

	applied := 0
	for _, file := range files {
		done, err := isApplied(ctx, pool, file)
		if err != nil {
			zlog.Fatal("check migration failed", zap.String("file", file), zap.Error(err))
		}
		if done {
			continue
		}

		if err := applyMigration(ctx, pool, file); err != nil {
			zlog.Fatal("apply migration failed", zap.String("file", file), zap.Error(err))
		}
		if err := markApplied(ctx, pool, file); err != nil {
			zlog.Fatal("mark migration failed", zap.String("file", file), zap.Error(err))
		}
		zlog.Info("migration applied", zap.String("file", file))
		applied++
	}
	zlog.Info("migrations up to date", zap.Int("applied", applied), zap.Int("total", len(files)))
}

func ensureSchemaTable(ctx context.Context, pool *db.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (filename TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())`)
	return err
}

func listSQLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".sql") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

func isApplied(ctx context.Context, pool *db.Pool, file string) (bool, error) {
	var exists bool
	row := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename=$1)`, filepath.Base(file))
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func applyMigration(ctx context.Context, pool *db.Pool, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil
	}
	_, err = pool.Exec(ctx, string(data))
	return err
}

func markApplied(ctx context.Context, pool *db.Pool, file string) error {
	_, err := pool.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, filepath.Base(file))
	return err
}
