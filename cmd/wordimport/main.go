// Command wordimport seeds the words table at WORDLIST_DSN from the text
// files in WORDLIST_DIR.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/DoyleJ11/khodar-backend/internal/config"
	"github.com/DoyleJ11/khodar-backend/internal/logging"
	"github.com/DoyleJ11/khodar-backend/internal/wordlist"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.WordlistDSN == "" {
		return errors.New("WORDLIST_DSN is not set")
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	set, err := wordlist.LoadDir(os.DirFS(cfg.WordlistDir), wordlist.DefaultFiles)
	if err != nil {
		return fmt.Errorf("wordlist %s: %w", cfg.WordlistDir, err)
	}

	db, err := wordlist.OpenPostgres(cfg.WordlistDSN)
	if err != nil {
		return err
	}
	if err := wordlist.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	n, err := wordlist.Seed(ctx, db, set)
	if err != nil {
		return err
	}
	for _, c := range set.Categories() {
		log.Info("category", zap.String("name", c), zap.Int("words", set.Len(c)))
	}
	log.Info("import finished", zap.Int64("inserted", n))
	return nil
}
