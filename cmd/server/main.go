package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/khodar-backend/internal/config"
	"github.com/DoyleJ11/khodar-backend/internal/engine"
	"github.com/DoyleJ11/khodar-backend/internal/httpapi"
	"github.com/DoyleJ11/khodar-backend/internal/hub"
	"github.com/DoyleJ11/khodar-backend/internal/logging"
	"github.com/DoyleJ11/khodar-backend/internal/wordlist"
	"github.com/DoyleJ11/khodar-backend/internal/ws"
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
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	words, err := loadWords(ctx, cfg, log)
	if err != nil {
		return err
	}

	h := hub.NewHub(ctx, hub.Options{
		Settings: cfg.Settings,
		Rules: engine.Rules{
			MaxPlayers:      cfg.MaxPlayers,
			RequireWordlist: cfg.RequireWordlist,
			Words:           words,
			Letters:         engine.NewDrawer(cfg.LetterPolicy, nil),
		},
		BcryptCost:  cfg.BcryptCost,
		GracePeriod: cfg.GracePeriod,
		Logger:      log,
	})

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:            h,
			PublicURL:      cfg.PublicURL,
			AllowedOrigins: cfg.AllowedOrigins,
			WS: ws.Config{
				Rate:  rate.Limit(cfg.ClientRate),
				Burst: cfg.ClientBurst,
			},
			Logger: log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("starting",
		zap.String("addr", srv.Addr),
		zap.Strings("origins", cfg.AllowedOrigins),
		zap.String("letters", string(cfg.LetterPolicy)),
		zap.Bool("requireWordlist", cfg.RequireWordlist),
		zap.Duration("gracePeriod", cfg.GracePeriod),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		h.Shutdown()
		<-h.Done()
		return err
	})
	return g.Wait()
}

func loadWords(ctx context.Context, cfg config.Config, log *zap.Logger) (*wordlist.Set, error) {
	if cfg.WordlistDSN != "" {
		db, err := wordlist.OpenPostgres(cfg.WordlistDSN)
		if err != nil {
			return nil, err
		}
		set, err := wordlist.LoadPostgres(ctx, db, cfg.Settings.Categories)
		if err != nil {
			return nil, err
		}
		logCounts(log, "postgres", set)
		return set, nil
	}

	set, err := wordlist.LoadDir(os.DirFS(cfg.WordlistDir), wordlist.DefaultFiles)
	if err != nil {
		return nil, fmt.Errorf("wordlist %s: %w", cfg.WordlistDir, err)
	}
	logCounts(log, cfg.WordlistDir, set)
	return set, nil
}

func logCounts(log *zap.Logger, source string, set *wordlist.Set) {
	for _, c := range set.Categories() {
		n := set.Len(c)
		if n == 0 {
			log.Warn("empty wordlist", zap.String("source", source), zap.String("category", c))
			continue
		}
		log.Debug("wordlist loaded", zap.String("source", source), zap.String("category", c), zap.Int("words", n))
	}
}
