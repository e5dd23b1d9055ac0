package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"spectrangle/internal/config"
	"spectrangle/internal/httpapi"
	"spectrangle/internal/hub"
	"spectrangle/internal/leaderboard"
	"spectrangle/internal/transport"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var store leaderboard.Store
	if cfg.DatabaseURL != "" {
		db, err := leaderboard.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("leaderboard db", zap.Error(err))
		}
		store = db
	} else {
		log.Info("no DATABASE_URL set, keeping leaderboard in memory")
		store = leaderboard.NewMemory()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.New(ctx, store, hub.Config{
		TurnTimeout:      cfg.TurnTimeout,
		ChallengeTimeout: cfg.ChallengeTimeout,
	}, log)

	tcp := transport.New(cfg.TCPAddr, h, store, log)
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.SetupRoutes(h, store, log),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tcp.Listen(ctx) })
	g.Go(func() error {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return httpSrv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
