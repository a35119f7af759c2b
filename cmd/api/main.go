package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovc-dev/ovc/backend/internal/config"
	"github.com/ovc-dev/ovc/backend/internal/handler"
	"github.com/ovc-dev/ovc/backend/internal/model/catalog"
	"github.com/ovc-dev/ovc/backend/internal/service/ai"
	"github.com/ovc-dev/ovc/backend/internal/service/dialog"
	"github.com/ovc-dev/ovc/backend/internal/service/inventory"
	"github.com/ovc-dev/ovc/backend/internal/service/records"
	"github.com/ovc-dev/ovc/backend/internal/service/session"
	"github.com/ovc-dev/ovc/backend/internal/service/speech"
	"github.com/ovc-dev/ovc/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	data, err := catalog.Load(cfg.Store.DataDir)
	if err != nil {
		zlog.Fatal("failed to load store data", zap.Error(err))
	}
	for _, name := range data.Defaulted {
		zlog.Warn("data file missing, using seed defaults", zap.String("file", name))
	}

	catalogStore := catalog.NewStore(data.Profile, data.Staff)
	ledger := inventory.NewLedger(data.Products)
	sessions := session.NewStore()

	sink, err := records.NewFileSink(cfg.Store.RecordsDir)
	if err != nil {
		zlog.Fatal("failed to prepare record directories", zap.Error(err))
	}

	var responder dialog.Responder
	if cfg.AI.Enabled() {
		arkResponder, err := ai.NewResponder(ctx, data.Profile, cfg.AI, zlog)
		if err != nil {
			zlog.Warn("responder unavailable, free-form turns use the fallback reply", zap.Error(err))
		} else {
			responder = arkResponder
			zlog.Info("free-form responder initialized", zap.String("model", cfg.AI.Model))
		}
	} else {
		zlog.Info("ark credentials not configured, free-form turns use the fallback reply")
	}

	speechSvc := speech.NewService(cfg.Speech, zlog)
	if speechSvc.TranscriptionEnabled() || speechSvc.SynthesisEnabled() {
		zlog.Info("speech service initialized",
			zap.Bool("transcription", speechSvc.TranscriptionEnabled()),
			zap.Bool("synthesis", speechSvc.SynthesisEnabled()))
	} else {
		zlog.Info("speech credentials not configured, voice channel runs text-only")
	}

	engine := dialog.NewEngine(catalogStore, sessions, ledger, sink, responder, zlog)

	router := handler.NewRouter(engine, catalogStore, ledger, sink, speechSvc, cfg.Server.TurnTimeout, zlog)

	startServer(ctx, cfg.Server, router, zlog)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, zlog *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	zlog.Info("ovc backend listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
