package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cardscan/internal/common"
	"cardscan/internal/export"
	"cardscan/internal/recognize"
	"cardscan/internal/recognize/gemini"
	"cardscan/internal/recognize/tesseract"
	"cardscan/internal/recognize/vision"
	"cardscan/internal/scan"
	"cardscan/internal/server"
	"cardscan/internal/session"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig("")
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends := make(map[string]recognize.Recognizer)
	defaultBackend := ""
	if cfg.Gemini.APIKey != "" {
		backends["gemini"] = gemini.NewClient(gemini.Config{
			APIKey:      cfg.Gemini.APIKey,
			BaseURL:     cfg.Gemini.BaseURL,
			Model:       cfg.Gemini.Model,
			Temperature: cfg.Gemini.Temperature,
			MaxTokens:   cfg.Gemini.MaxTokens,
			Timeout:     cfg.Gemini.Timeout,
		}, logger)
		defaultBackend = "gemini"
	}
	if cfg.Vision.APIKey != "" {
		backends["vision"] = vision.NewClient(vision.Config{
			APIKey:  cfg.Vision.APIKey,
			BaseURL: cfg.Vision.BaseURL,
			Timeout: cfg.Vision.Timeout,
		}, logger)
		if defaultBackend == "" {
			defaultBackend = "vision"
		}
	}
	backends["tesseract"] = tesseract.NewEngine(tesseract.Config{
		Languages: cfg.Tesseract.Languages,
		PSM:       cfg.Tesseract.PSM,
	}, logger)
	if defaultBackend == "" {
		defaultBackend = "tesseract"
	}

	sessions := session.NewStore(cfg.Session.TTL, cfg.Session.TransferSettle, logger)
	analyzer := scan.NewAnalyzer(sessions, logger)
	exporter := export.NewService(logger)
	handlers := server.NewHandlers(analyzer, sessions, exporter, backends, defaultBackend, cfg.Server.MaxImageBytes, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.NewRouter(handlers),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server.listen", "addr", cfg.Server.Addr, "default_backend", defaultBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.listen_error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("server.shutdown.start")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.shutdown_error", "error", err)
		os.Exit(1)
	}
	logger.Info("server.shutdown.ok")
}
