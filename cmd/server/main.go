package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"codingbuddy"
	"codingbuddy/internal/export"
	"codingbuddy/internal/handlers"
	"codingbuddy/internal/services"
	"codingbuddy/internal/transcript"
)

func main() {
	// API keys may come from a .env file instead of the config.
	_ = godotenv.Load()

	cfgFlag := flag.String("config", "", "path to config file")
	flag.Parse()

	cfgPath := *cfgFlag
	if cfgPath == "" {
		cfgDir, err := os.UserConfigDir()
		if err != nil {
			log.Fatal(fmt.Errorf("error getting user config dir: %w", err))
		}
		cfgPath = filepath.Join(cfgDir, "codingbuddy", "config.yaml")
	}

	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		log.Fatal(fmt.Errorf("error opening config file: %w", err))
	}
	defer cfgFile.Close()

	cfg := config{}
	if err := yaml.NewDecoder(cfgFile).Decode(&cfg); err != nil {
		log.Fatal(fmt.Errorf("error decoding config file: %w", err))
	}
	if cfg.LLM == nil {
		log.Fatal(services.ErrNoProvider)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatal(fmt.Errorf("error initializing logger: %w", err))
	}

	llm, err := cfg.LLM.llm(cfg.SystemPrompt, logger)
	if err != nil {
		log.Fatal(err)
	}

	store, closeStore, err := newStore(cfg.Store)
	if err != nil {
		log.Fatal(fmt.Errorf("error initializing store: %w", err))
	}
	defer closeStore()

	var exportOpts []export.Option
	if len(cfg.Export.CodePatterns) > 0 {
		exportOpts = append(exportOpts, export.WithCodePatterns(cfg.Export.CodePatterns))
	}
	exporter, err := export.New(exportOpts...)
	if err != nil {
		log.Fatal(fmt.Errorf("error initializing exporter: %w", err))
	}

	m, err := handlers.NewMain(llm, store, exporter, logger)
	if err != nil {
		log.Fatal(fmt.Errorf("error initializing handlers: %w", err))
	}

	staticFS, err := fs.Sub(codingbuddy.StaticFS, "static")
	if err != nil {
		log.Fatal(fmt.Errorf("error mounting static assets: %w", err))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	r.Get("/", m.HandleHome)
	r.Post("/chats", m.HandleChat)
	r.Get("/messages", m.HandleMessage)
	r.Post("/clear", m.HandleClear)
	r.Get("/export", m.HandleExport)
	r.Get("/sse/messages", m.HandleSSE)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.RegisterOnShutdown(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shutdown sse server", slog.String("err", err.Error()))
		}
	})

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("Server error", slog.String("err", err.Error()))

	case sig := <-shutdown:
		logger.Info("Start shutdown", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", slog.String("err", err.Error()))
			if err := srv.Close(); err != nil {
				logger.Error("Forcing server close", slog.String("err", err.Error()))
			}
		}
	}
}

func newLogger(cfg logConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		if cfg.Level != "" {
			return nil, fmt.Errorf("unknown log level %q: %w", cfg.Level, err)
		}
		level = slog.LevelInfo
	}

	if cfg.File == "" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})), nil
	}

	maxSize := cfg.MaxSizeMB
	if maxSize == 0 {
		maxSize = 10
	}
	maxBackups := cfg.MaxBackups
	if maxBackups == 0 {
		maxBackups = 3
	}
	maxAge := cfg.MaxAgeDays
	if maxAge == 0 {
		maxAge = 28
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   true,
	}

	return slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})), nil
}

func newStore(cfg storeConfig) (handlers.Store, func(), error) {
	switch cfg.Type {
	case "", "memory":
		return transcript.NewMemory(), func() {}, nil
	case "bolt":
		path := cfg.Path
		if path == "" {
			cfgDir, err := os.UserConfigDir()
			if err != nil {
				return nil, nil, fmt.Errorf("error getting user config dir: %w", err)
			}
			if err := os.MkdirAll(filepath.Join(cfgDir, "codingbuddy"), 0755); err != nil {
				return nil, nil, fmt.Errorf("error creating config directory: %w", err)
			}
			path = filepath.Join(cfgDir, "codingbuddy", "transcript.db")
		}
		db, err := transcript.NewBoltDB(path)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
