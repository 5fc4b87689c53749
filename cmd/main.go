package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tomatoService/internal/auth"
	"tomatoService/internal/clock"
	"tomatoService/internal/config"
	"tomatoService/internal/events"
	"tomatoService/internal/history"
	"tomatoService/internal/platform"

	"github.com/spf13/pflag"
)

const historyTimeout = 5 * time.Second

// App holds the wired components shared by the HTTP handlers
type App struct {
	Config   config.Config
	Service  *clock.TimerService
	Adapter  *platform.Adapter
	Alarms   *platform.AlarmManager
	Hub      *events.Hub
	Recorder history.Recorder
	Auth     *auth.Auth
}

func main() {
	flagSet := pflag.NewFlagSet("tomato-service", pflag.ContinueOnError)
	envFile := flagSet.String("env-file", ".env", "dotenv file; the process environment takes precedence")
	port := flagSet.StringP("port", "p", "", "HTTP port, overrides WEB_PORT")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("invalid arguments: %v", err)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *port != "" {
		cfg.WebPort = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.WebPort),
		Handler: app.routes(),
	}

	go func() {
		log.Printf("Starting pomodoro service on port %s\n", cfg.WebPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("🛑 Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	app.close(shutdownCtx)
}

func newApp(ctx context.Context, cfg config.Config) (*App, error) {
	defaults := clock.CreateDefaultStateWith(cfg.Preset)

	var store platform.StateStore
	redisStore, err := connectToRedis(ctx, cfg, defaults)
	if err != nil {
		log.Printf("Warning: failed to initialize Redis persistence, falling back to in-memory: %v", err)
		store = platform.NewMemoryStore()
	} else {
		store = redisStore
	}

	recorder := newRecorder(ctx, cfg)

	var authenticator *auth.Auth
	if cfg.AuthEnabled() {
		authenticator, err = auth.New(auth.Config{
			Secret:         cfg.JWTSecret,
			Passphrase:     cfg.APIPassphrase,
			PassphraseHash: cfg.APIPassphraseHash,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set up auth: %w", err)
		}
		log.Printf("🔐 Token auth enabled")
	} else {
		log.Printf("⚠️ JWT_SECRET or API_PASSPHRASE not set, API is open")
	}

	hub := events.NewHub()
	go hub.Start(ctx)

	alarms := platform.NewAlarmManager()
	adapter := platform.NewAdapter(store, alarms, hub)

	service := clock.NewTimerServiceWithDefaults(adapter, defaults)
	service.SetCallbacks(
		func(state clock.TimerState) { hub.Publish(events.EventState, state) },
		history.CompletionHook(recorder, historyTimeout),
	)

	alarms.OnAlarm(func(name string) {
		if name != clock.AlarmName {
			return
		}
		if _, err := service.HandleAlarm(context.Background()); err != nil {
			log.Printf("Failed to handle alarm: %v", err)
		}
	})

	if _, err := service.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize timer: %w", err)
	}

	return &App{
		Config:   cfg,
		Service:  service,
		Adapter:  adapter,
		Alarms:   alarms,
		Hub:      hub,
		Recorder: recorder,
		Auth:     authenticator,
	}, nil
}

func connectToRedis(ctx context.Context, cfg config.Config, defaults clock.TimerState) (*platform.RedisStore, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.New("REDIS_ADDR not set")
	}
	return platform.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisKey, defaults)
}

func newRecorder(ctx context.Context, cfg config.Config) history.Recorder {
	if cfg.DSN == "" {
		log.Printf("DSN not set, keeping segment history in memory")
		return history.NewMemoryRecorder()
	}

	conn := connectToDB(ctx, cfg.DSN)
	if conn == nil {
		log.Printf("Warning: can't connect to Postgres, keeping segment history in memory")
		return history.NewMemoryRecorder()
	}

	recorder, err := history.NewPostgresRecorder(ctx, conn, cfg.HistoryTable)
	if err != nil {
		log.Printf("Warning: %v, keeping segment history in memory", err)
		conn.Close()
		return history.NewMemoryRecorder()
	}
	return recorder
}

func (app *App) close(ctx context.Context) {
	app.Alarms.StopAll()
	if err := app.Hub.Shutdown(ctx); err != nil {
		log.Printf("Event hub shutdown error: %v", err)
	}
	if err := app.Adapter.Close(); err != nil {
		log.Printf("Failed to close state store: %v", err)
	}
	if err := app.Recorder.Close(); err != nil {
		log.Printf("Failed to close history: %v", err)
	}
}
