package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"aigated/internal/backend"
	"aigated/internal/config"
	"aigated/internal/gateway"
	"aigated/internal/httpapi"
	"aigated/internal/keys"
	"aigated/internal/manager"
	"aigated/internal/ratelimit"
	"aigated/internal/registry"
	"aigated/pkg/types"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":8080"
	if v := os.Getenv("AIGATED_ADDR"); v != "" {
		defaultAddr = v
	}
	defaultConfig := "aigated.yaml"
	if v := os.Getenv("AIGATED_CONFIG"); v != "" {
		defaultConfig = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8080")
	configPath := flag.String("config", defaultConfig, "Path to the config file (yaml, json or toml)")
	envFile := flag.String("env-file", ".env", "Path to an optional .env overlay")
	budgetMB := flag.Int("budget-mb", -1, "Memory budget in MB for loaded models (0=unlimited, -1=use config)")
	marginMB := flag.Int("margin-mb", -1, "Reserved memory margin in MB (-1=use config)")
	keysDB := flag.String("keys-db", "", "Path to the API key database (overrides config)")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Fatal().Err(err).Msg("failed to load env file")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
	}
	config.ApplyEnv(&cfg)
	// Flags win over environment and file.
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *budgetMB >= 0 {
		cfg.BudgetMB = *budgetMB
	}
	if *marginMB >= 0 {
		cfg.MarginMB = *marginMB
	}
	if *keysDB != "" {
		cfg.KeysDB = *keysDB
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log = log.Level(parseLogLevel(cfg.LogLevel))

	models, err := registry.FromEntries(cfg.Models)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load model registry")
	}
	log.Info().Int("models", len(models)).Int("budget_mb", cfg.BudgetMB).Msg("registry loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Key store: sqlite-backed when a path is configured, in-memory otherwise.
	var store keys.Store
	if cfg.KeysDB != "" {
		s, err := keys.OpenStore(ctx, cfg.KeysDB)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.KeysDB).Msg("failed to open key store")
		}
		store = s
	} else {
		log.Warn().Msg("no keys_db configured; using in-memory key store")
		store = keys.NewMemStore()
	}
	defer store.Close()
	keyRegistry := keys.NewRegistry(store)

	// Rate limiter: redis when configured, in-process window otherwise.
	var limiter ratelimit.Limiter
	if cfg.RateLimit.RedisURL != "" {
		rl, err := ratelimit.NewRedisLimiter(ctx, cfg.RateLimit.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		limiter = rl
		log.Info().Msg("using redis rate limiter")
	} else {
		limiter = ratelimit.NewWindowLimiter()
	}
	defer limiter.Close()

	engines := make(map[types.Capability]backend.Engine)
	for _, c := range types.Capabilities() {
		if c == types.CapAdmin {
			continue
		}
		engines[c] = backend.NewSimEngine(c)
	}

	defaults := make(map[types.Capability]string, len(cfg.DefaultModels))
	concurrency := make(map[types.Capability]int, len(cfg.Concurrency))
	for raw, id := range cfg.DefaultModels {
		if c, ok := types.ParseCapability(raw); ok {
			defaults[c] = id
		}
	}
	for raw, n := range cfg.Concurrency {
		if c, ok := types.ParseCapability(raw); ok {
			concurrency[c] = n
		}
	}

	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:      models,
		Engines:       engines,
		BudgetMB:      cfg.BudgetMB,
		MarginMB:      cfg.MarginMB,
		DefaultModels: defaults,
		Concurrency:   concurrency,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       time.Duration(cfg.MaxWaitSec) * time.Second,
		Publisher:     eventLogger{log: log},
	})
	if err := mgr.Preflight(); err != nil {
		log.Fatal().Err(err).Msg("preflight failed")
	}
	defer mgr.Close()

	d := gateway.New(keyRegistry, limiter, ratelimit.ParseScope(cfg.RateLimit.Scope), mgr, log)

	httpapi.SetLogger(log)
	httpapi.SetBaseContext(ctx)
	if cfg.MaxBodyMB > 0 {
		httpapi.SetMaxBodyBytes(int64(cfg.MaxBodyMB) << 20)
	}
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins,
		[]string{"GET", "POST"}, []string{"Content-Type", "X-API-Key"})

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(d)}
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("aigated listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
}

func parseLogLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// eventLogger forwards manager lifecycle events to the structured log.
type eventLogger struct {
	log zerolog.Logger
}

func (p eventLogger) Publish(ev manager.Event) {
	z := p.log.Info().Str("model_id", ev.ModelID)
	for k, v := range ev.Fields {
		z = z.Interface(k, v)
	}
	z.Msg(ev.Name)
}
