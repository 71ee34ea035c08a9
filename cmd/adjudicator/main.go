package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opdclaims/adjudicator/internal/auth"
	"github.com/opdclaims/adjudicator/internal/decisions"
	"github.com/opdclaims/adjudicator/internal/engine"
	"github.com/opdclaims/adjudicator/internal/policyterms"
	"github.com/opdclaims/adjudicator/internal/ratelimit"
	"github.com/opdclaims/adjudicator/internal/reasoning"
	"github.com/opdclaims/adjudicator/internal/review"
	"github.com/opdclaims/adjudicator/internal/server"
	"github.com/opdclaims/adjudicator/internal/validators"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	setupLogger()

	log.Info().Msg("starting OPD claims adjudicator")

	ctx, cancel := setupSignalHandler()
	defer cancel()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}

	log.Info().Msg("adjudicator stopped successfully")
}

func run(ctx context.Context) error {
	cfg := server.LoadConfig()

	store, err := initDecisionStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close decision store")
		}
	}()

	termsSource, closeTerms, err := initPolicyTermsSource(cfg, store)
	if err != nil {
		return err
	}
	defer closeTerms()

	inbox := review.NewInMemoryInbox()
	defer func() {
		if err := inbox.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close review inbox")
		}
	}()

	eng := initEngine(cfg)
	authManager := initAuthManager(cfg)

	srv := server.New(cfg, server.Deps{
		Engine: eng,
		Store:  store,
		Ledger: decisions.NewLedger(store),
		Terms:  termsSource,
		Inbox:  inbox,
		Auth:   authManager,
	})

	return runServer(ctx, srv)
}

func setupLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()

	return ctx, cancel
}

func initDecisionStore(cfg server.Config) (*decisions.SQLiteStore, error) {
	log.Info().Str("path", cfg.DBPath).Msg("initializing decision store")

	store, err := decisions.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	log.Info().Msg("decision store initialized")
	return store, nil
}

// initPolicyTermsSource wires the terms lookup: database first, with the
// JSON file as a hot-reloading fallback when one is configured.
func initPolicyTermsSource(cfg server.Config, store *decisions.SQLiteStore) (policyterms.Source, func(), error) {
	dbSource, err := policyterms.NewDBSource(store.DB())
	if err != nil {
		return nil, nil, err
	}

	if _, statErr := os.Stat(cfg.PolicyTermsPath); statErr != nil {
		log.Info().Str("path", cfg.PolicyTermsPath).Msg("no policy terms file, using database only")
		return dbSource, func() {}, nil
	}

	fileSource, err := policyterms.NewFileSource(cfg.PolicyTermsPath)
	if err != nil {
		return nil, nil, err
	}

	log.Info().Str("path", cfg.PolicyTermsPath).Msg("policy terms file loaded")

	closeFn := func() {
		if err := fileSource.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close terms watcher")
		}
	}
	return policyterms.NewFallback(dbSource, fileSource), closeFn, nil
}

func initEngine(cfg server.Config) *engine.Engine {
	opts := engine.Options{
		Fraud:          validators.NewThresholdFraud(cfg.FraudThreshold),
		Limiter:        initLimiter(cfg),
		NarrateTimeout: time.Duration(cfg.NarrateTimeoutSecs) * time.Second,
	}

	if cfg.OpenAIAPIKey != "" {
		client := reasoning.NewOpenAIClient(cfg.OpenAIAPIKey)
		if cfg.OpenAIBaseURL != "" {
			client = client.WithBaseURL(cfg.OpenAIBaseURL)
		}
		if cfg.OpenAIModel != "" {
			client = client.WithModel(cfg.OpenAIModel)
		}
		opts.Narrator = client
		log.Info().Msg("reasoning service enabled")
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, decisions will carry hard-rule notes only")
	}

	return engine.New(opts)
}

// initLimiter prefers the shared Redis window so replicas see one budget;
// a single instance falls back to the in-process limiter.
func initLimiter(cfg server.Config) ratelimit.Limiter {
	limits := ratelimit.DefaultLimits()

	if cfg.RedisAddr == "" {
		log.Info().Msg("using in-memory rate limiter")
		return ratelimit.NewMemoryLimiter(limits)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	log.Info().Str("addr", cfg.RedisAddr).Msg("using redis rate limiter")
	return ratelimit.NewRedisLimiter(rdb, limits)
}

func initAuthManager(cfg server.Config) *auth.Manager {
	log.Info().Bool("required", cfg.RequireAuth).Msg("initializing auth manager")

	return auth.NewManager(auth.Config{
		JWTSecret:       cfg.JWTSecret,
		TokenExpiration: 24 * time.Hour,
		RequireAuth:     cfg.RequireAuth,
	})
}

func runServer(ctx context.Context, srv *server.Server) error {
	errChan := make(chan error, 1)

	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
