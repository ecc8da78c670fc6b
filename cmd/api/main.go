package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/farhan-ashraf/simpledex-analytics/internal/ai"
	"github.com/farhan-ashraf/simpledex-analytics/internal/aggregator"
	"github.com/farhan-ashraf/simpledex-analytics/internal/amm"
	"github.com/farhan-ashraf/simpledex-analytics/internal/cache"
	"github.com/farhan-ashraf/simpledex-analytics/internal/config"
	"github.com/farhan-ashraf/simpledex-analytics/internal/ledger"
	"github.com/farhan-ashraf/simpledex-analytics/internal/prefs"
	"github.com/farhan-ashraf/simpledex-analytics/internal/scheduler"
	"github.com/farhan-ashraf/simpledex-analytics/internal/server"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main wires the refresh pipeline and the HTTP API together and runs them
// with graceful shutdown.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Redis backs the recent swap feed, the live channels and preferences
	rclient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   0,
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	recentCache, err := cache.NewRecentSwapCache(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create recent swap cache")
	}

	prefStore, err := prefs.NewStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create preference store")
	}

	pubsub := cache.NewPubSubManager(rclient, logger)

	// ClickHouse archive is optional: without it the live API still works,
	// only history and the AI agent lose data
	var archive *cache.Archive
	if a, err := cache.NewArchive(cache.ArchiveConfig{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
		Logger:   logger,
	}); err != nil {
		logger.WithError(err).Warn("ClickHouse unavailable, swap archive disabled")
	} else {
		archive = a
		defer archive.Close()
	}

	// Ledger pipeline
	client := ledger.NewClient(ledger.ClientConfig{
		BaseURL:           cfg.LedgerURL,
		Timeout:           cfg.HTTPTimeout,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	})
	reader := ledger.NewReader(client, cfg.PoolAddress, cfg.WindowBlocks(), logger)

	agg := aggregator.Aggregator{
		TokenASymbol: cfg.TokenASymbol,
		DecimalsA:    cfg.TokenADecimals,
		DecimalsB:    cfg.TokenBDecimals,
		FeeBps:       amm.FeeBps,
	}

	converter := cache.RecordConverter{
		TokenASymbol: cfg.TokenASymbol,
		TokenBSymbol: cfg.TokenBSymbol,
		DecimalsA:    cfg.TokenADecimals,
		DecimalsB:    cfg.TokenBDecimals,
	}
	recorder := cache.NewRecorder(converter, recentCache, archive, pubsub, logger)

	sched := scheduler.New(reader, agg, scheduler.Config{
		MetricsInterval: cfg.MetricsInterval,
		SummaryInterval: cfg.SummaryInterval,
		StaleAfter:      cfg.StaleAfter,
		Logger:          logger,
	}, recorder)

	go sched.Run(ctx)

	// AI agent for natural language queries (optional)
	var agent *ai.Agent
	aiBase := ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              cfg.AIModel,
		Logger:             logger,
	}
	if cfg.OpenRouterAPIKey != "" {
		a, err := ai.NewAgent(ctx, aiBase)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			agent = a
			defer func() {
				_ = agent.Close()
			}()
		}
	}

	h := &server.Handlers{
		Scheduler: sched,
		Quoter: amm.Quoter{
			DecimalsA: cfg.TokenADecimals,
			DecimalsB: cfg.TokenBDecimals,
			FeeBps:    amm.FeeBps,
		},
		TokenASymbol: cfg.TokenASymbol,
		TokenBSymbol: cfg.TokenBSymbol,
		LPDecimals:   cfg.LPDecimals,
		Prefs:        prefStore,
		Recent:       recentCache,
		Ledger:       reader,
		AI:           agent,
		AIBaseConfig: aiBase,
		DevMode:      cfg.DevMode,
		Logger:       logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil {
		// "http: Server closed" is expected during graceful shutdown
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
