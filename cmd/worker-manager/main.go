// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"rewards-strategist/internal/collaborator/genai"
	"rewards-strategist/internal/common/camunda"
	"rewards-strategist/internal/common/config"
	"rewards-strategist/internal/common/database"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/common/observability"
	"rewards-strategist/internal/rewards"
	"rewards-strategist/internal/store/cache"
	"rewards-strategist/internal/store/postgres"

	ac "rewards-strategist/internal/workers/rewards/add-card"
	amm "rewards-strategist/internal/workers/rewards/add-merchant-mapping"
	arr "rewards-strategist/internal/workers/rewards/add-reward-rule"
	awg "rewards-strategist/internal/workers/rewards/analyze-wallet-gaps"
	cu "rewards-strategist/internal/workers/rewards/create-user"
	er "rewards-strategist/internal/workers/rewards/estimate-rewards"
	grr "rewards-strategist/internal/workers/rewards/get-reward-rules"
	lc "rewards-strategist/internal/workers/rewards/list-cards"
	rbc "rewards-strategist/internal/workers/rewards/rank-best-card"
	rc "rewards-strategist/internal/workers/rewards/recommend-cards"
	rm "rewards-strategist/internal/workers/rewards/resolve-merchant"
	sca "rewards-strategist/internal/workers/rewards/set-card-active"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		zapLog.Fatal("invalid engine configuration", zap.Error(err))
	}

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	pgStore := postgres.New(pg, log)
	if err := pgStore.Migrate(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}

	// --- Optional Redis read-through cache ---
	var store rewards.Store = pgStore
	var walletCache *cache.Store
	if cfg.Database.Redis.Enabled {
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			defer redis.Close()
			walletCache = cache.New(pgStore, redis, cache.TTLsFrom(cfg.Cache), log)
			store = walletCache
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Optional ranking collaborator ---
	var (
		tieBreaker rewards.TieBreaker
		recRanker  rewards.RecommendationRanker
	)
	if cfg.Collaborators.GenAI.Enabled {
		ai := genai.NewClient(genai.ConfigFrom(cfg.Collaborators.GenAI), log)
		tieBreaker, recRanker = ai, ai
		zapLog.Info("GenAI collaborator enabled", zap.String("baseUrl", cfg.Collaborators.GenAI.BaseURL))
	}

	ranker := rewards.NewRanker(store, tieBreaker, engineOpts, log)
	analyzer := rewards.NewAnalyzer(store, engineOpts, log)
	recommender := rewards.NewRecommender(store, recRanker, engineOpts, log)
	merchants := rewards.NewMerchantResolver(pgStore, engineOpts, log)

	// wallet writers must not see a typed nil invalidator
	var (
		userInvalidator sca.Invalidator
		cardInvalidator arr.Invalidator
	)
	if walletCache != nil {
		userInvalidator, cardInvalidator = walletCache, walletCache
	}

	handlers := map[string]camunda.JobHandler{
		rbc.TaskType: rbc.NewHandler(rbc.LoadConfig(config.GetWorkerConfig(cfg, rbc.TaskType)), ranker, merchants, log),
		er.TaskType:  er.NewHandler(er.LoadConfig(config.GetWorkerConfig(cfg, er.TaskType)), ranker, log),
		awg.TaskType: awg.NewHandler(awg.LoadConfig(config.GetWorkerConfig(cfg, awg.TaskType)), analyzer, log),
		rc.TaskType:  rc.NewHandler(rc.LoadConfig(config.GetWorkerConfig(cfg, rc.TaskType)), recommender, log),
		rm.TaskType:  rm.NewHandler(rm.LoadConfig(config.GetWorkerConfig(cfg, rm.TaskType)), merchants, log),
		amm.TaskType: amm.NewHandler(amm.LoadConfig(config.GetWorkerConfig(cfg, amm.TaskType)), merchants, log),
		sca.TaskType: sca.NewHandler(sca.LoadConfig(config.GetWorkerConfig(cfg, sca.TaskType)), pgStore, userInvalidator, log),
		cu.TaskType:  cu.NewHandler(cu.LoadConfig(config.GetWorkerConfig(cfg, cu.TaskType)), pgStore, log),
		ac.TaskType:  ac.NewHandler(ac.LoadConfig(config.GetWorkerConfig(cfg, ac.TaskType)), pgStore, userInvalidator, log),
		arr.TaskType: arr.NewHandler(arr.LoadConfig(config.GetWorkerConfig(cfg, arr.TaskType)), pgStore, cardInvalidator, log),
		lc.TaskType:  lc.NewHandler(lc.LoadConfig(config.GetWorkerConfig(cfg, lc.TaskType)), pgStore, log),
		grr.TaskType: grr.NewHandler(grr.LoadConfig(config.GetWorkerConfig(cfg, grr.TaskType)), pgStore, log),
	}

	var workers []*camunda.CamundaWorker
	for taskType, handler := range handlers {
		if !config.IsWorkerEnabled(cfg, taskType) {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			continue
		}
		workers = append(workers, camunda.NewWorker(
			zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), handler, obs, log,
		))
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pgStore.Ping(pingCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing telemetry", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
