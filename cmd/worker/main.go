package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/linkpulse/linkpulse/internal/container"
	"github.com/linkpulse/linkpulse/internal/messaging"
	"github.com/samber/do"
	"go.uber.org/zap"
)

func main() {
	// Missing .env is fine; env vars may be set by the environment.
	_ = godotenv.Load()

	opts := &container.Options{
		PostgresDSN:   getEnv("POSTGRES_DSN", "postgres://localhost:5432/linkpulse"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		HashSalt:      getEnv("HASH_SALT", ""),
		Timezone:      getEnv("TIMEZONE", "UTC"),
		ResyncMinutes: getEnvInt("RESYNC_MINUTES", 60),
		CacheTTLSecs:  getEnvInt("CACHE_TTL_SECS", 30),
	}

	injector := do.New()
	do.ProvideValue(injector, opts)
	container.LoggerPackage(injector)
	container.ClockPackage(injector)
	container.RedisPackage(injector)
	container.PostgresPackage(injector)
	container.StorePackage(injector)
	container.RollupPackage(injector)
	container.ConsumerGroupPackage(injector)

	logger := do.MustInvoke[*zap.Logger](injector)
	group := do.MustInvoke[*messaging.ConsumerGroup](injector)

	ctx, cancel := context.WithCancel(context.Background())

	if err := group.Start(ctx); err != nil {
		logger.Fatal("failed to start worker", zap.Error(err))
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return defaultValue
}
