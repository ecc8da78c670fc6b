package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/farhan-ashraf/simpledex-analytics/internal/cache"
	"github.com/farhan-ashraf/simpledex-analytics/internal/config"
	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
)

// A small consumer for the live channels, handy for watching a pool from a
// terminal while the API service runs.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	pubsub := cache.NewPubSubManager(rclient, logger)

	go func() {
		err := pubsub.SubscribeSwaps(ctx, func(rec cache.SwapRecord) {
			logger.WithFields(logrus.Fields{
				"tx":    rec.TxHash,
				"user":  rec.User,
				"in":    rec.AmountIn + " " + rec.TokenIn,
				"out":   rec.AmountOut + " " + rec.TokenOut,
				"block": rec.BlockNumber,
			}).Info("swap")
		})
		if err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("swap subscription ended")
		}
	}()

	go func() {
		err := pubsub.SubscribeMetrics(ctx, func(m models.PoolMetrics) {
			logger.WithFields(logrus.Fields{
				"tvl":        m.TVL,
				"volume24h":  m.Volume24h,
				"price":      m.CurrentPrice,
				"users":      m.UniqueUsers,
				"apr":        m.APR,
				"change_24h": m.PriceChange24h,
			}).Info("metrics")
		})
		if err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("metrics subscription ended")
		}
	}()

	logger.Info("subscriber running, press Ctrl+C to stop")

	<-sigCh
	logger.Info("shutting down subscriber")
}
