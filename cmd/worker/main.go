package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/flora-checkout/internal/config"
	kafkax "github.com/ariefcatur/flora-checkout/internal/kafka"
	"github.com/ariefcatur/flora-checkout/internal/logging"
	"github.com/ariefcatur/flora-checkout/internal/orders"
	"github.com/ariefcatur/flora-checkout/internal/redisx"
	"github.com/ariefcatur/flora-checkout/internal/tracking"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.ServiceName+"-worker")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	proj := &tracking.Projector{
		Cache:   &tracking.RedisCache{Redis: rdb},
		Service: cfg.WorkerGroup,
		Log:     logger,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range []string{orders.TopicOrderPlaced, orders.TopicShippingChanged} {
		topic := topic
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup, topic, cfg.WorkerCount, logger)
		g.Go(func() error {
			logger.Info("consumer started", zap.String("topic", topic),
				zap.String("group", cfg.WorkerGroup), zap.Int("workers", cfg.WorkerCount))
			return cons.Start(gctx, proj.HandleOrderEvent)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Fatal("consumer exited", zap.Error(err))
	}
	logger.Info("worker stopped")
}
