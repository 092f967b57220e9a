package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/flora-checkout/internal/auth"
	"github.com/ariefcatur/flora-checkout/internal/catalog"
	"github.com/ariefcatur/flora-checkout/internal/checkout"
	"github.com/ariefcatur/flora-checkout/internal/config"
	"github.com/ariefcatur/flora-checkout/internal/customer"
	"github.com/ariefcatur/flora-checkout/internal/httpx"
	"github.com/ariefcatur/flora-checkout/internal/inventory"
	kafkax "github.com/ariefcatur/flora-checkout/internal/kafka"
	"github.com/ariefcatur/flora-checkout/internal/ledger"
	"github.com/ariefcatur/flora-checkout/internal/logging"
	"github.com/ariefcatur/flora-checkout/internal/metrics"
	"github.com/ariefcatur/flora-checkout/internal/orders"
	"github.com/ariefcatur/flora-checkout/internal/otp"
	"github.com/ariefcatur/flora-checkout/internal/payment"
	"github.com/ariefcatur/flora-checkout/internal/postgres"
	"github.com/ariefcatur/flora-checkout/internal/redisx"
	"github.com/ariefcatur/flora-checkout/internal/tracking"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// producers outlive ctx so queued events are flushed after the server stops
	placed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, logger)
	shipping := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicShippingChanged, 1024, logger)
	placed.Start(context.Background())
	shipping.Start(context.Background())

	m := metrics.New()
	codes := &otp.Authority{Store: &otp.RedisStore{Redis: rdb}, Digits: cfg.OTPDigits, Log: logger, Metrics: m}
	engine := &payment.Engine{Ledger: &ledger.Repo{DB: db}, Codes: codes, Log: logger, Metrics: m}
	plants := &catalog.Repo{DB: db}
	customers := &customer.Repo{DB: db}
	verifier := &auth.Verifier{Secret: []byte(cfg.JWTSecret)}
	orch := &checkout.Orchestrator{
		Customers:       customers,
		Payments:        engine,
		Inventory:       &inventory.Service{Stock: &inventory.Repo{DB: db}, Log: logger, Metrics: m},
		Orders:          &orders.Repo{DB: db},
		Placed:          placed,
		Shipping:        shipping,
		MerchantAccount: cfg.MerchantAccount,
		Producer:        cfg.ServiceName,
		Log:             logger,
		Metrics:         m,
	}

	router := httpx.NewRouter(logger, m, cfg.RequestTimeout*3)
	(&httpx.PaymentHandler{
		Payments: engine,
		Codes:    codes,
		Verifier: verifier,
		Users:    customers,
		Timeout:  cfg.RequestTimeout,
	}).Register(router)
	(&httpx.CheckoutHandler{
		Checkout: orch,
		Verifier: verifier,
		Status:   &tracking.RedisCache{Redis: rdb},
		Timeout:  cfg.RequestTimeout,
	}).Register(router)
	(&httpx.PlantsHandler{Catalog: plants}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	err = g.Wait()

	placed.Close()
	shipping.Close()
	placed.WaitClosed()
	shipping.WaitClosed()
	return err
}
