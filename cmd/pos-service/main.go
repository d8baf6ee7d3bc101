package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/pos-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sales"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sequence"
)

const serviceName = "pos-service"

func main() {
	cfg := config.Load()

	logger, err := logging.New(serviceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("pos-service stopped", zap.Error(err))
		os.Exit(1)
	}
}

type storage struct {
	catalog  catalog.Repository
	sales    sales.Repository
	sequence events.Sequencer
	close    func()
}

func openStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage, error) {
	if cfg.StorageBackend != config.BackendPostgres {
		logger.Info("using in-memory storage")
		return storage{
			catalog:  catalog.NewMemoryRepository(),
			sales:    sales.NewMemoryRepository(),
			sequence: sequence.NewMemory(),
			close:    func() {},
		}, nil
	}

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return storage{}, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return storage{}, err
	}
	gdb, err := db.OpenGorm(cfg.DatabaseDSN, logger)
	if err != nil {
		pool.Close()
		return storage{}, err
	}

	return storage{
		catalog:  catalog.NewGormRepository(gdb),
		sales:    sales.NewPostgresRepository(pool),
		sequence: sequence.NewRepository(pool),
		close: func() {
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
			pool.Close()
		},
	}, nil
}

func openPublisher(cfg config.Config, seq events.Sequencer, logger *zap.Logger) (events.SalePublisher, func(), error) {
	if cfg.RabbitURL == "" {
		logger.Info("RABBITMQ_URL not set, events are not published")
		return events.Nop{}, func() {}, nil
	}

	conn, err := events.DialRabbit(cfg.RabbitURL)
	if err != nil {
		return nil, nil, err
	}
	pub, err := events.NewPublisher(conn, seq, events.PublisherOptions{PublishEnveloped: cfg.PublishEnveloped})
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Warn("publisher close failed", zap.Error(err))
		}
		_ = conn.Close()
	}, nil
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	pub, closePub, err := openPublisher(cfg, store.sequence, logger)
	if err != nil {
		return err
	}
	defer closePub()
	notifier := events.NewNotifier(pub, logger)

	registry := checkout.NewRegistry(checkout.Deps{
		Store:    store.sales,
		Listener: notifier,
		Logger:   logger,
		Config: checkout.Config{
			PaymentDelay:     cfg.PaymentDelay,
			ReferenceBaseURL: cfg.CheckoutBaseURL,
		},
	})
	defer registry.CloseAll()

	catalogSvc := catalog.NewService(store.catalog, logger, catalog.WithObserver(registry))

	var verifier *auth.TokenVerifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewTokenVerifier(cfg.JWTSecret)
	} else {
		logger.Warn("AUTH_JWT_SECRET not set, trusting X-User-Id header")
	}

	h := httpapi.NewHandler(httpapi.HandlerDeps{
		Catalog:   catalogSvc,
		Sessions:  registry,
		Sales:     store.sales,
		Notifier:  notifier,
		Logger:    logger,
		StoreName: cfg.StoreName,
		Location:  cfg.Location,
	})

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(h, httpapi.RouterOptions{
			AllowOrigins: cfg.CORSAllowOrigins,
			Verifier:     verifier,
			Logger:       logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		registry.Run(gctx, cfg.SessionIdleTTL)
		return nil
	})
	g.Go(func() error {
		logger.Info("pos-service listening", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
