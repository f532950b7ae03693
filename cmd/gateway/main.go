package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/foodonbus/gateway"
	"github.com/example/foodonbus/pkg/cart"
	"github.com/example/foodonbus/pkg/catalog"
	"github.com/example/foodonbus/pkg/config"
	"github.com/example/foodonbus/pkg/discovery"
	"github.com/example/foodonbus/pkg/health"
	"github.com/example/foodonbus/pkg/history"
	"github.com/example/foodonbus/pkg/logger"
	"github.com/example/foodonbus/pkg/order"
	"github.com/example/foodonbus/pkg/repository"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting FoodOnBus gateway",
		zap.String("name", cfg.Server.Name),
		zap.String("address", cfg.Server.Addr()),
		zap.String("store", cfg.Store.Backend),
		zap.String("cart", cfg.Cart.Backend))

	store, err := repository.OpenOrderStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to open order store", zap.Error(err))
	}

	cat := catalog.Default()

	var carts cart.Store
	switch cfg.Cart.Backend {
	case "redis":
		rc := repository.NewRedisCartStore(&cfg.Redis, cat, cfg.Cart.TTL)
		if err := rc.Ping(context.Background()); err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rc.Close()
		carts = rc
	default:
		carts = cart.NewMemoryStore(cat)
	}

	builder := order.NewBuilder(store, log,
		order.WithTaxRate(decimal.NewFromFloat(cfg.Order.TaxRate)),
		order.WithCurrencySymbol(cfg.Order.CurrencySymbol))

	gw := gateway.NewGateway(cfg, log, gateway.Services{
		Catalog: cat,
		Carts:   carts,
		Builder: builder,
		History: history.NewView(store, cfg.Order.CurrencySymbol),
	})

	errCh := make(chan error, 2)
	go func() {
		if err := gw.Start(); err != nil {
			errCh <- fmt.Errorf("gateway: %w", err)
		}
	}()

	var hs *health.Server
	if cfg.GRPC.Enabled {
		hs = health.NewServer(cfg.Server.Name, log)
		go func() {
			if err := hs.Listen(cfg.GRPC.Addr()); err != nil {
				errCh <- fmt.Errorf("health: %w", err)
			}
		}()
		hs.SetServing(true)
	}

	var (
		sd       *discovery.ServiceDiscovery
		instance = &discovery.ServiceInstance{Name: cfg.Server.Name, Host: cfg.Server.RegistrationHost(), Port: cfg.Server.Port}
	)
	regCtx, cancelReg := context.WithCancel(context.Background())
	defer cancelReg()
	if cfg.Etcd.Enabled {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, log)
		if err != nil {
			log.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else if err := sd.Register(regCtx, instance); err != nil {
			log.Warn("Failed to register gateway", zap.Error(err))
		}
	}

	log.Info("Gateway started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Received shutdown signal")
	case err := <-errCh:
		log.Error("Server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sd != nil {
		if err := sd.Deregister(ctx, instance); err != nil {
			log.Warn("Failed to deregister gateway", zap.Error(err))
		}
		sd.Close()
	}
	if hs != nil {
		hs.Stop()
	}
	if err := gw.Shutdown(ctx); err != nil {
		log.Error("Failed to shut down gateway", zap.Error(err))
	}
	if err := store.Close(ctx); err != nil {
		log.Error("Failed to close order store", zap.Error(err))
	}

	log.Info("Gateway stopped")
}
