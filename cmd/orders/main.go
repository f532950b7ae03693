// Command orders prints the past-orders table from the configured order store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/example/foodonbus/pkg/config"
	"github.com/example/foodonbus/pkg/history"
	"github.com/example/foodonbus/pkg/logger"
	"github.com/example/foodonbus/pkg/repository"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Table goes to stdout; keep logs off it.
	cfg.Log.OutputPaths = []string{"stderr"}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := repository.OpenOrderStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to open order store", zap.Error(err))
	}
	ctx := context.Background()
	defer store.Close(ctx)

	view := history.NewView(store, cfg.Order.CurrencySymbol)
	if err := history.Render(os.Stdout, view.ListOrders(ctx)); err != nil {
		log.Fatal("Failed to print orders", zap.Error(err))
	}
}
