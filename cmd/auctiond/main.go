package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/config"
	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/inmem"
	"github.com/cloudx-io/auctionhouse/ledger"
	"github.com/cloudx-io/auctionhouse/store"
)

func main() {
	configPath := flag.String("config", "auctiond.toml", "path to the TOML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file loaded: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to load config: %v", err)
	}
	if err := cfg.ApplyOverrides(config.EnvLoader{}); err != nil {
		log.Fatalf("ERROR: Failed to apply environment overrides: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("ERROR: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	bank := inmem.NewBank()
	assets := inmem.NewAssetRegistry()
	seedGenesis(cfg, bank, assets)

	operators := make([]core.Account, len(cfg.Operators))
	for i, op := range cfg.Operators {
		operators[i] = core.Account(op)
	}

	schedule, err := cfg.FeeSchedule()
	if err != nil {
		return err
	}
	l, err := ledger.New(assets, bank, inmem.NewOperators(operators...), ledger.Config{
		Treasury:        core.Account(cfg.Treasury),
		MinIncrementBps: cfg.MinIncrementBps,
		FirstBidFloor:   cfg.FirstBidFloor,
		FeeSchedule:     schedule,
	})
	if err != nil {
		return err
	}

	for _, o := range cfg.Oracles {
		oracle := inmem.NewFixedOracle(o.Price, o.Decimals)
		if err := l.RegisterOracle(operators[0], core.BidUnit(o.Unit), oracle); err != nil {
			return fmt.Errorf("failed to register oracle for %s: %w", o.Unit, err)
		}
	}

	if cfg.AuditLog != "" {
		file, err := os.OpenFile(cfg.AuditLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		defer file.Close()
		l.SetEventSink(auctionapi.NewAuditLog(file))
		log.Printf("INFO: Audit log appending to %s", cfg.AuditLog)
	}

	if cfg.ArchiveDSN != "" {
		archive := store.Open(cfg.ArchiveDSN)
		defer archive.Close()
		if err := archive.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize archive: %w", err)
		}
		l.SetArchiver(archive)
		log.Printf("INFO: Archiving terminal auctions to Postgres")
	}

	server := NewServer(l, cfg.Listen, cfg.MaxWorkers)
	scheduler := ledger.NewScheduler(l, operators[0], cfg.SweepDuration())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(ctx) })
	g.Go(func() error { return scheduler.Run(ctx) })
	return g.Wait()
}

// seedGenesis funds the configured accounts and mints the configured assets.
func seedGenesis(cfg *config.Config, bank *inmem.Bank, assets *inmem.AssetRegistry) {
	for _, b := range cfg.Genesis.Balances {
		amount := b.Amount
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		bank.Mint(core.BidUnit(b.Unit), core.Account(b.Account), amount)
	}
	for _, a := range cfg.Genesis.Assets {
		assets.Mint(core.AssetRef{Collection: a.Collection, Serial: a.Serial}, core.Account(a.Owner))
	}
	if n := len(cfg.Genesis.Balances) + len(cfg.Genesis.Assets); n > 0 {
		log.Printf("INFO: Seeded %d genesis balances and %d genesis assets",
			len(cfg.Genesis.Balances), len(cfg.Genesis.Assets))
	}
}
