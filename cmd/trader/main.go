// =============================
// File: cmd/trader/main.go
// =============================
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/akorchak/launchpad-client/internal/accounts"
	"github.com/akorchak/launchpad-client/internal/chain/solrpc"
	"github.com/akorchak/launchpad-client/internal/chain/throttle"
	"github.com/akorchak/launchpad-client/internal/config"
	"github.com/akorchak/launchpad-client/internal/ixcodec"
	"github.com/akorchak/launchpad-client/internal/launchpad"
	"github.com/akorchak/launchpad-client/internal/logger"
	"github.com/akorchak/launchpad-client/internal/metadata"
	"github.com/akorchak/launchpad-client/internal/pricing"
	"github.com/akorchak/launchpad-client/internal/trade"
	"github.com/akorchak/launchpad-client/internal/wallet"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file (optional; env overrides apply)")
		mintStr    = flag.String("mint", "", "token mint to trade")
		side       = flag.String("side", "buy", "trade side: buy or sell")
		amount     = flag.Float64("amount", 0, "amount to spend: SOL on buys, whole tokens on sells")
		quoteOnly  = flag.Bool("quote", false, "print the quote and exit without trading")
	)
	flag.Parse()

	if err := run(*configPath, *mintStr, *side, *amount, *quoteOnly); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, mintStr, side string, amount float64, quoteOnly bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	mint, err := solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		return fmt.Errorf("invalid mint: %w", err)
	}
	feeRecipient, err := solana.PublicKeyFromBase58(cfg.Trade.FeeRecipient)
	if err != nil {
		return fmt.Errorf("invalid fee recipient: %w", err)
	}

	var dir pricing.Direction
	var decimals int
	switch side {
	case "buy":
		dir = pricing.SpendSol
		decimals = launchpad.SolDecimals
	case "sell":
		dir = pricing.SpendToken
		decimals = launchpad.TokenDecimals
	default:
		return fmt.Errorf("invalid side %q: want buy or sell", side)
	}
	amountIn, err := baseUnits(amount, decimals)
	if err != nil {
		return err
	}

	w, err := wallet.New(cfg.Wallet.PrivateKey)
	if err != nil {
		return fmt.Errorf("failed to load wallet: %w", err)
	}

	client := solrpc.NewClient(cfg.RPC.URL, log)
	queue := throttle.New(cfg.Throttle.MinDelay, cfg.Throttle.QueueCapacity, log)
	defer queue.Close()

	var store metadata.Store
	if cfg.Redis.Enabled {
		rs := metadata.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL, log)
		defer func() { _ = rs.Close() }()
		store = rs
	}

	resolver := accounts.NewResolver(client, store, cfg.Trade.SnapshotTTL, log)
	validator := trade.NewValidator(log)
	choreo := trade.NewChoreographer(
		client, w, validator,
		cfg.Trade.ComputeUnitLimit, cfg.Trade.ComputeUnitPrice, cfg.Trade.SkipPreflight,
		log,
	)

	engine := trade.NewEngine(trade.EngineDeps{
		Client:       client,
		Queue:        queue,
		Resolver:     resolver,
		Store:        store,
		Signer:       w,
		Choreo:       choreo,
		FeeRecipient: feeRecipient,
		SnapshotTTL:  cfg.Trade.SnapshotTTL,
		Logger:       log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Transient RPC failures on the read path are retried with exponential
	// backoff before giving up.
	quote, err := backoff.Retry(ctx, func() (*pricing.SwapQuote, error) {
		return engine.Quote(ctx, mint, dir, amountIn)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(4),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("Quote attempt failed, retrying",
				zap.Error(err), zap.Duration("next_in", next))
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to quote: %w", err)
	}

	printQuote(quote)
	if quoteOnly {
		return nil
	}

	result, err := engine.Execute(ctx, mint, dir, amountIn)
	if err != nil {
		return err
	}
	printResult(result)

	if !result.Success && (result.Err == nil || !result.Err.Informational()) {
		return fmt.Errorf("trade failed")
	}
	return nil
}

// baseUnits scales a human-units amount into smallest units, clamping on
// overflow instead of letting the conversion wrap.
func baseUnits(amount float64, decimals int) (uint64, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("amount must be positive")
	}
	scaled := ixcodec.ClampFloatToU64(amount * math.Pow10(decimals))
	if scaled == 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	return scaled, nil
}

func printQuote(q *pricing.SwapQuote) {
	fmt.Printf("route:            %s\n", q.Route)
	fmt.Printf("direction:        %s\n", q.Direction)
	fmt.Printf("input:            %d\n", q.InputAmount)
	fmt.Printf("output:           %d\n", q.OutputAmount)
	fmt.Printf("price (SOL/token): %.12f\n", q.Price)
	fmt.Printf("price impact:     %.4f%%\n", q.PriceImpactPercent)
	fmt.Printf("minimum received: %d\n", q.MinimumReceived)
}

func printResult(r *trade.Result) {
	if r.Success {
		fmt.Printf("confirmed: %s\n", r.Signature)
		if r.Graduated {
			fmt.Println("launch graduated to the external AMM with this trade")
		}
		return
	}
	if r.Err != nil && r.Err.Informational() {
		fmt.Printf("outcome uncertain (%s): %s\n", r.Err.Code, r.Err.Message)
		if !r.Signature.IsZero() {
			fmt.Printf("signature: %s\n", r.Signature)
		}
		return
	}
	fmt.Printf("failed: %v\n", r.Err)
}
