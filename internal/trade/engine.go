// =============================
// File: internal/trade/engine.go
// =============================
package trade

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akorchak/launchpad-client/internal/accounts"
	"github.com/akorchak/launchpad-client/internal/chain"
	"github.com/akorchak/launchpad-client/internal/chain/throttle"
	"github.com/akorchak/launchpad-client/internal/ixcodec"
	"github.com/akorchak/launchpad-client/internal/launchpad"
	"github.com/akorchak/launchpad-client/internal/metadata"
	"github.com/akorchak/launchpad-client/internal/pricing"
	"github.com/akorchak/launchpad-client/internal/wallet"
)

// feeBufferLamports is held back from the spendable SOL balance to cover
// transaction fees and rent for prerequisite accounts.
const feeBufferLamports = uint64(5_000_000)

// snapshot bundles the per-mint chain state a quote is computed from. It is
// advisory: reserves move between quote and execution, and the last write
// wins in the cache.
type snapshot struct {
	record            *launchpad.LaunchRecord
	platformPool      *launchpad.PoolState
	externalPool      *launchpad.PoolState
	launchStateExists bool
	fetchedAt         time.Time
}

// Engine is the explicit dependency context every trade flows through. No
// package-level state: construct one, pass it by reference.
type Engine struct {
	client   chain.Client
	queue    *throttle.Queue
	resolver *accounts.Resolver
	store    metadata.Store
	signer   wallet.Signer
	choreo   *Choreographer
	logger   *zap.Logger

	feeRecipient solana.PublicKey

	snapshotTTL time.Duration
	mu          sync.Mutex
	snapshots   map[string]*snapshot
}

// EngineDeps is the constructor bundle for Engine.
type EngineDeps struct {
	Client       chain.Client
	Queue        *throttle.Queue
	Resolver     *accounts.Resolver
	Store        metadata.Store
	Signer       wallet.Signer
	Choreo       *Choreographer
	FeeRecipient solana.PublicKey
	SnapshotTTL  time.Duration
	Logger       *zap.Logger
}

func NewEngine(deps EngineDeps) *Engine {
	ttl := deps.SnapshotTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Engine{
		client:       deps.Client,
		queue:        deps.Queue,
		resolver:     deps.Resolver,
		store:        deps.Store,
		signer:       deps.Signer,
		choreo:       deps.Choreo,
		logger:       deps.Logger.Named("engine"),
		feeRecipient: deps.FeeRecipient,
		snapshotTTL:  ttl,
		snapshots:    make(map[string]*snapshot),
	}
}

// read funnels a chain read through the request throttler.
func (e *Engine) read(ctx context.Context, fn func(context.Context) error) error {
	if e.queue == nil {
		return fn(ctx)
	}
	return e.queue.Submit(ctx, fn)
}

// snapshotFor returns the cached chain state for a mint, refetching past the
// freshness window. Concurrent refreshes are tolerated; last write wins.
func (e *Engine) snapshotFor(ctx context.Context, mint solana.PublicKey) (*snapshot, error) {
	key := mint.String()

	e.mu.Lock()
	cached, ok := e.snapshots[key]
	e.mu.Unlock()
	if ok && time.Since(cached.fetchedAt) < e.snapshotTTL {
		return cached, nil
	}

	snap, err := e.fetchSnapshot(ctx, mint)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.snapshots[key] = snap
	e.mu.Unlock()
	return snap, nil
}

func (e *Engine) fetchSnapshot(ctx context.Context, mint solana.PublicKey) (*snapshot, error) {
	launchState, _, err := launchpad.DeriveLaunchState(mint)
	if err != nil {
		return nil, err
	}
	platformPool, _, err := launchpad.DerivePool(mint, solana.WrappedSol)
	if err != nil {
		return nil, err
	}
	externalPool, _, err := launchpad.DeriveExternalPool(mint, solana.WrappedSol)
	if err != nil {
		return nil, err
	}

	var res *rpc.GetMultipleAccountsResult
	err = e.read(ctx, func(ctx context.Context) error {
		var inner error
		res, inner = e.client.GetMultipleAccounts(ctx,
			[]solana.PublicKey{launchState, platformPool, externalPool})
		return inner
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch launch snapshot for %s: %w", mint, err)
	}
	if res == nil || len(res.Value) < 3 {
		return nil, fmt.Errorf("short snapshot response for %s", mint)
	}

	snap := &snapshot{fetchedAt: time.Now()}

	if acc := res.Value[0]; acc != nil {
		snap.launchStateExists = true
		rec, perr := launchpad.ParseLaunchState(acc.Data.GetBinary())
		if perr != nil {
			e.logger.Warn("Undecodable launch state",
				zap.String("mint", mint.String()), zap.Error(perr))
		} else {
			snap.record = rec
		}
	}
	if acc := res.Value[1]; acc != nil {
		pool, perr := launchpad.ParsePoolState(acc.Data.GetBinary())
		if perr == nil {
			snap.platformPool = pool
		}
	}
	if acc := res.Value[2]; acc != nil {
		pool, perr := launchpad.ParsePoolState(acc.Data.GetBinary())
		if perr == nil {
			snap.externalPool = pool
		}
	}
	return snap, nil
}

func (e *Engine) invalidateSnapshot(mint solana.PublicKey) {
	e.mu.Lock()
	delete(e.snapshots, mint.String())
	e.mu.Unlock()
}

// Quote prices a trade against the current snapshot without touching funds.
// The result is derived state, valid only for the snapshot it was computed
// from.
func (e *Engine) Quote(ctx context.Context, mint solana.PublicKey, dir pricing.Direction, amountIn uint64) (*pricing.SwapQuote, error) {
	snap, err := e.snapshotFor(ctx, mint)
	if err != nil {
		return nil, err
	}
	return quoteFromSnapshot(snap, dir, amountIn)
}

func quoteFromSnapshot(snap *snapshot, dir pricing.Direction, amountIn uint64) (*pricing.SwapQuote, error) {
	route, err := pricing.SelectRoute(snap.externalPool, snap.platformPool, snap.record)
	if err != nil {
		return nil, err
	}
	switch route {
	case pricing.RouteExternalAMM:
		return pricing.QuoteConstantProduct(route, snap.externalPool, dir, amountIn)
	case pricing.RoutePlatformPool:
		return pricing.QuoteConstantProduct(route, snap.platformPool, dir, amountIn)
	default:
		return pricing.QuoteBondingCurve(snap.record, dir, amountIn)
	}
}

// Execute runs a full trade: quote, balance gate, prerequisites, instruction
// assembly, graduation check, simulation, submission, confirmation. Every
// failure mode lands inside the Result; the error return is reserved for
// context cancellation and programming faults.
func (e *Engine) Execute(ctx context.Context, mint solana.PublicKey, dir pricing.Direction, amountIn uint64) (*Result, error) {
	log := e.logger.With(
		zap.String("trade_id", uuid.New().String()),
		zap.String("mint", mint.String()),
		zap.String("direction", dir.String()),
		zap.Uint64("amount_in", amountIn),
	)

	snap, err := e.snapshotFor(ctx, mint)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return failureResult(nil, newError(ErrCodeAccountNotFound, "failed to read launch state", err)), nil
	}

	quote, err := quoteFromSnapshot(snap, dir, amountIn)
	if err != nil {
		code := ErrCodeNoLiquidity
		if !errors.Is(err, pricing.ErrNoLiquidity) && !errors.Is(err, pricing.ErrNoQuote) {
			code = ErrCodeUnknown
		}
		return failureResult(nil, newError(code, "cannot price trade", err)), nil
	}

	log.Info("Quote computed",
		zap.String("route", quote.Route.String()),
		zap.Uint64("output", quote.OutputAmount),
		zap.Float64("price_impact_pct", quote.PriceImpactPercent),
		zap.Uint64("minimum_received", quote.MinimumReceived))

	if te := e.checkBalance(ctx, mint, dir, quote); te != nil {
		return failureResult(quote, te), nil
	}

	userToken, exists, err := e.resolveUserToken(ctx, mint)
	if err != nil {
		return failureResult(quote, newError(ErrCodeAccountNotFound, "failed to resolve user token account", err)), nil
	}
	if !exists {
		if dir == pricing.SpendToken {
			return failureResult(quote, newError(ErrCodeInsufficientBalance,
				"no token account to sell from", nil)), nil
		}
		if te := e.ensureUserToken(ctx, mint, userToken, log); te != nil {
			return failureResult(quote, te), nil
		}
	}

	if te := e.ensurePool(ctx, mint, snap, log); te != nil {
		return failureResult(quote, te), nil
	}

	instructions, graduates, te := e.assemble(ctx, mint, snap, quote, userToken)
	if te != nil {
		return failureResult(quote, te), nil
	}

	sig, te := e.choreo.ExecuteTrade(ctx, instructions)
	if te != nil {
		if te.Informational() {
			log.Warn("Trade ended with informational outcome",
				zap.String("code", te.Code.String()),
				zap.String("signature", sig.String()))
		} else {
			log.Error("Trade failed", zap.String("code", te.Code.String()), zap.Error(te))
		}
		r := failureResult(quote, te)
		r.Signature = sig
		return r, nil
	}

	log.Info("Trade confirmed",
		zap.String("signature", sig.String()),
		zap.Bool("graduated", graduates))

	e.invalidateSnapshot(mint)
	e.recordTrade(ctx, mint, snap, quote)

	return successResult(sig, quote, graduates), nil
}

// checkBalance gates the trade on the spendable balance of the leg being
// spent, with a fee buffer on the SOL side.
func (e *Engine) checkBalance(ctx context.Context, mint solana.PublicKey, dir pricing.Direction, quote *pricing.SwapQuote) *Error {
	user := e.signer.PublicKey()

	if dir == pricing.SpendSol {
		var balance uint64
		err := e.read(ctx, func(ctx context.Context) error {
			var inner error
			balance, inner = e.client.GetBalance(ctx, user, rpc.CommitmentConfirmed)
			return inner
		})
		if err != nil {
			return newError(ErrCodeUnknown, "failed to read SOL balance", err)
		}
		required := quote.InputAmount + feeBufferLamports
		if balance < required {
			return newError(ErrCodeInsufficientBalance,
				fmt.Sprintf("need %d lamports (including fee buffer), have %d", required, balance), nil)
		}
		return nil
	}

	ata, err := e.signerATA(mint)
	if err != nil {
		return newError(ErrCodeUnknown, "failed to derive token account", err)
	}
	var res *rpc.GetTokenAccountBalanceResult
	rerr := e.read(ctx, func(ctx context.Context) error {
		var inner error
		res, inner = e.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
		return inner
	})
	if rerr != nil {
		if chain.IsAccountNotFound(rerr) {
			return newError(ErrCodeInsufficientBalance, "no token account to sell from", rerr)
		}
		return newError(ErrCodeUnknown, "failed to read token balance", rerr)
	}
	held := uint64(0)
	if res != nil && res.Value != nil {
		held, _ = strconv.ParseUint(res.Value.Amount, 10, 64)
	}
	if held < quote.InputAmount {
		return newError(ErrCodeInsufficientBalance,
			fmt.Sprintf("need %d token units, have %d", quote.InputAmount, held), nil)
	}
	return nil
}

func (e *Engine) signerATA(mint solana.PublicKey) (solana.PublicKey, error) {
	// Local wallets memoize the derivation; other signers derive fresh.
	if w, ok := e.signer.(*wallet.Wallet); ok {
		return w.ATA(mint)
	}
	ata, _, err := solana.FindAssociatedTokenAddress(e.signer.PublicKey(), mint)
	return ata, err
}

func (e *Engine) resolveUserToken(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, bool, error) {
	var (
		ata    solana.PublicKey
		exists bool
	)
	err := e.read(ctx, func(ctx context.Context) error {
		var inner error
		ata, exists, inner = e.resolver.ResolveUserTokenAccount(ctx, e.signer.PublicKey(), mint)
		return inner
	})
	return ata, exists, err
}

// ensureUserToken creates the user's token account in its own confirmed
// transaction before the trade. The idempotent associated-token creation
// rides along so a half-created account cannot strand the program
// instruction.
func (e *Engine) ensureUserToken(ctx context.Context, mint, tokenAccount solana.PublicKey, log *zap.Logger) *Error {
	user := e.signer.PublicKey()
	ataIx := wallet.CreateATAIdempotentInstruction(user, user, mint)
	ix, err := ixcodec.BuildCreateTokenAccountInstruction(user, tokenAccount, user, mint)
	if err != nil {
		return newError(ErrCodeSerialization, "failed to build token account creation", err)
	}
	log.Info("Creating user token account", zap.String("account", tokenAccount.String()))
	if err := e.choreo.ExecutePrerequisite(ctx, "create-token-account", ataIx, ix); err != nil {
		return e.choreo.validator.ClassifySendError(err)
	}
	return nil
}

// ensurePool initializes the platform pool for instant launches whose pool
// account does not exist yet, in its own confirmed transaction.
func (e *Engine) ensurePool(ctx context.Context, mint solana.PublicKey, snap *snapshot, log *zap.Logger) *Error {
	if snap.record == nil || !snap.record.InstantLaunch || snap.platformPool != nil {
		return nil
	}

	pool, bump, err := launchpad.DerivePool(mint, solana.WrappedSol)
	if err != nil {
		return newError(ErrCodeUnknown, "failed to derive pool", err)
	}
	authority, _, err := launchpad.DerivePoolAuthority(mint)
	if err != nil {
		return newError(ErrCodeUnknown, "failed to derive pool authority", err)
	}
	tokenVault, err := launchpad.DeriveVault(authority, mint)
	if err != nil {
		return newError(ErrCodeUnknown, "failed to derive token vault", err)
	}

	ix, err := ixcodec.BuildInitializePoolInstruction(
		pool, authority, mint, pool, tokenVault, e.signer.PublicKey(),
		&ixcodec.InitializePoolArgs{Nonce: uint64(bump)},
	)
	if err != nil {
		return newError(ErrCodeSerialization, "failed to build pool initialization", err)
	}
	log.Info("Initializing platform pool", zap.String("pool", pool.String()))
	if err := e.choreo.ExecutePrerequisite(ctx, "initialize-pool", ix); err != nil {
		return e.choreo.validator.ClassifySendError(err)
	}
	return nil
}

// assemble builds the primary instruction list for the trade, appending the
// graduation instruction when this buy crosses the threshold from below.
func (e *Engine) assemble(
	ctx context.Context,
	mint solana.PublicKey,
	snap *snapshot,
	quote *pricing.SwapQuote,
	userToken solana.PublicKey,
) ([]solana.Instruction, bool, *Error) {
	launchState, _, err := launchpad.DeriveLaunchState(mint)
	if err != nil {
		return nil, false, newError(ErrCodeUnknown, "failed to derive launch state", err)
	}
	authority, _, err := launchpad.DerivePoolAuthority(mint)
	if err != nil {
		return nil, false, newError(ErrCodeUnknown, "failed to derive pool authority", err)
	}
	pool, _, err := launchpad.DerivePool(mint, solana.WrappedSol)
	if err != nil {
		return nil, false, newError(ErrCodeUnknown, "failed to derive pool", err)
	}
	eventLog, _, err := launchpad.DeriveEventLog(mint)
	if err != nil {
		return nil, false, newError(ErrCodeUnknown, "failed to derive event log", err)
	}

	var tokenVault solana.PublicKey
	rerr := e.read(ctx, func(ctx context.Context) error {
		var inner error
		tokenVault, inner = e.resolver.ResolvePoolTokenAccount(ctx, mint)
		return inner
	})
	if rerr != nil {
		var mismatch *accounts.AuthorityMismatchError
		if errors.As(rerr, &mismatch) {
			return nil, false, newError(ErrCodeAuthorityMismatch, mismatch.Error(), rerr)
		}
		return nil, false, newError(ErrCodeAccountNotFound, "pool token account not found", rerr)
	}

	args := &ixcodec.PlaceOrderArgs{
		OrderType:     ixcodec.OrderTypeImmediateOrKill,
		ClientOrderID: newClientOrderID(),
	}
	switch quote.Direction {
	case pricing.SpendSol:
		args.Side = ixcodec.SideBuy
		args.MaxQuoteQty = quote.InputAmount
		args.MaxBaseQty = quote.MinimumReceived
	case pricing.SpendToken:
		args.Side = ixcodec.SideSell
		args.MaxBaseQty = quote.InputAmount
		args.MaxQuoteQty = quote.MinimumReceived
	}
	if snap.record != nil {
		args.Extended = true
		args.InstantLaunch = snap.record.InstantLaunch
		args.Graduated = snap.record.Graduated()
		args.TokensSold = snap.record.TokensSold
		args.TotalSupply = snap.record.TotalSupply
		args.CreatorKey = snap.record.Creator
	}

	tradeAccounts := ixcodec.TradeAccounts{
		LaunchState:   launchState,
		Mint:          mint,
		PoolAuthority: authority,
		SolVault:      pool,
		TokenVault:    tokenVault,
		UserToken:     userToken,
		User:          e.signer.PublicKey(),
		FeeRecipient:  e.feeRecipient,
		EventLog:      eventLog,
	}
	if snap.launchStateExists {
		tradeAccounts.LaunchData = &launchState
	}

	tradeIx, err := ixcodec.BuildPlaceOrderInstruction(tradeAccounts, args)
	if err != nil {
		return nil, false, newError(ErrCodeSerialization, "failed to build trade instruction", err)
	}
	instructions := []solana.Instruction{tradeIx}

	graduates := e.crossesGraduation(snap, quote)
	if graduates {
		raisedAfter := pricing.CurveRaisedLamports(snap.record.TotalSupply,
			snap.record.TokensSold+quote.OutputAmount)
		gradIx, gerr := ixcodec.BuildGraduatePoolInstruction(
			launchState, mint, authority, pool, tokenVault, e.signer.PublicKey(),
			&ixcodec.GraduatePoolArgs{
				TokensSold:     snap.record.TokensSold + quote.OutputAmount,
				RaisedLamports: raisedAfter,
			},
		)
		if gerr != nil {
			return nil, false, newError(ErrCodeSerialization, "failed to build graduation instruction", gerr)
		}
		instructions = append(instructions, gradIx)
		e.logger.Info("Trade crosses graduation threshold, appending graduation",
			zap.String("mint", mint.String()),
			zap.Uint64("raised_after", raisedAfter))
	}

	return instructions, graduates, nil
}

// crossesGraduation reports whether a curve buy pushes cumulative raised SOL
// across the threshold from below. Only the crossing trade graduates.
func (e *Engine) crossesGraduation(snap *snapshot, quote *pricing.SwapQuote) bool {
	if quote.Route != pricing.RouteBondingCurve || quote.Direction != pricing.SpendSol {
		return false
	}
	if snap.record == nil || snap.record.Graduated() {
		return false
	}
	before := pricing.CurveRaisedLamports(snap.record.TotalSupply, snap.record.TokensSold)
	after := pricing.CurveRaisedLamports(snap.record.TotalSupply,
		snap.record.TokensSold+quote.OutputAmount)
	return before < launchpad.GraduationThresholdLamports &&
		after >= launchpad.GraduationThresholdLamports
}

// recordTrade mirrors the post-trade launch state into the metadata store,
// best-effort.
func (e *Engine) recordTrade(ctx context.Context, mint solana.PublicKey, snap *snapshot, quote *pricing.SwapQuote) {
	if e.store == nil || snap.record == nil {
		return
	}
	rec, err := e.store.Get(ctx, mint.String())
	if err != nil || rec == nil {
		rec = &metadata.Record{}
	}
	rec.LaunchMode = snap.record.Mode.String()
	rec.TotalSupply = snap.record.TotalSupply
	rec.Creator = snap.record.Creator.String()
	switch quote.Direction {
	case pricing.SpendSol:
		rec.TokensSold = snap.record.TokensSold + quote.OutputAmount
	case pricing.SpendToken:
		if quote.InputAmount <= snap.record.TokensSold {
			rec.TokensSold = snap.record.TokensSold - quote.InputAmount
		}
	}
	if err := e.store.Upsert(ctx, mint.String(), rec); err != nil {
		e.logger.Debug("Metadata write-back failed",
			zap.String("mint", mint.String()), zap.Error(err))
	}
}

func newClientOrderID() uint64 {
	u := uuid.New()
	return binary.BigEndian.Uint64(u[:8])
}
