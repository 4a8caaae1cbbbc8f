// =============================
// File: internal/accounts/resolver.go
// =============================
package accounts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/akorchak/launchpad-client/internal/chain"
	"github.com/akorchak/launchpad-client/internal/launchpad"
	"github.com/akorchak/launchpad-client/internal/metadata"
)

// AuthorityMismatchError reports that token accounts for the mint exist but
// none is owned by the expected pool authority. It is a distinct failure
// class from "nothing found": trading against a wrong-authority account
// would move funds to the wrong place.
type AuthorityMismatchError struct {
	Mint       solana.PublicKey
	Expected   solana.PublicKey
	Candidates []solana.PublicKey
}

func (e *AuthorityMismatchError) Error() string {
	cands := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		cands[i] = c.String()
	}
	return fmt.Sprintf("authority mismatch for mint %s: expected authority %s, found accounts owned by others: %s",
		e.Mint, e.Expected, strings.Join(cands, ", "))
}

// NotFoundError reports that every resolution strategy came up empty.
type NotFoundError struct {
	Mint solana.PublicKey
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no pool token account found for mint %s", e.Mint)
}

type cacheEntry struct {
	account  solana.PublicKey
	cachedAt time.Time
}

// Resolver locates the pool's token reservoir for a mint through an ordered
// chain of strategies, cheapest first. Each successful resolution is written
// back to the local cache and, best-effort, to the metadata store.
type Resolver struct {
	client chain.Client
	store  metadata.Store
	logger *zap.Logger

	cacheTTL time.Duration
	mu       sync.RWMutex
	cache    map[string]cacheEntry
}

func NewResolver(client chain.Client, store metadata.Store, cacheTTL time.Duration, logger *zap.Logger) *Resolver {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Resolver{
		client:   client,
		store:    store,
		logger:   logger.Named("resolver"),
		cacheTTL: cacheTTL,
		cache:    make(map[string]cacheEntry),
	}
}

// ResolvePoolTokenAccount finds the token account the pool authority trades
// out of. Strategy order: local cache, metadata store with on-chain
// ownership verification, owner+mint index scan, address re-derivation with
// ownership verification, and finally an exhaustive program-account scan.
// The last scan distinguishes a genuine absence from accounts held by the
// wrong authority.
func (r *Resolver) ResolvePoolTokenAccount(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	mintStr := mint.String()

	if acc, ok := r.cached(mintStr); ok {
		return acc, nil
	}

	authority, _, err := launchpad.DerivePoolAuthority(mint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	if acc, ok := r.fromStore(ctx, mintStr, authority); ok {
		r.remember(ctx, mint, acc)
		return acc, nil
	}

	if acc, ok := r.fromOwnerScan(ctx, authority, mint); ok {
		r.remember(ctx, mint, acc)
		return acc, nil
	}

	if acc, ok := r.fromDerivation(ctx, authority, mint); ok {
		r.remember(ctx, mint, acc)
		return acc, nil
	}

	acc, err := r.fromProgramScan(ctx, authority, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	r.remember(ctx, mint, acc)
	return acc, nil
}

// ResolveUserTokenAccount returns the user's associated token account for a
// mint and whether it already exists on chain. A missing account is not an
// error here; the caller decides whether to create it.
func (r *Resolver) ResolveUserTokenAccount(ctx context.Context, owner, mint solana.PublicKey) (solana.PublicKey, bool, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, false, fmt.Errorf("failed to derive user token account: %w", err)
	}

	info, err := r.client.GetAccountInfo(ctx, ata)
	if err != nil {
		if chain.IsAccountNotFound(err) {
			return ata, false, nil
		}
		return solana.PublicKey{}, false, fmt.Errorf("failed to check user token account: %w", err)
	}
	exists := info != nil && info.Value != nil
	return ata, exists, nil
}

func (r *Resolver) cached(mint string) (solana.PublicKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[mint]
	if !ok || time.Since(entry.cachedAt) > r.cacheTTL {
		return solana.PublicKey{}, false
	}
	return entry.account, true
}

// fromStore consults the metadata store, then confirms the stored account is
// still authority-owned on chain. The store is advisory; a stale or poisoned
// record must not route a trade, so a failed check falls through to the
// scanning strategies.
func (r *Resolver) fromStore(ctx context.Context, mint string, authority solana.PublicKey) (solana.PublicKey, bool) {
	if r.store == nil {
		return solana.PublicKey{}, false
	}
	rec, err := r.store.Get(ctx, mint)
	if err != nil {
		r.logger.Debug("Metadata store lookup failed", zap.String("mint", mint), zap.Error(err))
		return solana.PublicKey{}, false
	}
	if rec == nil || rec.PoolTokenAccount == "" {
		return solana.PublicKey{}, false
	}
	acc, err := solana.PublicKeyFromBase58(rec.PoolTokenAccount)
	if err != nil {
		r.logger.Warn("Metadata store holds undecodable account",
			zap.String("mint", mint), zap.Error(err))
		return solana.PublicKey{}, false
	}
	if !r.authorityOwned(ctx, acc, authority) {
		r.logger.Warn("Metadata store account failed ownership check, rescanning",
			zap.String("mint", mint), zap.String("account", acc.String()))
		return solana.PublicKey{}, false
	}
	r.logger.Debug("Resolved pool token account from metadata store",
		zap.String("mint", mint), zap.String("account", acc.String()))
	return acc, true
}

func (r *Resolver) fromOwnerScan(ctx context.Context, authority, mint solana.PublicKey) (solana.PublicKey, bool) {
	accounts, err := r.client.GetTokenAccountsByOwner(ctx, authority, mint)
	if err != nil {
		r.logger.Debug("Owner scan failed", zap.String("mint", mint.String()), zap.Error(err))
		return solana.PublicKey{}, false
	}
	if len(accounts) == 0 {
		return solana.PublicKey{}, false
	}
	// The pool authority holds at most one account per mint; take the first.
	acc := accounts[0].Pubkey
	r.logger.Debug("Resolved pool token account via owner scan",
		zap.String("mint", mint.String()), zap.String("account", acc.String()))
	return acc, true
}

// fromDerivation recomputes the canonical vault address and verifies the
// on-chain owner field actually is the pool authority before trusting it.
func (r *Resolver) fromDerivation(ctx context.Context, authority, mint solana.PublicKey) (solana.PublicKey, bool) {
	vault, err := launchpad.DeriveVault(authority, mint)
	if err != nil {
		return solana.PublicKey{}, false
	}
	if !r.authorityOwned(ctx, vault, authority) {
		r.logger.Debug("Derived vault is absent or not authority-owned",
			zap.String("vault", vault.String()))
		return solana.PublicKey{}, false
	}
	r.logger.Debug("Resolved pool token account via derivation",
		zap.String("mint", mint.String()), zap.String("account", vault.String()))
	return vault, true
}

// authorityOwned reads the account and checks its token-account owner field.
func (r *Resolver) authorityOwned(ctx context.Context, account, authority solana.PublicKey) bool {
	info, err := r.client.GetAccountInfo(ctx, account)
	if err != nil || info == nil || info.Value == nil {
		return false
	}
	owner, ok := tokenAccountOwner(info.Value.Data.GetBinary())
	return ok && owner.Equals(authority)
}

// fromProgramScan is the last resort: enumerate every token account for the
// mint and pick the authority-owned one. Accounts held by other owners are
// collected so a mismatch can be reported with its candidates.
func (r *Resolver) fromProgramScan(ctx context.Context, authority, mint solana.PublicKey) (solana.PublicKey, error) {
	opts := &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{DataSize: launchpad.TokenAccountDataLen},
			{Memcmp: &rpc.RPCFilterMemcmp{
				Offset: launchpad.TokenAccountMintOffset,
				Bytes:  solana.Base58(mint.Bytes()),
			}},
		},
	}

	accounts, err := r.client.GetProgramAccountsWithOpts(ctx, solana.TokenProgramID, opts)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("token account scan failed for mint %s: %w", mint, err)
	}

	var candidates []solana.PublicKey
	for _, acc := range accounts {
		if acc == nil || acc.Account == nil {
			continue
		}
		owner, ok := tokenAccountOwner(acc.Account.Data.GetBinary())
		if !ok {
			continue
		}
		if owner.Equals(authority) {
			r.logger.Debug("Resolved pool token account via program scan",
				zap.String("mint", mint.String()),
				zap.String("account", acc.Pubkey.String()))
			return acc.Pubkey, nil
		}
		candidates = append(candidates, acc.Pubkey)
	}

	if len(candidates) > 0 {
		return solana.PublicKey{}, &AuthorityMismatchError{
			Mint:       mint,
			Expected:   authority,
			Candidates: candidates,
		}
	}
	return solana.PublicKey{}, &NotFoundError{Mint: mint}
}

// remember writes a resolution to the local cache and, without blocking the
// caller on failures, to the metadata store.
func (r *Resolver) remember(ctx context.Context, mint, account solana.PublicKey) {
	mintStr := mint.String()

	r.mu.Lock()
	r.cache[mintStr] = cacheEntry{account: account, cachedAt: time.Now()}
	r.mu.Unlock()

	if r.store == nil {
		return
	}
	rec, err := r.store.Get(ctx, mintStr)
	if err != nil || rec == nil {
		rec = &metadata.Record{}
	}
	rec.PoolTokenAccount = account.String()
	if err := r.store.Upsert(ctx, mintStr, rec); err != nil {
		r.logger.Debug("Metadata store write-back failed",
			zap.String("mint", mintStr), zap.Error(err))
	}
}

func tokenAccountOwner(data []byte) (solana.PublicKey, bool) {
	if len(data) < launchpad.TokenAccountOwnerOffset+32 {
		return solana.PublicKey{}, false
	}
	return solana.PublicKeyFromBytes(data[launchpad.TokenAccountOwnerOffset : launchpad.TokenAccountOwnerOffset+32]), true
}
