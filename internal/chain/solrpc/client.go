// =============================
// File: internal/chain/solrpc/client.go
// =============================
package solrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/akorchak/launchpad-client/internal/chain"
)

// confirmationTimeout bounds WaitForTransactionConfirmation polling. A
// timeout is reported as such, not as proof of non-execution.
const confirmationTimeout = 30 * time.Second

// Client is a thin adapter over solana-go's RPC client implementing
// chain.Client. Constructed once and passed by reference; no package-level
// instance exists.
type Client struct {
	rpc    *rpc.Client
	logger *zap.Logger
}

func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(rpcURL),
		logger: logger.Named("solrpc"),
	}
}

func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	result, err := c.rpc.GetAccountInfo(ctx, pubkey)
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// multiAccountBatchSize is the RPC node's per-call key limit.
const multiAccountBatchSize = 100

func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	if len(pubkeys) == 0 {
		return &rpc.GetMultipleAccountsResult{}, nil
	}

	opts := rpc.GetMultipleAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	}

	if len(pubkeys) <= multiAccountBatchSize {
		res, err := c.rpc.GetMultipleAccountsWithOpts(ctx, pubkeys, &opts)
		if err != nil {
			c.logger.Debug("GetMultipleAccounts error", zap.Error(err))
			return nil, err
		}
		return res, nil
	}

	// Over-limit requests are split into batches fetched concurrently and
	// merged back in key order.
	merged := make([]*rpc.Account, len(pubkeys))
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(pubkeys); start += multiAccountBatchSize {
		start := start
		end := start + multiAccountBatchSize
		if end > len(pubkeys) {
			end = len(pubkeys)
		}
		g.Go(func() error {
			res, err := c.rpc.GetMultipleAccountsWithOpts(gctx, pubkeys[start:end], &opts)
			if err != nil {
				return err
			}
			copy(merged[start:end], res.Value)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Debug("GetMultipleAccounts batch error", zap.Error(err))
		return nil, err
	}
	return &rpc.GetMultipleAccountsResult{Value: merged}, nil
}

// GetTokenAccountsByOwner runs the owner+mint index scan used by the
// account resolver's fallback chain.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]*rpc.TokenAccount, error) {
	res, err := c.rpc.GetTokenAccountsByOwner(
		ctx,
		owner,
		&rpc.GetTokenAccountsConfig{Mint: mint.ToPointer()},
		&rpc.GetTokenAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingBase64,
		},
	)
	if err != nil {
		c.logger.Debug("GetTokenAccountsByOwner error",
			zap.String("owner", owner.String()),
			zap.String("mint", mint.String()),
			zap.Error(err))
		return nil, err
	}
	return res.Value, nil
}

func (c *Client) GetProgramAccountsWithOpts(
	ctx context.Context,
	programID solana.PublicKey,
	opts *rpc.GetProgramAccountsOpts,
) (rpc.GetProgramAccountsResult, error) {
	accounts, err := c.rpc.GetProgramAccountsWithOpts(ctx, programID, opts)
	if err != nil {
		c.logger.Debug("GetProgramAccountsWithOpts error",
			zap.String("program_id", programID.String()),
			zap.Error(err))
		return nil, err
	}
	return accounts, nil
}

func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return c.rpc.GetTokenAccountBalance(ctx, account, commitment)
}

func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, commitment)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, false, signatures...)
	if err != nil {
		c.logger.Error("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*chain.SimulationResult, error) {
	result, err := c.rpc.SimulateTransaction(ctx, tx)
	if err != nil {
		c.logger.Error("SimulateTransaction error", zap.Error(err))
		return nil, err
	}
	units := uint64(0)
	if result.Value.UnitsConsumed != nil {
		units = *result.Value.UnitsConsumed
	}
	return &chain.SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: units,
	}, nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		c.logger.Error("SendTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts chain.TransactionOptions) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	})
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// WaitForTransactionConfirmation polls signature statuses until the target
// commitment or the fixed timeout. On timeout the caller must treat the
// outcome as unknown, not failed.
func (c *Client) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, _ rpc.CommitmentType) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(confirmationTimeout)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("confirmation timeout")
		case <-ticker.C:
			statuses, err := c.GetSignatureStatuses(ctx, signature)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses != nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
				status := statuses.Value[0]
				if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized ||
					status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed {
					return nil
				}
			}
		}
	}
}

// Client implements chain.Client.
var _ chain.Client = (*Client)(nil)
