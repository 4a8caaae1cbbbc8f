// =============================
// File: internal/trade/choreographer.go
// =============================
package trade

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/akorchak/launchpad-client/internal/chain"
	"github.com/akorchak/launchpad-client/internal/wallet"
)

// Choreographer owns the transaction lifecycle: assembly, simulation gate,
// submission, confirmation. Prerequisite steps (token account creation, pool
// initialization) each get their own transaction, fully confirmed before the
// next step; only the graduation instruction rides atomically with a trade.
type Choreographer struct {
	client    chain.Client
	signer    wallet.Signer
	validator *Validator
	logger    *zap.Logger

	computeUnitLimit uint32
	computeUnitPrice uint64
	skipPreflight    bool
}

func NewChoreographer(
	client chain.Client,
	signer wallet.Signer,
	validator *Validator,
	computeUnitLimit uint32,
	computeUnitPrice uint64,
	skipPreflight bool,
	logger *zap.Logger,
) *Choreographer {
	return &Choreographer{
		client:           client,
		signer:           signer,
		validator:        validator,
		logger:           logger.Named("choreographer"),
		computeUnitLimit: computeUnitLimit,
		computeUnitPrice: computeUnitPrice,
		skipPreflight:    skipPreflight,
	}
}

// buildSigned assembles and signs a transaction with compute-budget
// instructions prepended. The blockhash is fetched fresh per transaction.
func (c *Choreographer) buildSigned(ctx context.Context, instructions []solana.Instruction) (*solana.Transaction, error) {
	budget := make([]solana.Instruction, 0, 2)
	if c.computeUnitLimit > 0 {
		budget = append(budget, computebudget.NewSetComputeUnitLimitInstruction(c.computeUnitLimit).Build())
	}
	if c.computeUnitPrice > 0 {
		budget = append(budget, computebudget.NewSetComputeUnitPriceInstruction(c.computeUnitPrice).Build())
	}
	all := append(budget, instructions...)

	blockhash, err := c.client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(all, blockhash, solana.TransactionPayer(c.signer.PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	if err := c.signer.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}

// ExecutePrerequisite runs one setup step in its own transaction and waits
// for confirmation. An already-processed response counts as success: the
// prerequisite exists either way.
func (c *Choreographer) ExecutePrerequisite(ctx context.Context, label string, ixs ...solana.Instruction) error {
	tx, err := c.buildSigned(ctx, ixs)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}

	sig, err := c.client.SendTransaction(ctx, tx)
	if err != nil {
		if te := c.validator.ClassifySendError(err); te.Code == ErrCodeAlreadyProcessed {
			c.logger.Info("Prerequisite already processed",
				zap.String("step", label))
			return nil
		}
		return fmt.Errorf("%s: %w", label, err)
	}

	c.logger.Info("Prerequisite submitted",
		zap.String("step", label),
		zap.String("signature", sig.String()))

	if err := c.client.WaitForTransactionConfirmation(ctx, sig, rpc.CommitmentConfirmed); err != nil {
		return fmt.Errorf("%s confirmation: %w", label, err)
	}
	return nil
}

// ExecuteTrade runs the primary instruction set through the full pipeline:
// simulate, submit, confirm. The returned *Error is nil only on a confirmed
// landing; informational codes mean the outcome is uncertain or the
// transaction landed through another path.
func (c *Choreographer) ExecuteTrade(ctx context.Context, instructions []solana.Instruction) (solana.Signature, *Error) {
	tx, err := c.buildSigned(ctx, instructions)
	if err != nil {
		return solana.Signature{}, newError(ErrCodeSerialization, "failed to assemble transaction", err)
	}

	simRes, err := c.client.SimulateTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, newError(ErrCodeSimulationFailed, "simulation call failed", err)
	}
	if te := c.validator.Validate(simRes); te != nil {
		return solana.Signature{}, te
	}

	c.logger.Debug("Simulation passed",
		zap.Uint64("units_consumed", simRes.UnitsConsumed))

	sig, err := c.client.SendTransactionWithOpts(ctx, tx, chain.TransactionOptions{
		SkipPreflight:       c.skipPreflight,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, c.validator.ClassifySendError(err)
	}

	c.logger.Info("Trade submitted", zap.String("signature", sig.String()))

	if err := c.client.WaitForTransactionConfirmation(ctx, sig, rpc.CommitmentConfirmed); err != nil {
		te := c.validator.ClassifySendError(err)
		te.Err = err
		// Keep the signature: a timed-out confirmation may still land.
		return sig, te
	}
	return sig, nil
}
