// =============================
// File: internal/ixcodec/instructions.go
// =============================
package ixcodec

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/akorchak/launchpad-client/internal/launchpad"
)

// TradeAccounts is the resolved, ordered account set for a place-order
// instruction. Ordering within BuildPlaceOrderInstruction is part of the wire
// contract: the program addresses accounts by index position, so the list
// below must match its declared schema exactly. The layout is empirically
// determined and pinned by fixtures in instructions_test.go; do not reorder
// from first principles.
type TradeAccounts struct {
	LaunchState   solana.PublicKey
	Mint          solana.PublicKey
	PoolAuthority solana.PublicKey
	SolVault      solana.PublicKey
	TokenVault    solana.PublicKey
	UserToken     solana.PublicKey
	User          solana.PublicKey
	FeeRecipient  solana.PublicKey
	EventLog      solana.PublicKey

	// LaunchData is an optional trailing account, present only once the
	// off-curve launch-data account has been created. The program tolerates
	// its absence; when present it must come last.
	LaunchData *solana.PublicKey
}

// BuildPlaceOrderInstruction assembles the core trade instruction.
func BuildPlaceOrderInstruction(accounts TradeAccounts, args *PlaceOrderArgs) (solana.Instruction, error) {
	data, err := args.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode place order args: %w", err)
	}

	metas := []*solana.AccountMeta{
		{PublicKey: accounts.LaunchState, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.PoolAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.SolVault, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.TokenVault, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.UserToken, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.User, IsSigner: true, IsWritable: true},
		{PublicKey: accounts.FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.EventLog, IsSigner: false, IsWritable: true},
		{PublicKey: launchpad.LaunchProgramID, IsSigner: false, IsWritable: false},
	}

	if accounts.LaunchData != nil {
		metas = append(metas, &solana.AccountMeta{PublicKey: *accounts.LaunchData, IsSigner: false, IsWritable: true})
	}

	return solana.NewInstruction(launchpad.LaunchProgramID, metas, data), nil
}

// BuildCreateTokenAccountInstruction assembles the prerequisite instruction
// creating the user's token account under the launch program.
func BuildCreateTokenAccountInstruction(payer, tokenAccount, owner, mint solana.PublicKey) (solana.Instruction, error) {
	data, err := CreateTokenAccountLayout.Encode(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encode create token account: %w", err)
	}

	metas := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: tokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: launchpad.SysvarRentPubkey, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(launchpad.LaunchProgramID, metas, data), nil
}

// BuildInitializePoolInstruction assembles the prerequisite instruction
// initializing the platform pool for a launch.
func BuildInitializePoolInstruction(
	pool, poolAuthority, mint, solVault, tokenVault, payer solana.PublicKey,
	args *InitializePoolArgs,
) (solana.Instruction, error) {
	data, err := args.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode initialize pool args: %w", err)
	}

	metas := []*solana.AccountMeta{
		{PublicKey: pool, IsSigner: false, IsWritable: true},
		{PublicKey: poolAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solVault, IsSigner: false, IsWritable: true},
		{PublicKey: tokenVault, IsSigner: false, IsWritable: true},
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: launchpad.SysvarRentPubkey, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(launchpad.LaunchProgramID, metas, data), nil
}

// BuildGraduatePoolInstruction assembles the pool-creation-for-external-AMM
// instruction appended atomically to the trade that crosses the graduation
// threshold.
func BuildGraduatePoolInstruction(
	launchState, mint, poolAuthority, solVault, tokenVault, payer solana.PublicKey,
	args *GraduatePoolArgs,
) (solana.Instruction, error) {
	data, err := args.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode graduate pool args: %w", err)
	}

	metas := []*solana.AccountMeta{
		{PublicKey: launchState, IsSigner: false, IsWritable: true},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: poolAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: solVault, IsSigner: false, IsWritable: true},
		{PublicKey: tokenVault, IsSigner: false, IsWritable: true},
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: launchpad.ExternalAMMProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: launchpad.AssociatedTokenProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(launchpad.LaunchProgramID, metas, data), nil
}
