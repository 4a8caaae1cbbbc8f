// =============================
// File: internal/launchpad/addresses.go
// =============================
package launchpad

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Address derivation is a pinned, versioned contract with the deployed
// program. Seed order and seed content must byte-match the program's own
// derivation; a mismatch fails only at execution time, with no local
// diagnostic. Treat every function here as frozen.

// DeriveLaunchState returns the PDA holding a token's launch record.
func DeriveLaunchState(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedLaunchState), mint.Bytes()},
		LaunchProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive launch state: %w", err)
	}
	return addr, bump, nil
}

// DerivePoolAuthority returns the PDA permitted to move funds out of the
// pool's token vaults for a given mint.
func DerivePoolAuthority(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedPoolAuthority), mint.Bytes()},
		LaunchProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive pool authority: %w", err)
	}
	return addr, bump, nil
}

// DerivePool returns the PDA of the platform's constant-product pool for a
// mint pair. Mints are sorted lexicographically by raw bytes before seeding,
// so both legs of a pair derive the same address regardless of call order.
func DerivePool(mintA, mintB solana.PublicKey) (solana.PublicKey, uint8, error) {
	first, second := SortMints(mintA, mintB)
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedPool), first.Bytes(), second.Bytes()},
		LaunchProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive pool: %w", err)
	}
	return addr, bump, nil
}

// DeriveExternalPool returns the PDA of the graduated pair's pool under the
// external AMM program. Same sorted-pair seeding as the platform pool.
func DeriveExternalPool(mintA, mintB solana.PublicKey) (solana.PublicKey, uint8, error) {
	first, second := SortMints(mintA, mintB)
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedPool), first.Bytes(), second.Bytes()},
		ExternalAMMProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive external pool: %w", err)
	}
	return addr, bump, nil
}

// DeriveEventLog returns the PDA the program writes trade events to.
func DeriveEventLog(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedEventLog), mint.Bytes()},
		LaunchProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive event log: %w", err)
	}
	return addr, bump, nil
}

// DeriveVault returns the pool authority's associated token account for a
// mint, the reservoir the program trades out of.
func DeriveVault(poolAuthority, mint solana.PublicKey) (solana.PublicKey, error) {
	vault, _, err := solana.FindAssociatedTokenAddress(poolAuthority, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive vault: %w", err)
	}
	return vault, nil
}

// SortMints orders a mint pair by raw byte comparison.
func SortMints(a, b solana.PublicKey) (solana.PublicKey, solana.PublicKey) {
	if bytes.Compare(a.Bytes(), b.Bytes()) <= 0 {
		return a, b
	}
	return b, a
}
