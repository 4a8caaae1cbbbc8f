// =============================
// File: internal/launchpad/state.go
// =============================
package launchpad

import (
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// LaunchMode distinguishes the two mutually exclusive pricing regimes.
type LaunchMode uint8

const (
	ModeBondingCurve LaunchMode = iota
	ModeAMMGraduated
)

func (m LaunchMode) String() string {
	switch m {
	case ModeBondingCurve:
		return "bonding-curve"
	case ModeAMMGraduated:
		return "amm-graduated"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// LaunchRecord mirrors the program's launch-state account. It is created
// on-chain at launch time and mutated only by confirmed trades; the client
// never writes it, only caches snapshots with a freshness window.
type LaunchRecord struct {
	Mint          solana.PublicKey
	TotalSupply   uint64
	Decimals      uint8
	Mode          LaunchMode
	InstantLaunch bool
	TokensSold    uint64
	Creator       solana.PublicKey

	// FetchedAt marks snapshot age; stale records are advisory only.
	FetchedAt time.Time
}

// Graduated reports whether liquidity has migrated to the external AMM.
func (r *LaunchRecord) Graduated() bool {
	return r.Mode == ModeAMMGraduated
}

// PoolState is a point-in-time snapshot of the platform pool's reserves.
// It is valid only at quote time: reserves may have moved by execution,
// which is exactly what minimumReceived protects against.
type PoolState struct {
	Mint          solana.PublicKey
	Authority     solana.PublicKey
	SolReserves   uint64
	TokenReserves uint64
	FeeBps        uint16

	FetchedAt time.Time
}

// HasLiquidity reports whether both legs of the pool are funded.
func (p *PoolState) HasLiquidity() bool {
	return p != nil && p.SolReserves > 0 && p.TokenReserves > 0
}

// launchStateLayout mirrors the on-chain byte layout (little-endian, packed):
// discriminator:u8 mint:32 totalSupply:u64 decimals:u8 mode:u8
// instantLaunch:u8 tokensSold:u64 creator:32.
type launchStateLayout struct {
	Discriminator uint8
	Mint          solana.PublicKey
	TotalSupply   uint64
	Decimals      uint8
	Mode          uint8
	InstantLaunch uint8
	TokensSold    uint64
	Creator       solana.PublicKey
}

// poolStateLayout mirrors the platform pool account (little-endian, packed):
// discriminator:u8 mint:32 authority:32 solReserves:u64 tokenReserves:u64
// feeBps:u16.
type poolStateLayout struct {
	Discriminator uint8
	Mint          solana.PublicKey
	Authority     solana.PublicKey
	SolReserves   uint64
	TokenReserves uint64
	FeeBps        uint16
}

// ParseLaunchState decodes a launch-state account.
func ParseLaunchState(data []byte) (*LaunchRecord, error) {
	if len(data) < LaunchStateDataLen {
		return nil, fmt.Errorf("launch state data too short: %d bytes", len(data))
	}
	if data[0] != LaunchStateDiscriminator {
		return nil, fmt.Errorf("invalid discriminator for launch state: 0x%02x", data[0])
	}

	var raw launchStateLayout
	if err := bin.NewBinDecoder(data).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode launch state: %w", err)
	}
	if raw.Mode > uint8(ModeAMMGraduated) {
		return nil, fmt.Errorf("invalid launch mode: %d", raw.Mode)
	}

	return &LaunchRecord{
		Mint:          raw.Mint,
		TotalSupply:   raw.TotalSupply,
		Decimals:      raw.Decimals,
		Mode:          LaunchMode(raw.Mode),
		InstantLaunch: raw.InstantLaunch != 0,
		TokensSold:    raw.TokensSold,
		Creator:       raw.Creator,
		FetchedAt:     time.Now(),
	}, nil
}

// ParsePoolState decodes a platform pool account.
func ParsePoolState(data []byte) (*PoolState, error) {
	if len(data) < PoolStateDataLen {
		return nil, fmt.Errorf("pool state data too short: %d bytes", len(data))
	}
	if data[0] != PoolStateDiscriminator {
		return nil, fmt.Errorf("invalid discriminator for pool state: 0x%02x", data[0])
	}

	var raw poolStateLayout
	if err := bin.NewBinDecoder(data).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode pool state: %w", err)
	}

	return &PoolState{
		Mint:          raw.Mint,
		Authority:     raw.Authority,
		SolReserves:   raw.SolReserves,
		TokenReserves: raw.TokenReserves,
		FeeBps:        raw.FeeBps,
		FetchedAt:     time.Now(),
	}, nil
}
