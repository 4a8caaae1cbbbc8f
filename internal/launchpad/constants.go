// =============================
// File: internal/launchpad/constants.go
// =============================
package launchpad

import "github.com/gagliardetto/solana-go"

// On-chain program identifiers for the launch platform and its collaborators.
var (
	// LaunchProgramID is the token-launch program whose instruction and
	// account layout this client reproduces byte-for-byte.
	LaunchProgramID = solana.MustPublicKeyFromBase58("LNCHPdqFzmkXttmEenR1piqrQLwM4Bhb6KRZy1Tjsxf")

	// ExternalAMMProgramID is the external constant-product AMM liquidity
	// migrates to on graduation.
	ExternalAMMProgramID = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")

	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SysvarRentPubkey         = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
)

// PDA seed tags. Any change here is a breaking change against the deployed
// program: every derived address downstream moves with it.
const (
	SeedLaunchState   = "launch"
	SeedPoolAuthority = "pool-authority"
	SeedPool          = "pool"
	SeedEventLog      = "event-log"
)

// Protocol economics, pinned to the deployed program's values.
const (
	// ProtocolFeeBps is the fee taken from the SOL leg of every trade,
	// applied multiplicatively as (10000 - fee) / 10000.
	ProtocolFeeBps = 25

	// SlippageToleranceBps bounds minimumReceived: output * (1 - 0.005).
	SlippageToleranceBps = 50

	// GraduationThresholdLamports is the curve-held SOL balance at which a
	// launch graduates to the external AMM (30 SOL).
	GraduationThresholdLamports = uint64(30_000_000_000)

	// SellableSupplyBps is the share of total supply sold along the bonding
	// curve; the remainder seeds the AMM pool at graduation.
	SellableSupplyBps = 8000

	SolDecimals   = 9
	TokenDecimals = 6

	LamportsPerSol = uint64(1_000_000_000)
)

// Account data sizes and discriminators (first byte of account data).
const (
	LaunchStateDiscriminator byte = 0xA1
	PoolStateDiscriminator   byte = 0xA2

	LaunchStateDataLen = 1 + 32 + 8 + 1 + 1 + 1 + 8 + 32 // 84
	PoolStateDataLen   = 1 + 32 + 32 + 8 + 8 + 2         // 83

	// SPL token account field offsets, used by the resolver's raw scans.
	TokenAccountMintOffset  = 0
	TokenAccountOwnerOffset = 32
	TokenAccountAmountOff   = 64
	TokenAccountDataLen     = 165
)
