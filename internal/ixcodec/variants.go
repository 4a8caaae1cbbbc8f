// =============================
// File: internal/ixcodec/variants.go
// =============================
package ixcodec

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Instruction variant discriminators. The variant tag is always the first
// byte of the payload.
const (
	VariantPlaceOrder         byte = 0x01
	VariantPlaceOrderExtended byte = 0x02
	VariantCreateTokenAccount byte = 0x03
	VariantInitializePool     byte = 0x04
	VariantGraduatePool       byte = 0x05
)

// Trade side values for the PlaceOrder side field.
const (
	SideBuy  uint64 = 0
	SideSell uint64 = 1
)

// Order type values for the PlaceOrder orderType field.
const (
	OrderTypeLimit           uint64 = 0
	OrderTypeImmediateOrKill uint64 = 1
)

var (
	// PlaceOrderLayout is the core trade payload: 37 bytes.
	PlaceOrderLayout = Layout{
		Variant: VariantPlaceOrder,
		Words: []Word{
			{Name: "side", Width: 1},
			{Name: "limitPrice", Width: 8},
			{Name: "maxBaseQty", Width: 8},
			{Name: "maxQuoteQty", Width: 8},
			{Name: "orderType", Width: 1},
			{Name: "clientOrderId", Width: 8},
			{Name: "limit", Width: 2},
		},
	}

	// PlaceOrderExtendedLayout appends launch-state fields and the creator
	// key used for fee routing: 87 bytes.
	PlaceOrderExtendedLayout = Layout{
		Variant: VariantPlaceOrderExtended,
		Words: append(append([]Word{}, PlaceOrderLayout.Words...),
			Word{Name: "isInstantLaunch", Width: 1},
			Word{Name: "isGraduated", Width: 1},
			Word{Name: "tokensSold", Width: 8},
			Word{Name: "totalSupply", Width: 8},
		),
		TailLen: 32,
	}

	// CreateTokenAccountLayout has no arguments: 1 byte.
	CreateTokenAccountLayout = Layout{Variant: VariantCreateTokenAccount}

	// InitializePoolLayout: 10 bytes.
	InitializePoolLayout = Layout{
		Variant: VariantInitializePool,
		Words: []Word{
			{Name: "nonce", Width: 1},
			{Name: "initialFunding", Width: 8},
		},
	}

	// GraduatePoolLayout: 17 bytes.
	GraduatePoolLayout = Layout{
		Variant: VariantGraduatePool,
		Words: []Word{
			{Name: "tokensSold", Width: 8},
			{Name: "raisedLamports", Width: 8},
		},
	}
)

// PlaceOrderArgs is the typed argument record for the core trade variants.
type PlaceOrderArgs struct {
	Side          uint64
	LimitPrice    uint64
	MaxBaseQty    uint64
	MaxQuoteQty   uint64
	OrderType     uint64
	ClientOrderID uint64
	Limit         uint64

	// Extended-variant fields. Used only when Extended is true.
	Extended      bool
	InstantLaunch bool
	Graduated     bool
	TokensSold    uint64
	TotalSupply   uint64
	CreatorKey    solana.PublicKey
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Encode serializes the order into the exact byte layout the program's
// deserializer expects for the selected variant.
func (a *PlaceOrderArgs) Encode() ([]byte, error) {
	core := []uint64{a.Side, a.LimitPrice, a.MaxBaseQty, a.MaxQuoteQty, a.OrderType, a.ClientOrderID, a.Limit}
	if !a.Extended {
		return PlaceOrderLayout.Encode(core, nil)
	}
	words := append(core, boolWord(a.InstantLaunch), boolWord(a.Graduated), a.TokensSold, a.TotalSupply)
	return PlaceOrderExtendedLayout.Encode(words, a.CreatorKey.Bytes())
}

// DecodePlaceOrder parses either PlaceOrder variant back into its typed
// argument record, dispatching on the variant byte.
func DecodePlaceOrder(buf []byte) (*PlaceOrderArgs, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("empty instruction payload")
	}

	args := &PlaceOrderArgs{}
	var words []uint64
	var tail []byte
	var err error

	switch buf[0] {
	case VariantPlaceOrder:
		words, _, err = PlaceOrderLayout.Decode(buf)
	case VariantPlaceOrderExtended:
		args.Extended = true
		words, tail, err = PlaceOrderExtendedLayout.Decode(buf)
	default:
		return nil, fmt.Errorf("unknown place-order variant: 0x%02x", buf[0])
	}
	if err != nil {
		return nil, err
	}

	args.Side = words[0]
	args.LimitPrice = words[1]
	args.MaxBaseQty = words[2]
	args.MaxQuoteQty = words[3]
	args.OrderType = words[4]
	args.ClientOrderID = words[5]
	args.Limit = words[6]

	if args.Extended {
		args.InstantLaunch = words[7] != 0
		args.Graduated = words[8] != 0
		args.TokensSold = words[9]
		args.TotalSupply = words[10]
		args.CreatorKey = solana.PublicKeyFromBytes(tail)
	}
	return args, nil
}

// InitializePoolArgs is the typed argument record for pool initialization.
type InitializePoolArgs struct {
	Nonce          uint64
	InitialFunding uint64
}

func (a *InitializePoolArgs) Encode() ([]byte, error) {
	return InitializePoolLayout.Encode([]uint64{a.Nonce, a.InitialFunding}, nil)
}

// GraduatePoolArgs is the typed argument record for the graduation variant.
type GraduatePoolArgs struct {
	TokensSold     uint64
	RaisedLamports uint64
}

func (a *GraduatePoolArgs) Encode() ([]byte, error) {
	return GraduatePoolLayout.Encode([]uint64{a.TokensSold, a.RaisedLamports}, nil)
}
