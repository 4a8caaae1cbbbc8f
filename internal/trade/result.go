// =============================
// File: internal/trade/result.go
// =============================
package trade

import (
	"github.com/gagliardetto/solana-go"

	"github.com/akorchak/launchpad-client/internal/pricing"
)

// Result is the uniform outcome record for every trade attempt. Failures are
// values inside the result, never panics: callers branch on Success and Err.
type Result struct {
	Success   bool
	Signature solana.Signature

	// Quote is the pre-trade quote the instruction was assembled from.
	Quote *pricing.SwapQuote

	// Graduated reports that this trade carried the graduation instruction.
	Graduated bool

	// Err is the classified failure when Success is false. For informational
	// codes (already processed, confirmation timeout) the trade may in fact
	// have executed; Err.Informational() distinguishes them.
	Err *Error
}

func successResult(sig solana.Signature, quote *pricing.SwapQuote, graduated bool) *Result {
	return &Result{Success: true, Signature: sig, Quote: quote, Graduated: graduated}
}

func failureResult(quote *pricing.SwapQuote, err *Error) *Result {
	return &Result{Success: false, Quote: quote, Err: err}
}
