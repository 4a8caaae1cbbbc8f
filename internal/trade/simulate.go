// =============================
// File: internal/trade/simulate.go
// =============================
package trade

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/akorchak/launchpad-client/internal/chain"
)

// Validator classifies simulation results and send/confirm errors into the
// trade error taxonomy. Simulation is a mandatory pre-submission gate: a
// failed simulation aborts the trade before any fee is paid.
type Validator struct {
	logger *zap.Logger
}

func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{logger: logger.Named("validator")}
}

var customErrRe = regexp.MustCompile(`custom program error: (0x[0-9a-fA-F]+|\d+)`)

// Custom program error numbers the launch program is known to emit. Anything
// outside this table stays a generic simulation failure carrying the code.
const (
	programErrSlippageExceeded = 6000
	programErrEmptyReservoirs  = 6001
	programErrAlreadyGraduated = 6002
)

// Validate inspects a simulation result. A nil return means the transaction
// is safe to submit. Blockhash staleness and duplicate-account borrow
// conflicts during simulation are benign races with concurrent transactions
// and are logged, not failed.
func (v *Validator) Validate(res *chain.SimulationResult) *Error {
	if res == nil || res.Err == nil {
		return nil
	}

	errStr := fmt.Sprintf("%v", res.Err)
	joined := strings.ToLower(errStr + " " + strings.Join(res.Logs, " "))

	if strings.Contains(joined, "blockhashnotfound") {
		v.logger.Warn("Simulation raced a blockhash rotation, proceeding",
			zap.String("error", errStr))
		return nil
	}

	if strings.Contains(joined, "account in use") ||
		strings.Contains(joined, "accountinuse") ||
		strings.Contains(joined, "already borrowed") ||
		strings.Contains(joined, "alreadyborrowed") {
		v.logger.Warn("Simulation raced a concurrent account borrow, proceeding",
			zap.String("error", errStr))
		return nil
	}

	if strings.Contains(joined, "already been processed") {
		return newError(ErrCodeAlreadyProcessed, "transaction already processed", nil)
	}

	if code, ok := extractCustomCode(errStr, res.Logs); ok {
		return v.classifyProgramCode(code, res.Logs)
	}

	switch {
	case strings.Contains(joined, "insufficient lamports"),
		strings.Contains(joined, "insufficient funds"):
		return newError(ErrCodeInsufficientBalance, "insufficient balance for trade", nil)
	case strings.Contains(joined, "accountnotfound"),
		strings.Contains(joined, "could not find account"),
		strings.Contains(joined, "invalid account owner"):
		return newError(ErrCodeAccountNotFound, "transaction references a missing account", nil)
	case strings.Contains(joined, "failed to serialize or deserialize account data"),
		strings.Contains(joined, "invalidinstructiondata"),
		strings.Contains(joined, "invalid instruction data"):
		return newError(ErrCodeSerialization, "program rejected instruction payload", nil)
	}

	v.logger.Error("Simulation failed",
		zap.String("error", errStr),
		zap.Strings("logs", res.Logs))
	return newError(ErrCodeSimulationFailed, fmt.Sprintf("simulation failed: %s", errStr), nil)
}

func (v *Validator) classifyProgramCode(code int64, logs []string) *Error {
	switch code {
	case 1:
		return newError(ErrCodeInsufficientBalance, "program reported insufficient funds", nil)
	case programErrEmptyReservoirs:
		return newError(ErrCodeNoLiquidity, "both fallback token reservoirs are empty", nil)
	case programErrSlippageExceeded:
		e := newError(ErrCodeSimulationFailed, "minimum received not met at execution", nil)
		e.ProgramCode = code
		return e
	case programErrAlreadyGraduated:
		e := newError(ErrCodeSimulationFailed, "launch already graduated; quote is stale", nil)
		e.ProgramCode = code
		return e
	default:
		v.logger.Error("Simulation failed with custom program error",
			zap.Int64("code", code),
			zap.Strings("logs", logs))
		e := newError(ErrCodeSimulationFailed, fmt.Sprintf("custom program error %d", code), nil)
		e.ProgramCode = code
		return e
	}
}

// ClassifySendError maps errors from submission and confirmation into the
// taxonomy. The already-processed and timeout classes are informational:
// the transaction may have landed.
func (v *Validator) ClassifySendError(err error) *Error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "already been processed"),
		strings.Contains(msg, "alreadyprocessed"):
		return newError(ErrCodeAlreadyProcessed, "transaction already processed", err)
	case strings.Contains(msg, "confirmation timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return newError(ErrCodeConfirmationTimeout, "confirmation window elapsed; outcome unknown", err)
	case strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "insufficient lamports"):
		return newError(ErrCodeInsufficientBalance, "insufficient balance for trade", err)
	case chain.IsAccountNotFound(err):
		return newError(ErrCodeAccountNotFound, "transaction references a missing account", err)
	default:
		return newError(ErrCodeUnknown, "transaction submission failed", err)
	}
}

func extractCustomCode(errStr string, logs []string) (int64, bool) {
	candidates := append([]string{errStr}, logs...)
	for _, s := range candidates {
		m := customErrRe.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		raw := m[1]
		var code int64
		var err error
		if strings.HasPrefix(raw, "0x") {
			code, err = strconv.ParseInt(raw[2:], 16, 64)
		} else {
			code, err = strconv.ParseInt(raw, 10, 64)
		}
		if err == nil {
			return code, true
		}
	}
	return 0, false
}
