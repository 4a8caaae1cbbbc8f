// =============================
// File: internal/trade/simulate_test.go
// =============================
package trade

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akorchak/launchpad-client/internal/chain"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(zap.NewNop())

	cases := []struct {
		name     string
		result   *chain.SimulationResult
		wantNil  bool
		wantCode ErrorCode
	}{
		{
			name:    "nil result passes",
			result:  nil,
			wantNil: true,
		},
		{
			name:    "clean simulation passes",
			result:  &chain.SimulationResult{Logs: []string{"Program log: ok"}},
			wantNil: true,
		},
		{
			name:    "blockhash race is benign",
			result:  &chain.SimulationResult{Err: "BlockhashNotFound"},
			wantNil: true,
		},
		{
			name:    "borrow conflict is benign",
			result:  &chain.SimulationResult{Err: "Account in use"},
			wantNil: true,
		},
		{
			name:    "borrow conflict variant is benign",
			result:  &chain.SimulationResult{Err: "AccountInUse"},
			wantNil: true,
		},
		{
			name: "borrow conflict in logs is benign",
			result: &chain.SimulationResult{
				Err:  "InstructionError",
				Logs: []string{"Program log: account already borrowed"},
			},
			wantNil: true,
		},
		{
			name:     "insufficient lamports",
			result:   &chain.SimulationResult{Err: "insufficient lamports 100, need 200"},
			wantCode: ErrCodeInsufficientBalance,
		},
		{
			name: "missing account",
			result: &chain.SimulationResult{
				Err:  "transaction error",
				Logs: []string{"Program log: could not find account"},
			},
			wantCode: ErrCodeAccountNotFound,
		},
		{
			name: "serialization failure",
			result: &chain.SimulationResult{
				Err:  "InstructionError",
				Logs: []string{"Program failed: failed to serialize or deserialize account data"},
			},
			wantCode: ErrCodeSerialization,
		},
		{
			name:     "already processed",
			result:   &chain.SimulationResult{Err: "This transaction has already been processed"},
			wantCode: ErrCodeAlreadyProcessed,
		},
		{
			name:     "empty reservoirs custom code",
			result:   &chain.SimulationResult{Err: "custom program error: 0x1771"},
			wantCode: ErrCodeNoLiquidity,
		},
		{
			name:     "program insufficient funds code",
			result:   &chain.SimulationResult{Err: "custom program error: 1"},
			wantCode: ErrCodeInsufficientBalance,
		},
		{
			name:     "unknown program code",
			result:   &chain.SimulationResult{Err: "custom program error: 0x2328"},
			wantCode: ErrCodeSimulationFailed,
		},
		{
			name:     "unclassified failure",
			result:   &chain.SimulationResult{Err: "something exotic"},
			wantCode: ErrCodeSimulationFailed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			te := v.Validate(tc.result)
			if tc.wantNil {
				assert.Nil(t, te)
				return
			}
			require.NotNil(t, te)
			assert.Equal(t, tc.wantCode, te.Code)
		})
	}
}

func TestValidator_CustomCodeFromLogs(t *testing.T) {
	v := NewValidator(zap.NewNop())

	te := v.Validate(&chain.SimulationResult{
		Err:  "InstructionError(0, Custom)",
		Logs: []string{"Program LNCHP failed: custom program error: 0x1770"},
	})
	require.NotNil(t, te)
	assert.Equal(t, ErrCodeSimulationFailed, te.Code)
	assert.Equal(t, int64(programErrSlippageExceeded), te.ProgramCode)
}

func TestValidator_ClassifySendError(t *testing.T) {
	v := NewValidator(zap.NewNop())

	cases := []struct {
		name          string
		err           error
		wantCode      ErrorCode
		informational bool
	}{
		{
			name:          "already processed",
			err:           errors.New("Transaction simulation failed: This transaction has already been processed"),
			wantCode:      ErrCodeAlreadyProcessed,
			informational: true,
		},
		{
			name:          "confirmation timeout",
			err:           errors.New("confirmation timeout"),
			wantCode:      ErrCodeConfirmationTimeout,
			informational: true,
		},
		{
			name:          "context deadline",
			err:           context.DeadlineExceeded,
			wantCode:      ErrCodeConfirmationTimeout,
			informational: true,
		},
		{
			name:     "insufficient funds",
			err:      errors.New("Transaction results in an account with insufficient funds for rent"),
			wantCode: ErrCodeInsufficientBalance,
		},
		{
			name:     "account not found",
			err:      errors.New("rpc: account not found"),
			wantCode: ErrCodeAccountNotFound,
		},
		{
			name:     "anything else",
			err:      errors.New("connection reset"),
			wantCode: ErrCodeUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			te := v.ClassifySendError(tc.err)
			require.NotNil(t, te)
			assert.Equal(t, tc.wantCode, te.Code)
			assert.Equal(t, tc.informational, te.Informational())
		})
	}

	assert.Nil(t, v.ClassifySendError(nil))
}

func TestErrorCodeOf(t *testing.T) {
	inner := newError(ErrCodeNoLiquidity, "dry", nil)
	wrapped := errors.Join(errors.New("outer"), inner)
	assert.Equal(t, ErrCodeNoLiquidity, CodeOf(wrapped))
	assert.Equal(t, ErrCodeUnknown, CodeOf(errors.New("plain")))
}
