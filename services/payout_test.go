package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayoutSendSuccess(t *testing.T) {
	p := NewPayoutExecutor(TransferFunc(func(_ context.Context, to string, amount decimal.Decimal) (string, error) {
		assert.Equal(t, walletA, to)
		assert.True(t, amount.Equal(decimal.RequireFromString("1.5")))
		return "0xtx", nil
	}), time.Second)

	ref, err := p.Send(context.Background(), walletA, decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.Equal(t, "0xtx", ref)
}

func TestPayoutSendFailures(t *testing.T) {
	tests := []struct {
		name       string
		transfer   TransferFunc
		wantReason string
	}{
		{
			name: "rejected",
			transfer: func(context.Context, string, decimal.Decimal) (string, error) {
				return "", errors.New("insufficient funds")
			},
			wantReason: "insufficient funds",
		},
		{
			name: "typed error passes through",
			transfer: func(context.Context, string, decimal.Decimal) (string, error) {
				return "", &TransferError{Reason: "reverted"}
			},
			wantReason: "reverted",
		},
		{
			name: "empty reference",
			transfer: func(context.Context, string, decimal.Decimal) (string, error) {
				return "", nil
			},
			wantReason: "no transaction reference returned",
		},
		{
			name: "timeout",
			transfer: func(ctx context.Context, _ string, _ decimal.Decimal) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
			wantReason: "timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPayoutExecutor(tt.transfer, 20*time.Millisecond)
			_, err := p.Send(context.Background(), walletA, decimal.NewFromInt(1))
			require.ErrorIs(t, err, ErrTransferFailure)
			var te *TransferError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.wantReason, te.Reason)
		})
	}
}

func TestPayoutIgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPayoutExecutor(TransferFunc(func(ctx context.Context, _ string, _ decimal.Decimal) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "0xtx", nil
	}), time.Second)

	ref, err := p.Send(ctx, walletA, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "0xtx", ref)
}

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		err     error
		outcome Outcome
		status  int
	}{
		{nil, OutcomeClaimed, 200},
		{ErrNoEligibleHoldings, OutcomeNothingToClaim, 200},
		{ErrLockContention, OutcomeTryAgainLater, 409},
		{ErrRateLimited, OutcomeTryAgainLater, 429},
		{ErrCapExceeded, OutcomeTryAgainLater, 503},
		{ErrClaimsPaused, OutcomeClaimsPaused, 503},
		{&TransferError{Reason: "x"}, OutcomeTransferFailed, 502},
		{storageError("op", errors.New("db down")), OutcomeInternalError, 500},
		{ErrReconciliationRequired, OutcomeInternalError, 500},
	}
	for _, tt := range tests {
		outcome, status, msg := OutcomeFor(tt.err)
		assert.Equal(t, tt.outcome, outcome, "err=%v", tt.err)
		assert.Equal(t, tt.status, status, "err=%v", tt.err)
		assert.NotContains(t, msg, "db down")
	}

	_, _, msg := OutcomeFor(fmt.Errorf("%w: claim c1 tx 0xabc", ErrReconciliationRequired))
	assert.Equal(t, "reward sent but not yet recorded, do not claim again", msg)
}
