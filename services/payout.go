// services/payout.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Transferer is the external money-movement channel.
type Transferer interface {
	Transfer(ctx context.Context, to string, amount decimal.Decimal) (string, error)
}

// TransferFunc adapts a function to the Transferer interface.
type TransferFunc func(ctx context.Context, to string, amount decimal.Decimal) (string, error)

// Transfer delegates to the function.
func (f TransferFunc) Transfer(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	return f(ctx, to, amount)
}

// PayoutExecutor runs one transfer per call. It never retries: a failure after
// dispatch is ambiguous, and a retry could pay twice.
type PayoutExecutor struct {
	transferer Transferer
	timeout    time.Duration
}

func NewPayoutExecutor(transferer Transferer, timeout time.Duration) *PayoutExecutor {
	return &PayoutExecutor{transferer: transferer, timeout: timeout}
}

// Send pays amount to wallet and returns the transfer reference.
// Cancelling ctx does not interrupt a payout already in flight; only the
// executor's own timeout bounds it.
func (p *PayoutExecutor) Send(ctx context.Context, wallet string, amount decimal.Decimal) (string, error) {
	if p.transferer == nil {
		return "", &TransferError{Reason: "payout channel not configured"}
	}
	ctx = context.WithoutCancel(ctx)
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	txRef, err := p.transferer.Transfer(ctx, wallet, amount)
	if err != nil {
		var te *TransferError
		if errors.As(err, &te) {
			return "", te
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &TransferError{Reason: "timeout", Err: err}
		}
		return "", &TransferError{Reason: err.Error(), Err: err}
	}
	if txRef == "" {
		return "", &TransferError{Reason: "no transaction reference returned"}
	}
	return txRef, nil
}
