// services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

var (
	// ErrLockContention means another claim for the wallet is in flight.
	ErrLockContention = errors.New("claim already in progress")
	// ErrNoEligibleHoldings means nothing currently qualifies for a reward.
	ErrNoEligibleHoldings = errors.New("nothing to claim")
	// ErrCapExceeded means the global daily payout budget cannot cover the claim.
	ErrCapExceeded = errors.New("daily payout limit reached")
	// ErrClaimsPaused is returned while the kill switch is engaged.
	ErrClaimsPaused = errors.New("claims are temporarily paused")
	// ErrRateLimited means the wallet attempted a claim too recently.
	ErrRateLimited = errors.New("claim limit reached")
	// ErrTransferFailure matches every *TransferError.
	ErrTransferFailure = errors.New("transfer failed")
	// ErrStorage wraps backing-store failures.
	ErrStorage = errors.New("storage error")
	// ErrReconciliationRequired means the payout was sent but the ledger could not be finalized.
	ErrReconciliationRequired = errors.New("payout sent but ledger not finalized")
	// ErrClaimAlreadyFinal is returned when finalizing a claim that left PENDING.
	ErrClaimAlreadyFinal = errors.New("claim already finalized")
)

// TransferError is a rejected, reverted or timed-out payout.
type TransferError struct {
	Reason string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed: %s", e.Reason)
}

func (e *TransferError) Is(target error) bool { return target == ErrTransferFailure }

func (e *TransferError) Unwrap() error { return e.Err }

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Outcome is the small set of results a caller ever sees.
type Outcome string

const (
	OutcomeClaimed        Outcome = "claimed"
	OutcomeNothingToClaim Outcome = "nothing_to_claim"
	OutcomeTryAgainLater  Outcome = "try_again_later"
	OutcomeTransferFailed Outcome = "transfer_failed"
	OutcomeClaimsPaused   Outcome = "claims_paused"
	OutcomeInternalError  Outcome = "internal_error"
)

// OutcomeFor maps an engine error to its user-facing outcome, HTTP status and message.
func OutcomeFor(err error) (Outcome, int, string) {
	switch {
	case err == nil:
		return OutcomeClaimed, fiber.StatusOK, "reward claimed"
	case errors.Is(err, ErrNoEligibleHoldings):
		return OutcomeNothingToClaim, fiber.StatusOK, "nothing to claim"
	case errors.Is(err, ErrLockContention):
		return OutcomeTryAgainLater, fiber.StatusConflict, "a claim is already in progress, try again later"
	case errors.Is(err, ErrRateLimited):
		return OutcomeTryAgainLater, fiber.StatusTooManyRequests, "claim limit reached, try again later"
	case errors.Is(err, ErrCapExceeded):
		return OutcomeTryAgainLater, fiber.StatusServiceUnavailable, "daily payout limit reached, try again tomorrow"
	case errors.Is(err, ErrClaimsPaused):
		return OutcomeClaimsPaused, fiber.StatusServiceUnavailable, "claims are temporarily paused"
	case errors.Is(err, ErrReconciliationRequired):
		return OutcomeInternalError, fiber.StatusInternalServerError, "reward sent but not yet recorded, do not claim again"
	case errors.Is(err, ErrTransferFailure):
		return OutcomeTransferFailed, fiber.StatusBadGateway, "transfer failed"
	default:
		return OutcomeInternalError, fiber.StatusInternalServerError, "internal error"
	}
}
