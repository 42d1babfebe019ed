// services/reward_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"holder-rewards/config"
	"holder-rewards/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RewardServiceConfig wires the engine's tunables.
type RewardServiceConfig struct {
	Eligibility          EligibilityPolicy
	Reward               RewardPolicy
	DailyPayoutCap       decimal.Decimal
	LockTTL              time.Duration
	RateLimitWindow      time.Duration
	PayoutTimeout        time.Duration
	HistoryLimit         int
	OwnershipConcurrency int
	ClaimsDisabled       bool
	Metrics              *Metrics
	Now                  func() time.Time
}

// RewardServiceConfigFrom maps process configuration onto the engine.
func RewardServiceConfigFrom(cfg *config.Config) RewardServiceConfig {
	return RewardServiceConfig{
		Eligibility: EligibilityPolicy{MinHoldTime: cfg.MinHoldTime, DailyCooldown: cfg.DailyCooldown},
		Reward: RewardPolicy{
			MaxReward: cfg.MaxReward,
			MinReward: cfg.MinReward,
			DecayRate: cfg.DecayRate,
		},
		DailyPayoutCap:       cfg.DailyPayoutCap,
		LockTTL:              cfg.LockTTL,
		RateLimitWindow:      cfg.ClaimRateWindow,
		PayoutTimeout:        cfg.PayoutTimeout,
		HistoryLimit:         cfg.HistoryLimit,
		OwnershipConcurrency: cfg.OwnershipWorkers,
		ClaimsDisabled:       cfg.ClaimsDisabled,
		Metrics:              NewMetrics(),
	}
}

// RewardService is the claim orchestrator plus the read paths that share its components.
type RewardService struct {
	DB          *gorm.DB
	Holdings    *HoldingsStore
	Locks       *ClaimLockManager
	RateLimiter *ClaimRateLimiter
	Eligibility *EligibilityEvaluator
	Calculator  *RewardCalculator
	Cap         *DailyCapEnforcer
	Payout      *PayoutExecutor
	Ledger      *ClaimLedger
	Metrics     *Metrics

	claimsDisabled atomic.Bool
	historyLimit   int
	lockTTL        time.Duration
	now            func() time.Time
}

func NewRewardService(db *gorm.DB, verifier OwnershipVerifier, transferer Transferer, cfg RewardServiceConfig) *RewardService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if cfg.HistoryLimit <= 0 || cfg.HistoryLimit > MaxHistoryLimit {
		cfg.HistoryLimit = MaxHistoryLimit
	}
	ledger := NewClaimLedger(db, now)
	s := &RewardService{
		DB:           db,
		Holdings:     NewHoldingsStore(db),
		Locks:        NewClaimLockManager(db, cfg.LockTTL, now),
		RateLimiter:  NewClaimRateLimiter(db, cfg.RateLimitWindow, now),
		Eligibility:  NewEligibilityEvaluator(verifier, ledger, cfg.Eligibility, cfg.OwnershipConcurrency, cfg.Metrics, now),
		Calculator:   NewRewardCalculator(cfg.Reward),
		Cap:          NewDailyCapEnforcer(db, cfg.DailyPayoutCap, now),
		Payout:       NewPayoutExecutor(transferer, cfg.PayoutTimeout),
		Ledger:       ledger,
		Metrics:      cfg.Metrics,
		historyLimit: cfg.HistoryLimit,
		lockTTL:      cfg.LockTTL,
		now:          now,
	}
	s.claimsDisabled.Store(cfg.ClaimsDisabled)
	return s
}

// SetClaimsDisabled engages or releases the kill switch.
func (s *RewardService) SetClaimsDisabled(disabled bool) { s.claimsDisabled.Store(disabled) }

func (s *RewardService) ClaimsDisabled() bool { return s.claimsDisabled.Load() }

// ClaimResult is what a successful claim returns to the caller.
type ClaimResult struct {
	Wallet          string          `json:"wallet"`
	ClaimID         string          `json:"claim_id"`
	TotalReward     decimal.Decimal `json:"total_reward"`
	TxRef           string          `json:"tx_ref"`
	ClaimedHoldings int             `json:"claimed_holdings"`
}

type claimStage string

const (
	stageLocked    claimStage = "LOCKED"
	stageEvaluated claimStage = "EVALUATED"
	stageReserved  claimStage = "RESERVED"
	stagePaid      claimStage = "PAID"
)

// Claim runs lock → eligibility → reward → rate limit → cap → pending claim →
// payout → finalize for wallet. The lock is released on every path. The rate
// limit is only consulted once there is something to pay, so a concurrent
// attempt sees lock contention and an empty claim leaves nothing behind.
func (s *RewardService) Claim(ctx context.Context, wallet string) (result *ClaimResult, err error) {
	wallet = models.NormalizeAddress(wallet)
	defer func() {
		outcome, _, _ := OutcomeFor(err)
		s.Metrics.RecordOutcome(outcome)
	}()

	if s.ClaimsDisabled() {
		return nil, ErrClaimsPaused
	}

	err = s.Locks.WithLock(ctx, wallet, func(ctx context.Context, _ *LockHandle) error {
		var runErr error
		result, runErr = s.runClaim(ctx, wallet)
		return runErr
	})
	if err != nil {
		// The payout went out, so the caller still gets the tx reference.
		if errors.Is(err, ErrReconciliationRequired) {
			return result, err
		}
		return nil, err
	}
	return result, nil
}

func (s *RewardService) runClaim(ctx context.Context, wallet string) (*ClaimResult, error) {
	stage := stageLocked
	holdings, err := s.Holdings.ListByOwner(ctx, wallet)
	if err != nil {
		return nil, err
	}
	eligible, err := s.Eligibility.Evaluate(ctx, wallet, holdings)
	if err != nil {
		return nil, err
	}
	items, total := s.Calculator.Compute(eligible)
	if len(items) == 0 || total.Sign() <= 0 {
		return nil, ErrNoEligibleHoldings
	}
	stage = stageEvaluated

	allowed, err := s.RateLimiter.Allow(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrRateLimited
	}

	if err := s.Cap.Reserve(ctx, total); err != nil {
		log.Printf("[Claim] wallet=%s stage=%s amount=%s: %v", wallet, stage, total, err)
		return nil, err
	}
	stage = stageReserved
	if remaining, err := s.Cap.Remaining(ctx); err == nil {
		s.Metrics.RecordCapRemaining(remaining)
	}

	claim, err := s.Ledger.CreatePending(ctx, wallet, total)
	if err != nil {
		log.Printf("[Claim] ❌ wallet=%s stage=%s amount=%s: %v", wallet, stage, total, err)
		return nil, err
	}

	txRef, err := s.Payout.Send(ctx, wallet, total)
	stage = stagePaid
	if err != nil {
		reason := err.Error()
		var te *TransferError
		if errors.As(err, &te) {
			reason = te.Reason
		}
		log.Printf("[Claim] ❌ Transfer failed wallet=%s claim=%s amount=%s: %s", wallet, claim.ID, total, reason)
		if ferr := s.Ledger.Finalize(context.WithoutCancel(ctx), claim.ID, models.ClaimStatusFailed, "", reason); ferr != nil {
			log.Printf("[Reconcile] claim=%s wallet=%s amount=%s left PENDING after failed transfer: %v", claim.ID, wallet, total, ferr)
		}
		return nil, err
	}

	if err := s.Ledger.FinalizeSuccess(context.WithoutCancel(ctx), claim.ID, txRef, items); err != nil {
		log.Printf("[Reconcile] 🚨 PAID BUT NOT RECORDED claim=%s wallet=%s amount=%s tx=%s stage=%s: %v",
			claim.ID, wallet, total, txRef, stage, err)
		return &ClaimResult{
			Wallet:          wallet,
			ClaimID:         claim.ID,
			TotalReward:     total,
			TxRef:           txRef,
			ClaimedHoldings: len(items),
		}, fmt.Errorf("%w: claim %s tx %s: %w", ErrReconciliationRequired, claim.ID, txRef, err)
	}
	s.Metrics.RecordPayout(total)
	log.Printf("[Claim] ✅ wallet=%s claim=%s amount=%s holdings=%d tx=%s", wallet, claim.ID, total, len(items), txRef)

	return &ClaimResult{
		Wallet:          wallet,
		ClaimID:         claim.ID,
		TotalReward:     total,
		TxRef:           txRef,
		ClaimedHoldings: len(items),
	}, nil
}

// UserReward returns what wallet could claim right now, without mutating anything.
func (s *RewardService) UserReward(ctx context.Context, wallet string) (decimal.Decimal, error) {
	holdings, err := s.Holdings.ListByOwner(ctx, wallet)
	if err != nil {
		return decimal.Zero, err
	}
	eligible, err := s.Eligibility.Evaluate(ctx, wallet, holdings)
	if err != nil {
		return decimal.Zero, err
	}
	_, total := s.Calculator.Compute(eligible)
	return total, nil
}

// ClaimHistory returns wallet's newest history entries, capped at the configured limit.
func (s *RewardService) ClaimHistory(ctx context.Context, wallet string, limit int) ([]models.ClaimHistoryEntry, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	return s.Ledger.QueryHistory(ctx, wallet, limit)
}

// --- User Handlers ---

// sessionWallet returns the wallet the request is authenticated as, or an
// error response if it does not match requested.
func sessionWallet(c *fiber.Ctx, requested string) (string, error) {
	requested = models.NormalizeAddress(requested)
	if requested == "" {
		return "", c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Wallet required"})
	}
	session, _ := c.Locals("wallet").(string)
	if session == "" || session != requested {
		return "", c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "error": "Wallet mismatch"})
	}
	return requested, nil
}

// GetUserReward returns the claimable amount for the authenticated wallet.
func (s *RewardService) GetUserReward(c *fiber.Ctx) error {
	wallet, err := sessionWallet(c, c.Params("wallet"))
	if wallet == "" {
		return err
	}
	reward, err := s.UserReward(c.UserContext(), wallet)
	if err != nil {
		log.Printf("[Reward] ❌ Failed to compute reward for %s: %v", wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Failed to compute reward"})
	}
	return c.JSON(fiber.Map{"success": true, "wallet": wallet, "reward": reward})
}

// ClaimReward runs a claim for the authenticated wallet.
func (s *RewardService) ClaimReward(c *fiber.Ctx) error {
	var req struct {
		Wallet string `json:"wallet"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	wallet, err := sessionWallet(c, req.Wallet)
	if wallet == "" {
		return err
	}

	result, err := s.Claim(c.UserContext(), wallet)
	outcome, status, message := OutcomeFor(err)
	if err != nil && outcome == OutcomeInternalError {
		txRef := ""
		if result != nil {
			txRef = result.TxRef
		}
		log.Printf("[Claim] ❌ Internal error for %s tx=%q: %v", wallet, txRef, err)
	}
	body := fiber.Map{
		"success": err == nil,
		"outcome": outcome,
		"message": message,
	}
	if result != nil {
		body["result"] = result
	}
	return c.Status(status).JSON(body)
}

// GetClaimHistory lists the authenticated wallet's claim history, newest first.
func (s *RewardService) GetClaimHistory(c *fiber.Ctx) error {
	wallet, err := sessionWallet(c, c.Params("wallet"))
	if wallet == "" {
		return err
	}
	limit := s.historyLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid limit parameter"})
		}
		limit = l
	}

	history, err := s.ClaimHistory(c.UserContext(), wallet, limit)
	if err != nil {
		log.Printf("[History] ❌ Failed to load claim history for %s: %v", wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Failed to load claim history"})
	}
	return c.JSON(fiber.Map{"success": true, "count": len(history), "items": history})
}
