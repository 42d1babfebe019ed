// services/scheduler.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// LedgerUploader stores an exported ledger document under key.
type LedgerUploader interface {
	PutJSON(ctx context.Context, key string, body []byte) error
}

// SweepExpired clears abandoned claim locks and lapsed rate-limit rows.
func (s *RewardService) SweepExpired(ctx context.Context) {
	if n, err := s.Locks.SweepExpired(ctx); err != nil {
		log.Printf("[Scheduler] Lock sweep error: %v", err)
	} else if n > 0 {
		log.Printf("[Scheduler] 🧹 Removed %d expired claim lock(s)", n)
	}
	if _, err := s.RateLimiter.SweepExpired(ctx); err != nil {
		log.Printf("[Scheduler] Rate limit sweep error: %v", err)
	}
}

// ReportStalePending logs every claim still PENDING after the lock TTL. A
// claim only stays PENDING when the process died between payout and
// finalization, so each one needs checking against the chain by hand.
func (s *RewardService) ReportStalePending(ctx context.Context) int {
	claims, err := s.Ledger.StalePending(ctx, s.lockTTL)
	if err != nil {
		log.Printf("[Scheduler] Stale claim query error: %v", err)
		return 0
	}
	for _, c := range claims {
		log.Printf("[Reconcile] claim=%s wallet=%s amount=%s created=%s still PENDING",
			c.ID, c.Wallet, c.Amount, c.CreatedAt.Format(time.RFC3339))
	}
	return len(claims)
}

// ExportLedgerDay uploads the claims and history of day as one JSON document.
func (s *RewardService) ExportLedgerDay(ctx context.Context, uploader LedgerUploader, keyPrefix string, day time.Time) (string, error) {
	export, err := s.Ledger.ExportDay(ctx, day)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(export)
	if err != nil {
		return "", fmt.Errorf("encode ledger export: %w", err)
	}
	key := fmt.Sprintf("%s/claims/%s.json", keyPrefix, export.Date)
	if err := uploader.PutJSON(ctx, key, body); err != nil {
		return "", fmt.Errorf("upload ledger export: %w", err)
	}
	return key, nil
}

// StartMaintenanceScheduler runs the lock sweep, the reconciliation report and,
// when uploader is non-nil, the daily ledger export.
func (s *RewardService) StartMaintenanceScheduler(ctx context.Context, uploader LedgerUploader, keyPrefix string) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	// Every minute: drop expired locks and rate-limit rows
	if _, err := sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() { s.SweepExpired(ctx) }),
	); err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}

	// Every 15 minutes: surface claims stuck between payout and finalization
	if _, err := sched.NewJob(
		gocron.DurationJob(15*time.Minute),
		gocron.NewTask(func() { s.ReportStalePending(ctx) }),
	); err != nil {
		return nil, fmt.Errorf("schedule reconciliation report: %w", err)
	}

	// Daily 00:10 UTC: export yesterday's ledger
	if uploader != nil {
		if _, err := sched.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 10, 0))),
			gocron.NewTask(func() {
				day := s.now().UTC().Add(-24 * time.Hour)
				key, err := s.ExportLedgerDay(ctx, uploader, keyPrefix, day)
				if err != nil {
					log.Printf("[Scheduler] ❌ Ledger export failed: %v", err)
					return
				}
				log.Printf("[Scheduler] ✅ Ledger exported to %s", key)
			}),
		); err != nil {
			return nil, fmt.Errorf("schedule ledger export: %w", err)
		}
	}

	sched.Start()
	return sched, nil
}
