package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"holder-rewards/models"

	"github.com/gofiber/fiber/v2"
)

// StreamClaimHistorySSE streams new claim history entries for the authenticated wallet.
func (s *RewardService) StreamClaimHistorySSE(c *fiber.Ctx) error {
	wallet, err := sessionWallet(c, c.Params("wallet"))
	if wallet == "" {
		return err
	}

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	ctx := c.Context()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		// Initialize cursor at the newest entry already recorded
		lastClaimedAt := time.Time{}
		if latest, err := s.Ledger.QueryHistory(ctx, wallet, 1); err != nil {
			log.Printf("SSE init error for wallet %s: %v", wallet, err)
		} else if len(latest) > 0 {
			lastClaimedAt = latest[0].ClaimedAt
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var entries []models.ClaimHistoryEntry
				err := s.DB.WithContext(ctx).
					Where("wallet = ? AND claimed_at > ?", wallet, lastClaimedAt).
					Order("claimed_at ASC").
					Limit(MaxHistoryLimit).
					Find(&entries).Error
				if err != nil {
					log.Printf("SSE query error for wallet %s: %v", wallet, err)
					continue
				}
				if len(entries) == 0 {
					continue
				}
				lastClaimedAt = entries[len(entries)-1].ClaimedAt

				for _, e := range entries {
					payload, _ := json.Marshal(e)
					fmt.Fprintf(w, "event: claim\ndata: %s\n\n", payload)
				}
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}
