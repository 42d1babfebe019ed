// workers/holdings_sync_worker.go
package workers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"holder-rewards/models"
	"holder-rewards/services"

	"github.com/shopspring/decimal"
)

// HoldingsSyncWorker mirrors the marketplace's view of who owns which
// collectible into the holdings table.
type HoldingsSyncWorker struct {
	client   *MarketplaceClient
	store    *services.HoldingsStore
	interval time.Duration
}

func NewHoldingsSyncWorker(client *MarketplaceClient, store *services.HoldingsStore, interval time.Duration) *HoldingsSyncWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &HoldingsSyncWorker{client: client, store: store, interval: interval}
}

func (w *HoldingsSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Holdings Sync Worker (marketplace → holdings)…")
	go w.run(ctx)
}

func (w *HoldingsSyncWorker) run(ctx context.Context) {
	if n, err := w.SyncOnce(ctx); err != nil {
		log.Printf("⚠️ Initial holdings sync failed: %v", err)
	} else {
		log.Printf("✅ Initial holdings sync upserted %d holding(s)", n)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Holdings sync stopped.")
			return
		case <-ticker.C:
			n, err := w.SyncOnce(ctx)
			if err != nil {
				log.Printf("❌ Holdings sync failed: %v", err)
				continue
			}
			log.Printf("📥 Holdings sync upserted %d holding(s)", n)
		}
	}
}

// SyncOnce walks every item of the creator and upserts one holding per
// current owner. It returns how many holdings were written.
func (w *HoldingsSyncWorker) SyncOnce(ctx context.Context) (int, error) {
	total := 0
	continuation := ""
	for {
		page, err := w.client.ItemsByCreator(ctx, continuation)
		if err != nil {
			return total, err
		}
		for _, item := range page.Items {
			if item.Deleted {
				continue
			}
			dated, undated, err := w.itemHoldings(ctx, item)
			if err != nil {
				return total, fmt.Errorf("item %s: %w", item.ID, err)
			}
			if err := w.store.Upsert(ctx, dated); err != nil {
				return total, err
			}
			if err := w.store.UpsertUndated(ctx, undated); err != nil {
				return total, err
			}
			total += len(dated) + len(undated)
		}
		if page.Continuation == "" || page.Continuation == continuation || len(page.Items) == 0 {
			return total, nil
		}
		continuation = page.Continuation
	}
}

// itemHoldings splits the item's owners into holdings with a marketplace
// purchase time and holdings stamped with the sync time.
func (w *HoldingsSyncWorker) itemHoldings(ctx context.Context, item MarketplaceItem) (dated, undated []models.Holding, err error) {
	standard := standardFor(item)
	contract, tokenID := itemCoordinates(item)

	seen := make(map[string]struct{})
	continuation := ""
	for {
		page, err := w.client.OwnershipsByItem(ctx, item.ID, continuation)
		if err != nil {
			return nil, nil, err
		}
		for _, o := range page.Ownerships {
			if v, err := decimal.NewFromString(o.Value); err == nil && v.Sign() <= 0 {
				continue
			}
			owner := stripBlockchain(o.Owner)
			if _, dup := seen[owner]; dup || owner == "" {
				continue
			}
			seen[owner] = struct{}{}
			h := models.Holding{
				Owner:           owner,
				ContractAddress: contract,
				TokenID:         tokenID,
				Standard:        standard,
				PurchasedAt:     o.CreatedAt.UTC(),
				PurchaseCount:   1,
			}
			if o.CreatedAt.IsZero() {
				h.PurchasedAt = time.Now().UTC()
				undated = append(undated, h)
			} else {
				dated = append(dated, h)
			}
		}
		if page.Continuation == "" || page.Continuation == continuation || len(page.Ownerships) == 0 {
			return dated, undated, nil
		}
		continuation = page.Continuation
	}
}

// itemCoordinates prefers explicit fields and falls back to parsing
// "BLOCKCHAIN:contract:tokenId" item ids.
func itemCoordinates(item MarketplaceItem) (contract, tokenID string) {
	contract = stripBlockchain(item.Contract)
	tokenID = strings.TrimSpace(item.TokenID)
	parts := strings.Split(item.ID, ":")
	if contract == "" && len(parts) >= 2 {
		contract = strings.ToLower(parts[len(parts)-2])
	}
	if tokenID == "" && len(parts) >= 1 {
		tokenID = parts[len(parts)-1]
	}
	return contract, tokenID
}

// Multi-supply items are ERC1155 editions; single-supply items are ERC721.
func standardFor(item MarketplaceItem) models.TokenStandard {
	supply, err := decimal.NewFromString(item.Supply)
	if err == nil && supply.GreaterThan(decimal.NewFromInt(1)) {
		return models.StandardERC1155
	}
	return models.StandardERC721
}
