// workers/marketplace_client.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"holder-rewards/utils"
)

// MarketplaceClient reads collectible items and their owners from the
// marketplace index (Rarible multichain API).
type MarketplaceClient struct {
	BaseURL    string
	APIKey     string
	Creator    string // e.g. "ETHEREUM:0xba61..."
	PageSize   int
	HTTPClient *http.Client
}

func NewMarketplaceClient(baseURL, apiKey, creator string) *MarketplaceClient {
	return &MarketplaceClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Creator:    creator,
		PageSize:   100,
		HTTPClient: utils.HTTPClient,
	}
}

// MarketplaceItem is one minted collectible.
type MarketplaceItem struct {
	ID       string `json:"id"`
	Contract string `json:"contract"`
	TokenID  string `json:"tokenId"`
	Supply   string `json:"supply"`
	Deleted  bool   `json:"deleted"`
}

// ItemsPage is one page of items/byCreator.
type ItemsPage struct {
	Continuation string            `json:"continuation"`
	Items        []MarketplaceItem `json:"items"`
}

// MarketplaceOwnership is one wallet's stake in an item.
type MarketplaceOwnership struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	Contract  string    `json:"contract"`
	TokenID   string    `json:"tokenId"`
	Owner     string    `json:"owner"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}

// OwnershipsPage is one page of ownerships/byItem.
type OwnershipsPage struct {
	Continuation string                 `json:"continuation"`
	Ownerships   []MarketplaceOwnership `json:"ownerships"`
}

// ItemsByCreator fetches one page of the creator's items. An empty
// continuation starts from the beginning.
func (c *MarketplaceClient) ItemsByCreator(ctx context.Context, continuation string) (*ItemsPage, error) {
	params := url.Values{}
	params.Set("creator", c.Creator)
	params.Set("size", fmt.Sprint(c.PageSize))
	if continuation != "" {
		params.Set("continuation", continuation)
	}
	var page ItemsPage
	if err := c.get(ctx, "/items/byCreator", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// OwnershipsByItem fetches one page of itemID's current owners.
func (c *MarketplaceClient) OwnershipsByItem(ctx context.Context, itemID, continuation string) (*OwnershipsPage, error) {
	params := url.Values{}
	params.Set("itemId", itemID)
	params.Set("size", fmt.Sprint(c.PageSize))
	if continuation != "" {
		params.Set("continuation", continuation)
	}
	var page OwnershipsPage
	if err := c.get(ctx, "/ownerships/byItem", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *MarketplaceClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("failed to parse base URL: %w", err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-API-KEY", c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call marketplace: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("marketplace %s returned status %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode marketplace response: %w", err)
	}
	return nil
}

// stripBlockchain turns "ETHEREUM:0xAbC" into "0xabc".
func stripBlockchain(id string) string {
	if i := strings.LastIndex(id, ":"); i >= 0 {
		id = id[i+1:]
	}
	return strings.ToLower(strings.TrimSpace(id))
}
