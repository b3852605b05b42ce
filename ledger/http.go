package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"example.com/auctionhouse/services/indexer/config"
)

// HTTPReader implements Reader against the chain gateway's REST surface.
type HTTPReader struct {
	baseURL string
	client  *http.Client
}

// NewHTTPReader creates a ledger reader for the configured gateway.
func NewHTTPReader(cfg config.LedgerConfig) *HTTPReader {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPReader{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type auctionFlagsResponse struct {
	Lot          int64 `json:"lot"`
	HasEmissions bool  `json:"has_emissions"`
	HasRunes     bool  `json:"has_runes"`
}

type penaltyResponse struct {
	RuneSwitchPenalty int64 `json:"rune_switch_penalty"`
}

func (r *HTTPReader) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build ledger request: %w", err)
	}

	res, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger returned status %d for %s", res.StatusCode, path)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode ledger response: %w", err)
	}
	return nil
}

func (r *HTTPReader) auctionFlags(ctx context.Context, lot int64) (auctionFlagsResponse, error) {
	var flags auctionFlagsResponse
	err := r.get(ctx, fmt.Sprintf("/v1/auctions/%d/flags", lot), &flags)
	return flags, err
}

// AuctionHasEmissions reports whether the lot pays out emissions.
func (r *HTTPReader) AuctionHasEmissions(ctx context.Context, lot int64) (bool, error) {
	flags, err := r.auctionFlags(ctx, lot)
	if err != nil {
		return false, err
	}
	return flags.HasEmissions, nil
}

// AuctionHasRunes reports whether the lot supports rune selection.
func (r *HTTPReader) AuctionHasRunes(ctx context.Context, lot int64) (bool, error) {
	flags, err := r.auctionFlags(ctx, lot)
	if err != nil {
		return false, err
	}
	return flags.HasRunes, nil
}

// RuneSwitchPenalty returns the configured switch penalty in basis points.
func (r *HTTPReader) RuneSwitchPenalty(ctx context.Context) (int64, error) {
	var penalty penaltyResponse
	if err := r.get(ctx, "/v1/config/penalty", &penalty); err != nil {
		return 0, err
	}
	return penalty.RuneSwitchPenalty, nil
}
