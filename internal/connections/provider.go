package connections

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Keiracom/Agency-OS-sub001/platform/config"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"
)

// Withdrawer retracts a pending connection request on the provider side.
type Withdrawer interface {
	Withdraw(ctx context.Context, seatID string, providerRequestID string) error
}

// ProviderClient calls the social-network connection provider's API.
type ProviderClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

type withdrawRequest struct {
	AccountID string `json:"account_id"`
	RequestID string `json:"request_id"`
}

// NewProviderClient creates a provider client, or nil when no provider is
// configured. A nil client is safe to pass to the reaper; withdrawal then
// only happens locally.
func NewProviderClient(cfg config.ProviderConfig, log *logger.Logger) *ProviderClient {
	if !cfg.IsProviderEnabled() {
		return nil
	}

	return &ProviderClient{
		baseURL: strings.TrimRight(cfg.GetProviderBaseURL(), "/"),
		apiKey:  cfg.GetProviderAPIKey(),
		http:    &http.Client{Timeout: cfg.GetProviderTimeout()},
		log:     log,
	}
}

// Withdraw retracts one connection request. A non-2xx status is an error;
// the caller decides whether to retry on a later sweep.
func (c *ProviderClient) Withdraw(ctx context.Context, seatID string, providerRequestID string) error {
	if c == nil {
		return nil
	}

	payload := withdrawRequest{AccountID: seatID, RequestID: providerRequestID}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal withdraw payload: %w", err)
	}

	url := fmt.Sprintf("%s/connections/withdraw", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider withdraw call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider withdraw returned status %d", resp.StatusCode)
	}

	return nil
}
