package xendit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds Xendit API configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client represents Xendit invoice API client
type Client struct {
	httpClient *http.Client
	config     Config
}

// CreateInvoiceRequest represents hosted invoice creation request
type CreateInvoiceRequest struct {
	ExternalID         string            `json:"external_id"`
	Amount             float64           `json:"amount"`
	Currency           string            `json:"currency,omitempty"`
	Description        string            `json:"description,omitempty"`
	PayerEmail         string            `json:"payer_email,omitempty"`
	SuccessRedirectURL string            `json:"success_redirect_url,omitempty"`
	FailureRedirectURL string            `json:"failure_redirect_url,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// Invoice represents a hosted invoice created by Xendit
type Invoice struct {
	ID         string  `json:"id"`
	ExternalID string  `json:"external_id"`
	Status     string  `json:"status"`
	Amount     float64 `json:"amount"`
	InvoiceURL string  `json:"invoice_url"`
	ExpiryDate string  `json:"expiry_date"`
}

// NewClient creates new Xendit API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.xendit.co"
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// CreateInvoice creates a hosted invoice and returns its payment URL
func (c *Client) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(req.ExternalID) == "" {
		return nil, fmt.Errorf("validation error: external_id must be non-empty")
	}
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("xendit client is not initialized")
	}
	if strings.TrimSpace(c.config.APIKey) == "" {
		return nil, fmt.Errorf("xendit config error: api_key is empty")
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode xendit request: %w", err)
	}

	base := strings.TrimRight(c.config.BaseURL, "/")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v2/invoices", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to build xendit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Xendit uses HTTP basic auth with the secret key as username
	httpReq.SetBasicAuth(c.config.APIKey, "")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("xendit request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read xendit response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("xendit returned status %d: %s", resp.StatusCode, string(body))
	}

	var invoice Invoice
	if err := json.Unmarshal(body, &invoice); err != nil {
		return nil, fmt.Errorf("failed to decode xendit response: %w", err)
	}

	return &invoice, nil
}
