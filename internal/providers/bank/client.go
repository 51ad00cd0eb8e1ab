package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		apiKey:   strings.TrimSpace(apiKey),
		client:   &http.Client{Timeout: timeout},
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) Transfer(ctx context.Context, req TransferRequest, idempotencyKey string) (TransferResult, error) {
	var result TransferResult
	if err := c.doRequest(ctx, "/withdrawal", req, idempotencyKey, &result); err != nil {
		return TransferResult{}, err
	}
	return result, nil
}

func (c *Client) BulkTransfer(ctx context.Context, reqs []TransferRequest, idempotencyKey string) (BulkResult, error) {
	payload := struct {
		Transfers []TransferRequest `json:"transfers"`
	}{Transfers: reqs}

	var result BulkResult
	if err := c.doRequest(ctx, "/transfers", payload, idempotencyKey, &result); err != nil {
		return BulkResult{}, err
	}
	return result, nil
}

func (c *Client) doRequest(ctx context.Context, path string, payload any, idempotencyKey string, out any) error {
	if c.endpoint == "" {
		return ErrInvalidConfig
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%w: %s (status %d)", ErrTransferFailed, errResp.Error, resp.StatusCode)
		}
		return fmt.Errorf("%w: status %d", ErrTransferFailed, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrTransferFailed, err)
		}
	}
	return nil
}
