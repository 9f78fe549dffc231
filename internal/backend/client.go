// Package backend is the HTTP client for the upstream webinar backend, the
// system of record for webinars, enrollments and payment orders.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aura-webinar/client/internal/credentials"
	"github.com/aura-webinar/client/internal/models"
)

var (
	// ErrUnauthorized means the backend rejected the bearer credential.
	ErrUnauthorized = errors.New("backend rejected credential")
)

// Client talks to the upstream webinar backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a backend client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ListWebinars fetches the full webinar catalog.
func (c *Client) ListWebinars(ctx context.Context) ([]models.Webinar, error) {
	var dtos []webinarDTO
	if err := c.do(ctx, http.MethodGet, "/webinars", "", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]models.Webinar, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toModel())
	}
	return out, nil
}

// CheckEnrollmentStatus asks the backend whether the user behind the
// credential already holds a paid enrollment for the webinar.
func (c *Client) CheckEnrollmentStatus(ctx context.Context, cred credentials.Credential, webinarID string) (bool, error) {
	req := map[string]string{"webinarId": webinarID}
	var resp struct {
		AlreadyPaid bool `json:"alreadyPaid"`
	}
	if err := c.do(ctx, http.MethodPost, "/enrollment/status", cred, req, &resp); err != nil {
		return false, err
	}
	return resp.AlreadyPaid, nil
}

// CreateOrder creates a payment order for the given amount in major currency
// units. Each call creates exactly one order record upstream; callers must
// not retry.
func (c *Client) CreateOrder(ctx context.Context, cred credentials.Credential, amount int64, receiptID string) (string, error) {
	req := map[string]interface{}{"amount": amount, "receiptId": receiptID}
	var resp struct {
		OrderID string `json:"orderId"`
	}
	if err := c.do(ctx, http.MethodPost, "/payment/order", cred, req, &resp); err != nil {
		return "", err
	}
	if resp.OrderID == "" {
		return "", fmt.Errorf("backend returned empty order id")
	}
	return resp.OrderID, nil
}

// GetGatewayKey fetches the publishable key for the hosted checkout. Kept as
// a separate call to match the backend's two-step authority split between
// order creation and key distribution.
func (c *Client) GetGatewayKey(ctx context.Context) (string, error) {
	var resp struct {
		Key string `json:"key"`
	}
	if err := c.do(ctx, http.MethodGet, "/payment/key", "", nil, &resp); err != nil {
		return "", err
	}
	if resp.Key == "" {
		return "", fmt.Errorf("backend returned empty gateway key")
	}
	return resp.Key, nil
}

// VerifyPayment submits payment proof for authoritative verification. The
// returned bool is the backend's verdict; an error means the backend could
// not be reached or answered outside its contract.
func (c *Client) VerifyPayment(ctx context.Context, cred credentials.Credential, webinarID string, proof models.PaymentProof) (bool, error) {
	req := map[string]string{
		"webinarId": webinarID,
		"paymentId": proof.PaymentID,
		"orderId":   proof.OrderID,
		"signature": proof.Signature,
	}
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodPost, "/payment/verify", cred, req, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (c *Client) do(ctx context.Context, method, path string, cred credentials.Credential, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred != "" {
		req.Header.Set("Authorization", "Bearer "+string(cred))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("backend %s %s: %w", method, path, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("backend error response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return fmt.Errorf("backend %s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}
