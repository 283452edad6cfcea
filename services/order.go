package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"restaurant-order/config"
	"restaurant-order/models"
)

// ValidateCustomer checks the checkout form before anything is sent.
func ValidateCustomer(c models.Customer) error {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(c.Address) == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// OrderSubmitter hands an order to the restaurant.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, payload models.OrderPayload) error
}

// maxWebhookReplyBytes caps how much of the webhook reply is read.
const maxWebhookReplyBytes = 64 << 10

// WebhookClient posts orders to the configured webhook.
type WebhookClient struct {
	url        string
	mode       string
	httpClient *http.Client
}

type webhookResponse struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

func NewWebhookClient(url, mode string, timeout time.Duration) *WebhookClient {
	if mode == "" {
		mode = config.ResponseModeOpaque
	}
	return &WebhookClient{
		url:  url,
		mode: mode,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SubmitOrder posts the payload once. In opaque mode only a transport
// failure is an error. In json mode the response's success field decides
// when it can be read; an unreadable body counts as success.
func (c *WebhookClient) SubmitOrder(ctx context.Context, payload models.OrderPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &SubmissionError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SubmissionError{Err: err}
	}
	defer resp.Body.Close()

	reply := io.LimitReader(resp.Body, maxWebhookReplyBytes)
	if c.mode == config.ResponseModeOpaque {
		_, _ = io.Copy(io.Discard, reply)
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SubmissionError{StatusCode: resp.StatusCode}
	}
	raw, err := io.ReadAll(reply)
	if err != nil {
		return nil
	}
	var wr webhookResponse
	if err := json.Unmarshal(raw, &wr); err != nil || wr.Success == nil {
		return nil
	}
	if !*wr.Success {
		msg := wr.Error
		if msg == "" {
			msg = "order rejected"
		}
		return &SubmissionError{StatusCode: resp.StatusCode, Message: msg}
	}
	return nil
}
