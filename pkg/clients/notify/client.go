// Package notify pushes matching and lending events to an external webhook.
// The receiving side (ticketing, chat, audit) is out of scope; the core only
// needs a fire-and-forget "broadcast message" collaborator.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yshioka/equipmatch/internal/config"
	"github.com/yshioka/equipmatch/internal/domain/models"
)

// Client posts event payloads to the configured webhook endpoint.
type Client struct {
	httpClient *resty.Client
}

// NewClient builds a webhook client from configuration.
func NewClient(cfg config.NotifyConfig) *Client {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(cfg.WebhookURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)
	if cfg.Token != "" {
		restyClient.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Token))
	}
	return &Client{httpClient: restyClient}
}

type eventEnvelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// NotifyMatchEvent pushes one match engine transition.
func (c *Client) NotifyMatchEvent(ctx context.Context, event models.MatchEvent) error {
	return c.post(ctx, eventEnvelope{Event: "match." + string(event.Kind), Payload: event})
}

// NotifyOverdueLoan pushes an overdue-loan reminder.
func (c *Client) NotifyOverdueLoan(ctx context.Context, loan models.Loan) error {
	return c.post(ctx, eventEnvelope{Event: "loan.overdue", Payload: loan})
}

func (c *Client) post(ctx context.Context, body eventEnvelope) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post("")
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("webhook error: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	return nil
}
