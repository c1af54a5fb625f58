// Package notify delivers reports and alert batches to recipient webhook
// endpoints.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/coopmetrics/internal/config"
	"github.com/mamadbah2/coopmetrics/internal/domain/models"
)

// WebhookClient is a resty-backed notifier. Recipients are webhook URLs;
// payloads are JSON documents the receiving side renders or forwards.
type WebhookClient struct {
	httpClient *resty.Client
}

// NewWebhookClient builds a notifier client using the provided configuration.
func NewWebhookClient(cfg config.NotifierConfig) *WebhookClient {
	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)

	if cfg.AuthToken != "" {
		restyClient.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.AuthToken))
	}

	return &WebhookClient{httpClient: restyClient}
}

type reportPayload struct {
	Kind   string                      `json:"kind"`
	Report *models.ComprehensiveReport `json:"report"`
}

type alertPayload struct {
	Kind           string         `json:"kind"`
	OrganizationID string         `json:"organization_id"`
	Alerts         []models.Alert `json:"alerts"`
}

// apiError mirrors the error body webhook receivers are expected to return.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SendReport posts a compiled report to one recipient endpoint.
func (c *WebhookClient) SendReport(ctx context.Context, recipient string, report *models.ComprehensiveReport) error {
	return c.post(ctx, recipient, reportPayload{Kind: "report", Report: report})
}

// SendAlerts posts an alert batch to one recipient endpoint.
func (c *WebhookClient) SendAlerts(ctx context.Context, recipient string, alerts []models.Alert) error {
	orgID := ""
	if len(alerts) > 0 {
		orgID = alerts[0].OrganizationID
	}
	return c.post(ctx, recipient, alertPayload{Kind: "alerts", OrganizationID: orgID, Alerts: alerts})
}

func (c *WebhookClient) post(ctx context.Context, recipient string, payload any) error {
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetError(apiErr).
		Post(recipient)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Message
		if message == "" {
			message = apiErr.Error
		}
		return fmt.Errorf("notification rejected: status=%d, message=%s", resp.StatusCode(), message)
	}

	return nil
}
