package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/arendondiosa/siigo-go/internal/constants"
	"github.com/arendondiosa/siigo-go/internal/http"
	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

// WebhooksClient implements siigo.WebhooksClient.
type WebhooksClient struct {
	httpClient *http.Client
}

// NewWebhooksClient creates a new webhooks client.
func NewWebhooksClient(httpClient *http.Client) *WebhooksClient {
	return &WebhooksClient{
		httpClient: httpClient,
	}
}

// List implements siigo.WebhooksClient.List. The endpoint is not paginated.
func (c *WebhooksClient) List(ctx context.Context) ([]siigo.Webhook, error) {
	if c.httpClient.Closed() {
		return nil, &siigo.ClientClosedError{Op: "list webhooks"}
	}

	resp, err := c.httpClient.Get(ctx, constants.APIPathWebhooks, nil)
	if err != nil {
		return nil, fmt.Errorf("listing webhooks: %w", err)
	}

	webhooks, err := siigo.DecodeWebhooks(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("listing webhooks: %w", err)
	}

	return webhooks, nil
}

// GetByTopic implements siigo.WebhooksClient.GetByTopic. It returns nil
// without error when no subscription exists for the type.
func (c *WebhooksClient) GetByTopic(ctx context.Context, webhookType siigo.WebhookType) (*siigo.Webhook, error) {
	topic, err := webhookType.Topic()
	if err != nil {
		return nil, siigo.NewValidationError(err, siigo.FieldError{Field: "topic", Rule: "oneof", Message: err.Error()})
	}

	webhooks, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	for i := range webhooks {
		if webhooks[i].Topic == topic {
			return &webhooks[i], nil
		}
	}

	return nil, nil //nolint:nilnil // absence is not an error here
}

// Select implements siigo.WebhooksClient.Select. Unlike GetByTopic it fails
// with a NotFoundError when no subscription exists.
func (c *WebhooksClient) Select(ctx context.Context, webhookType siigo.WebhookType) (*siigo.Webhook, error) {
	webhook, err := c.GetByTopic(ctx, webhookType)
	if err != nil {
		return nil, err
	}

	if webhook == nil {
		return nil, siigo.NewNotFoundError("webhook", string(webhookType))
	}

	return webhook, nil
}

// Create implements siigo.WebhooksClient.Create. The type and URL are
// validated before any request is made.
func (c *WebhooksClient) Create(ctx context.Context, webhookType siigo.WebhookType, rawURL string, opts ...siigo.RequestOption) (*siigo.Webhook, error) {
	if c.httpClient.Closed() {
		return nil, &siigo.ClientClosedError{Op: "create webhook"}
	}

	request, err := siigo.NewWebhookCreateRequest(webhookType, rawURL)
	if err != nil {
		return nil, err
	}

	err = request.Validate()
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(ctx, writeRequest("POST", constants.APIPathWebhooks, request, opts))
	if err != nil {
		return nil, fmt.Errorf("creating webhook: %w", err)
	}

	webhook, err := siigo.DecodeWebhook(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("creating webhook: %w", err)
	}

	return webhook, nil
}

// Upsert implements siigo.WebhooksClient.Upsert. An existing subscription
// pointing at rawURL is returned unchanged; a stale one is replaced.
func (c *WebhooksClient) Upsert(ctx context.Context, webhookType siigo.WebhookType, rawURL string) (*siigo.Webhook, error) {
	if c.httpClient.Closed() {
		return nil, &siigo.ClientClosedError{Op: "upsert webhook"}
	}

	request, err := siigo.NewWebhookCreateRequest(webhookType, rawURL)
	if err != nil {
		return nil, err
	}

	existing, err := c.GetByTopic(ctx, webhookType)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.URL == request.URL {
			return existing, nil
		}

		err = c.Delete(ctx, existing.ID)
		if err != nil && !siigo.IsNotFound(err) {
			return nil, fmt.Errorf("replacing webhook %s: %w", existing.ID, err)
		}
	}

	return c.Create(ctx, webhookType, rawURL)
}

// Delete implements siigo.WebhooksClient.Delete.
func (c *WebhooksClient) Delete(ctx context.Context, id string) error {
	if c.httpClient.Closed() {
		return &siigo.ClientClosedError{Op: "delete webhook"}
	}

	err := requireID(id)
	if err != nil {
		return err
	}

	_, err = c.httpClient.Delete(ctx, constants.APIPathWebhooks+"/"+url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("deleting webhook: %w", annotateNotFound(err, "webhook", id))
	}

	return nil
}

var _ siigo.WebhooksClient = (*WebhooksClient)(nil)
