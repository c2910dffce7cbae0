package siigo

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// WebhookType names an event a webhook can subscribe to.
type WebhookType string

// Supported webhook types.
const (
	WebhookProductsCreate WebhookType = "PRODUCTS_CREATE"
	WebhookProductsUpdate WebhookType = "PRODUCTS_UPDATE"
	WebhookStockUpdate    WebhookType = "STOCK_UPDATE"
)

var webhookTopics = map[WebhookType]string{
	WebhookProductsCreate: "public.siigoapi.products.create",
	WebhookProductsUpdate: "public.siigoapi.products.update",
	WebhookStockUpdate:    "public.siigoapi.products.stock.update",
}

// WebhookTypes returns the supported types in sorted order.
func WebhookTypes() []WebhookType {
	types := make([]WebhookType, 0, len(webhookTopics))
	for webhookType := range webhookTopics {
		types = append(types, webhookType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// ParseWebhookType parses a type name case-insensitively.
func ParseWebhookType(name string) (WebhookType, error) {
	webhookType := WebhookType(strings.ToUpper(strings.TrimSpace(name)))

	_, err := webhookType.Topic()
	if err != nil {
		return "", err
	}

	return webhookType, nil
}

// Topic returns the Siigo topic the type subscribes to.
func (t WebhookType) Topic() (string, error) {
	topic, ok := webhookTopics[t]
	if !ok {
		return "", fmt.Errorf("%w: %q, valid types are %v", ErrInvalidWebhookType, string(t), WebhookTypes())
	}

	return topic, nil
}

// Webhook is a subscription of the application to a Siigo topic.
type Webhook struct {
	ID            string    `json:"id"                       yaml:"id"`
	ApplicationID string    `json:"application_id,omitempty" yaml:"application_id,omitempty"`
	URL           string    `json:"url"                      yaml:"url"`
	Topic         string    `json:"topic"                    yaml:"topic"`
	CompanyKey    string    `json:"company_key,omitempty"    yaml:"company_key,omitempty"`
	Active        bool      `json:"active"                   yaml:"active"`
	CreatedAt     time.Time `json:"created_at"               yaml:"created_at"`
}

// WebhookCreateRequest is the payload of a webhook subscription.
type WebhookCreateRequest struct {
	Topic  string `json:"topic"  validate:"required"`
	URL    string `json:"url"    validate:"required,http_url"`
	Active bool   `json:"active"`
}

// NewWebhookCreateRequest validates the type and URL and builds the payload.
func NewWebhookCreateRequest(webhookType WebhookType, rawURL string) (*WebhookCreateRequest, error) {
	topic, err := webhookType.Topic()
	if err != nil {
		return nil, NewValidationError(err, FieldError{Field: "topic", Rule: "oneof", Message: err.Error()})
	}

	err = ValidateWebhookURL(rawURL)
	if err != nil {
		return nil, NewValidationError(err, FieldError{Field: "url", Rule: "http_url", Message: err.Error()})
	}

	return &WebhookCreateRequest{Topic: topic, URL: rawURL, Active: true}, nil
}

// ValidateWebhookURL checks that the URL is an absolute http or https URL.
func ValidateWebhookURL(rawURL string) error {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return fmt.Errorf("%w: %q", ErrInvalidWebhookURL, rawURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidWebhookURL, rawURL)
	}

	return nil
}
