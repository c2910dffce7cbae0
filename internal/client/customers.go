package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/arendondiosa/siigo-go/internal/constants"
	"github.com/arendondiosa/siigo-go/internal/http"
	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

// CustomersClient implements siigo.CustomersClient.
type CustomersClient struct {
	httpClient *http.Client
}

// NewCustomersClient creates a new customers client.
func NewCustomersClient(httpClient *http.Client) *CustomersClient {
	return &CustomersClient{
		httpClient: httpClient,
	}
}

// List implements siigo.CustomersClient.List. The iterator fetches lazily,
// one page per request, following the next-page links.
func (c *CustomersClient) List(ctx context.Context, params *siigo.QueryParams) *siigo.PaginationIterator[siigo.Customer] {
	return siigo.NewPaginationIterator[siigo.Customer](ctx, c, constants.APIPathCustomers, params)
}

// ListPage implements siigo.CustomersClient.ListPage.
func (c *CustomersClient) ListPage(ctx context.Context, params *siigo.QueryParams) (*siigo.ListResponse[siigo.Customer], error) {
	return c.ListWithPath(ctx, constants.APIPathCustomers, params)
}

// ListWithPath implements siigo.PaginationClient.
func (c *CustomersClient) ListWithPath(ctx context.Context, path string, params *siigo.QueryParams) (*siigo.ListResponse[siigo.Customer], error) {
	if c.httpClient.Closed() {
		return nil, &siigo.ClientClosedError{Op: "list customers"}
	}

	var query url.Values
	if params != nil {
		query = params.ToValues()
	}

	resp, err := c.httpClient.Get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}

	result, err := siigo.DecodeCustomerList(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}

	return result, nil
}

// Get implements siigo.CustomersClient.Get.
func (c *CustomersClient) Get(ctx context.Context, id string) (*siigo.Customer, error) {
	if c.httpClient.Closed() {
		return nil, &siigo.ClientClosedError{Op: "get customer"}
	}

	err := requireID(id)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, customerPath(id), nil)
	if err != nil {
		return nil, fmt.Errorf("getting customer: %w", annotateNotFound(err, "customer", id))
	}

	customer, err := siigo.DecodeCustomer(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("getting customer: %w", err)
	}

	return customer, nil
}

// Create implements siigo.CustomersClient.Create. The payload is validated
// before any request is made.
func (c *CustomersClient) Create(ctx context.Context, request *siigo.CustomerCreateRequest, opts ...siigo.RequestOption) (*siigo.Customer, error) {
	if c.httpClient.Closed() {
		return nil, &siigo.ClientClosedError{Op: "create customer"}
	}

	err := request.Validate()
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(ctx, writeRequest("POST", constants.APIPathCustomers, request, opts))
	if err != nil {
		return nil, fmt.Errorf("creating customer: %w", err)
	}

	customer, err := siigo.DecodeCustomer(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("creating customer: %w", err)
	}

	return customer, nil
}

// Update implements siigo.CustomersClient.Update. Siigo replaces the whole
// customer, so the payload has the shape of a create request.
func (c *CustomersClient) Update(ctx context.Context, id string, request *siigo.CustomerCreateRequest, opts ...siigo.RequestOption) (*siigo.Customer, error) {
	if c.httpClient.Closed() {
		return nil, &siigo.ClientClosedError{Op: "update customer"}
	}

	err := requireID(id)
	if err != nil {
		return nil, err
	}

	err = request.Validate()
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(ctx, writeRequest("PUT", customerPath(id), request, opts))
	if err != nil {
		return nil, fmt.Errorf("updating customer: %w", annotateNotFound(err, "customer", id))
	}

	customer, err := siigo.DecodeCustomer(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("updating customer: %w", err)
	}

	return customer, nil
}

// Delete implements siigo.CustomersClient.Delete.
func (c *CustomersClient) Delete(ctx context.Context, id string) error {
	if c.httpClient.Closed() {
		return &siigo.ClientClosedError{Op: "delete customer"}
	}

	err := requireID(id)
	if err != nil {
		return err
	}

	_, err = c.httpClient.Delete(ctx, customerPath(id))
	if err != nil {
		return fmt.Errorf("deleting customer: %w", annotateNotFound(err, "customer", id))
	}

	return nil
}

func customerPath(id string) string {
	return constants.APIPathCustomers + "/" + url.PathEscape(id)
}

// writeRequest builds a POST or PUT carrying the per-call options.
func writeRequest(method, path string, body interface{}, opts []siigo.RequestOption) *http.Request {
	options := siigo.ApplyRequestOptions(opts...)

	return &http.Request{
		Method:         method,
		Path:           path,
		Body:           body,
		RetrySafe:      options.RetrySafe,
		IdempotencyKey: options.IdempotencyKey,
	}
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return siigo.NewValidationError(siigo.ErrIDRequired, siigo.FieldError{
			Field:   "id",
			Rule:    "required",
			Message: "id is required",
		})
	}

	return nil
}

// annotateNotFound names the missing resource on a 404 from the API.
func annotateNotFound(err error, resource, id string) error {
	var notFound *siigo.NotFoundError
	if errors.As(err, &notFound) && notFound.Resource == "" {
		notFound.Resource = resource
		notFound.ID = id
	}

	return err
}

var _ siigo.CustomersClient = (*CustomersClient)(nil)
