// Package siigotest provides an in-memory Siigo API for tests. It implements
// the authentication, customers and webhooks endpoints, counts every request
// and can inject failures.
package siigotest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

// Default credentials accepted by the server.
const (
	Username  = "api@example.com"
	AccessKey = "test-access-key"
	PartnerID = "siigo-go-tests"
)

// Server is a fake Siigo API backed by memory.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	customers []siigo.Customer
	webhooks  []siigo.Webhook
	tokens    map[string]bool
	calls     map[string]int
	authCalls int
	issued    int
	failures  []int

	pageSize  int
	expiresIn int
	prefix    string
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithCustomers seeds the customer store.
func WithCustomers(customers ...siigo.Customer) Option {
	return func(s *Server) {
		s.customers = append(s.customers, customers...)
	}
}

// WithWebhooks seeds the webhook store.
func WithWebhooks(webhooks ...siigo.Webhook) Option {
	return func(s *Server) {
		s.webhooks = append(s.webhooks, webhooks...)
	}
}

// WithPageSize sets the page size used when the request names none.
func WithPageSize(pageSize int) Option {
	return func(s *Server) {
		s.pageSize = pageSize
	}
}

// WithTokenLifetime sets the expires_in of issued tokens, in seconds.
func WithTokenLifetime(seconds int) Option {
	return func(s *Server) {
		s.expiresIn = seconds
	}
}

// WithPathPrefix serves the API under prefix, as a gateway would, for
// example "/api".
func WithPathPrefix(prefix string) Option {
	return func(s *Server) {
		s.prefix = "/" + strings.Trim(prefix, "/")
	}
}

// BaseURL returns the server URL including its path prefix.
func (s *Server) BaseURL() string {
	return s.URL + s.prefix
}

// NewServer starts a fake Siigo API. Callers must Close it.
func NewServer(opts ...Option) *Server {
	s := &Server{
		tokens:    make(map[string]bool),
		calls:     make(map[string]int),
		pageSize:  siigo.DefaultPaginationOptions().PageSize,
		expiresIn: int((24 * time.Hour).Seconds()),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.Server = httptest.NewServer(s.routes())

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth", s.authenticate)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.count)
		r.Use(s.injectFailures)
		r.Use(s.requireToken)

		r.Get("/customers", s.listCustomers)
		r.Post("/customers", s.createCustomer)
		r.Get("/customers/{id}", s.getCustomer)
		r.Put("/customers/{id}", s.updateCustomer)
		r.Delete("/customers/{id}", s.deleteCustomer)

		r.Get("/webhooks", s.listWebhooks)
		r.Post("/webhooks", s.createWebhook)
		r.Delete("/webhooks/{id}", s.deleteWebhook)
	})

	if s.prefix == "" {
		return r
	}

	root := chi.NewRouter()
	root.Mount(s.prefix, r)

	return root
}

// Config returns a client config pointing at the server with the default
// credentials and short backoff.
func (s *Server) Config() *siigo.Config {
	return &siigo.Config{
		BaseURL:     s.BaseURL(),
		Username:    Username,
		AccessKey:   AccessKey,
		PartnerID:   PartnerID,
		Timeout:     5 * time.Second,
		MaxRetries:  2,
		BackoffBase: time.Millisecond,
		BackoffMax:  5 * time.Millisecond,
	}
}

// AuthCalls returns how many times /auth was called.
func (s *Server) AuthCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.authCalls
}

// Calls returns how many requests were made to "METHOD /path", for example
// "GET /v1/customers" or "DELETE /v1/webhooks/w-1". Failed requests count.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[route]
}

// APICalls returns the number of requests to /v1, excluding /auth.
func (s *Server) APICalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, n := range s.calls {
		total += n
	}

	return total
}

// FailNext makes the next API requests answer with the given statuses, one
// status per request.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = append(s.failures, statuses...)
}

// RevokeTokens invalidates every issued token, as if they had expired
// upstream.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.tokens)
}

// Customers returns a copy of the stored customers.
func (s *Server) Customers() []siigo.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.customers)
}

// Webhooks returns a copy of the stored webhooks.
func (s *Server) Webhooks() []siigo.Webhook {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.webhooks)
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		AccessKey string `json:"access_key"`
	}

	s.mu.Lock()
	s.authCalls++
	s.mu.Unlock()

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")

		return
	}

	if req.Username != Username || req.AccessKey != AccessKey || r.Header.Get("Partner-Id") == "" {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or access key")

		return
	}

	s.mu.Lock()
	s.issued++
	token := "token-" + strconv.Itoa(s.issued)
	s.tokens[token] = true
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"expires_in":   s.expiresIn,
		"token_type":   "Bearer",
		"scope":        "SiigoAPI",
	})
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()

		var status int
		if len(s.failures) > 0 {
			status = s.failures[0]
			s.failures = s.failures[1:]
		}

		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, "injected_failure", http.StatusText(status))

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

		s.mu.Lock()
		valid := ok && s.tokens[token]
		s.mu.Unlock()

		if !valid {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := atoiOr(query.Get("page"), 1)
	pageSize := atoiOr(query.Get("page_size"), s.pageSize)

	if page < 1 || pageSize < 1 {
		writeError(w, http.StatusBadRequest, "invalid_pagination", "page and page_size must be positive")

		return
	}

	s.mu.Lock()

	matched := make([]siigo.Customer, 0, len(s.customers))
	for _, customer := range s.customers {
		if id := query.Get("identification"); id != "" && customer.Identification != id {
			continue
		}

		matched = append(matched, customer)
	}

	s.mu.Unlock()

	start := min((page-1)*pageSize, len(matched))
	end := min(start+pageSize, len(matched))

	links := siigo.PageLinks{
		Self: &siigo.Link{Href: s.pageURL(query, page, pageSize)},
	}

	if end < len(matched) {
		links.Next = &siigo.Link{Href: s.pageURL(query, page+1, pageSize)}
	}

	if page > 1 {
		links.Previous = &siigo.Link{Href: s.pageURL(query, page-1, pageSize)}
	}

	writeJSON(w, http.StatusOK, siigo.ListResponse[siigo.Customer]{
		Pagination: siigo.Pagination{Page: page, PageSize: pageSize, TotalResults: len(matched)},
		Results:    matched[start:end],
		Links:      links,
	})
}

func (s *Server) pageURL(query url.Values, page, pageSize int) string {
	values := url.Values{}
	for key, vals := range query {
		values[key] = slices.Clone(vals)
	}

	values.Set("page", strconv.Itoa(page))
	values.Set("page_size", strconv.Itoa(pageSize))

	return s.BaseURL() + "/v1/customers?" + values.Encode()
}

func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.customerIndex(id)
	if index < 0 {
		writeError(w, http.StatusNotFound, "not_found", "customer not found")

		return
	}

	writeJSON(w, http.StatusOK, s.customers[index])
}

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req siigo.CustomerCreateRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.customers {
		if existing.Identification == req.Identification && existing.BranchOffice == req.BranchOffice {
			writeError(w, http.StatusBadRequest, "already_exists", "customer already exists")

			return
		}
	}

	customer := customerFromRequest(uuid.NewString(), &req, s.now())
	s.customers = append(s.customers, customer)

	writeJSON(w, http.StatusCreated, customer)
}

func (s *Server) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req siigo.CustomerCreateRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.customerIndex(id)
	if index < 0 {
		writeError(w, http.StatusNotFound, "not_found", "customer not found")

		return
	}

	created := s.now()
	if metadata := s.customers[index].Metadata; metadata != nil {
		created = metadata.Created
	}

	customer := customerFromRequest(id, &req, created)
	updated := s.now()
	customer.Metadata.LastUpdated = &updated
	s.customers[index] = customer

	writeJSON(w, http.StatusOK, customer)
}

func (s *Server) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.customerIndex(id)
	if index < 0 {
		writeError(w, http.StatusNotFound, "not_found", "customer not found")

		return
	}

	s.customers = slices.Delete(s.customers, index, index+1)

	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "deleted": true})
}

func (s *Server) customerIndex(id string) int {
	return slices.IndexFunc(s.customers, func(c siigo.Customer) bool { return c.ID == id })
}

func (s *Server) listWebhooks(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	webhooks := slices.Clone(s.webhooks)
	s.mu.Unlock()

	if webhooks == nil {
		webhooks = []siigo.Webhook{}
	}

	writeJSON(w, http.StatusOK, webhooks)
}

func (s *Server) createWebhook(w http.ResponseWriter, r *http.Request) {
	var req siigo.WebhookCreateRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")

		return
	}

	webhook := siigo.Webhook{
		ID:            uuid.NewString(),
		ApplicationID: PartnerID,
		URL:           req.URL,
		Topic:         req.Topic,
		CompanyKey:    "company",
		Active:        req.Active,
		CreatedAt:     s.now().UTC(),
	}

	s.mu.Lock()
	s.webhooks = append(s.webhooks, webhook)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, webhook)
}

func (s *Server) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	index := slices.IndexFunc(s.webhooks, func(wh siigo.Webhook) bool { return wh.ID == id })
	if index < 0 {
		writeError(w, http.StatusNotFound, "not_found", "webhook not found")

		return
	}

	s.webhooks = slices.Delete(s.webhooks, index, index+1)

	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "deleted": true})
}

func customerFromRequest(id string, req *siigo.CustomerCreateRequest, created time.Time) siigo.Customer {
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	contacts := make([]siigo.Contact, 0, len(req.Contacts))
	for _, contact := range req.Contacts {
		contacts = append(contacts, siigo.Contact{
			FirstName: contact.FirstName,
			LastName:  contact.LastName,
			Email:     contact.Email,
			Phone:     contact.Phone,
		})
	}

	return siigo.Customer{
		ID:                     id,
		Type:                   siigo.CustomerTypeCustomer,
		PersonType:             req.PersonType,
		IDType:                 siigo.IDType{Code: req.IDType},
		Identification:         req.Identification,
		BranchOffice:           req.BranchOffice,
		CheckDigit:             req.CheckDigit,
		Name:                   slices.Clone(req.Name),
		CommercialName:         req.CommercialName,
		Active:                 active,
		VATResponsible:         req.VATResponsible,
		FiscalResponsibilities: slices.Clone(req.FiscalResponsibilities),
		Address: &siigo.Address{
			Address: req.Address.Address,
			City: siigo.City{
				CountryCode: req.Address.City.CountryCode,
				StateCode:   siigo.FlexString(req.Address.City.StateCode),
				CityCode:    req.Address.City.CityCode,
			},
			PostalCode: req.Address.PostalCode,
		},
		Phones:       slices.Clone(req.Phones),
		Contacts:     contacts,
		Comments:     req.Comments,
		RelatedUsers: req.RelatedUsers,
		Metadata:     &siigo.CustomerMetadata{Created: created.UTC()},
	}
}

// NewCustomer builds a stored customer fixture.
func NewCustomer(id, identification string, name ...string) siigo.Customer {
	personType := siigo.PersonTypePerson
	if len(name) == 1 {
		personType = siigo.PersonTypeCompany
	}

	return siigo.Customer{
		ID:                     id,
		Type:                   siigo.CustomerTypeCustomer,
		PersonType:             personType,
		IDType:                 siigo.IDType{Code: siigo.IDTypeCC, Name: "Cédula de ciudadanía"},
		Identification:         identification,
		Name:                   name,
		Active:                 true,
		FiscalResponsibilities: []siigo.FiscalResponsibility{{Code: "R-99-PN", Name: "No aplica - Otros"}},
		Phones:                 []siigo.Phone{},
		Contacts:               []siigo.Contact{},
		Metadata:               &siigo.CustomerMetadata{Created: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)},
	}
}

// NewCustomers builds n customer fixtures with ids "c-1" to "c-n".
func NewCustomers(n int) []siigo.Customer {
	customers := make([]siigo.Customer, 0, n)
	for i := 1; i <= n; i++ {
		customers = append(customers, NewCustomer(
			fmt.Sprintf("c-%d", i),
			strconv.Itoa(1000+i),
			"Customer", strconv.Itoa(i),
		))
	}

	return customers
}

// NewCustomerRequest builds a create request that passes validation.
func NewCustomerRequest(identification string) *siigo.CustomerCreateRequest {
	return &siigo.CustomerCreateRequest{
		Type:           siigo.CustomerTypeCustomer,
		PersonType:     siigo.PersonTypePerson,
		IDType:         siigo.IDTypeCC,
		Identification: identification,
		Name:           []string{"Marcos", "Castillo"},
		FiscalResponsibilities: []siigo.FiscalResponsibility{
			{Code: "R-99-PN"},
		},
		Address: siigo.CustomerAddress{
			Address: "Cra. 18 #79A - 42",
			City: siigo.CustomerCity{
				CountryCode: "Co",
				StateCode:   "19",
				CityCode:    "19001",
			},
			PostalCode: "110911",
		},
		Phones: []siigo.Phone{{Indicative: "57", Number: "3006003345"}},
		Contacts: []siigo.CustomerContact{{
			FirstName: "Marcos",
			LastName:  "Castillo",
			Email:     "marcos.castillo@example.com",
		}},
	}
}

func atoiOr(value string, fallback int) int {
	if value == "" {
		return fallback
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}

	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, siigo.ResponseError{
		Status: status,
		Errors: []siigo.APIError{{Code: code, Message: message}},
	})
}
