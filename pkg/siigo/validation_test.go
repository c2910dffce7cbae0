package siigo_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

func validCustomerRequest() *siigo.CustomerCreateRequest {
	return &siigo.CustomerCreateRequest{
		Type:           siigo.CustomerTypeCustomer,
		PersonType:     siigo.PersonTypePerson,
		IDType:         siigo.IDTypeCC,
		Identification: "13832081",
		Name:           []string{"Marcos", "Castillo"},
		FiscalResponsibilities: []siigo.FiscalResponsibility{
			{Code: "R-99-PN"},
		},
		Address: siigo.CustomerAddress{
			Address: "Cra. 18 #79A - 42",
			City:    siigo.CustomerCity{CountryCode: "Co", StateCode: "19", CityCode: "19001"},
		},
		Phones: []siigo.Phone{{Number: "3006003345"}},
		Contacts: []siigo.CustomerContact{{
			FirstName: "Marcos",
			LastName:  "Castillo",
			Email:     "marcos.castillo@contacto.com",
		}},
	}
}

func TestCustomerCreateRequest_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid person", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, validCustomerRequest().Validate())
	})

	t.Run("valid company", func(t *testing.T) {
		t.Parallel()

		req := validCustomerRequest()
		req.PersonType = siigo.PersonTypeCompany
		req.IDType = siigo.IDTypeNIT
		req.Name = []string{"Siigo S.A.S."}
		req.CheckDigit = "4"

		require.NoError(t, req.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*siigo.CustomerCreateRequest)
		field  string
		rule   string
	}{
		{name: "missing person type", mutate: func(r *siigo.CustomerCreateRequest) { r.PersonType = "" }, field: "person_type", rule: "required"},
		{name: "unknown person type", mutate: func(r *siigo.CustomerCreateRequest) { r.PersonType = "Robot" }, field: "person_type", rule: "oneof"},
		{name: "non numeric id type", mutate: func(r *siigo.CustomerCreateRequest) { r.IDType = "CC" }, field: "id_type", rule: "numeric"},
		{name: "missing identification", mutate: func(r *siigo.CustomerCreateRequest) { r.Identification = "" }, field: "identification", rule: "required"},
		{name: "person with one name", mutate: func(r *siigo.CustomerCreateRequest) { r.Name = []string{"Marcos"} }, field: "name", rule: "person_name"},
		{name: "too many names", mutate: func(r *siigo.CustomerCreateRequest) { r.Name = []string{"a", "b", "c"} }, field: "name", rule: "max"},
		{name: "blank name part", mutate: func(r *siigo.CustomerCreateRequest) { r.Name = []string{"Marcos", ""} }, field: "name[1]", rule: "required"},
		{name: "wrong type", mutate: func(r *siigo.CustomerCreateRequest) { r.Type = "Supplier" }, field: "type", rule: "eq"},
		{name: "negative branch office", mutate: func(r *siigo.CustomerCreateRequest) { r.BranchOffice = -1 }, field: "branch_office", rule: "gte"},
		{name: "no fiscal responsibilities", mutate: func(r *siigo.CustomerCreateRequest) { r.FiscalResponsibilities = nil }, field: "fiscal_responsibilities", rule: "required"},
		{name: "empty fiscal code", mutate: func(r *siigo.CustomerCreateRequest) { r.FiscalResponsibilities[0].Code = "" }, field: "fiscal_responsibilities[0].code", rule: "required"},
		{name: "missing city code", mutate: func(r *siigo.CustomerCreateRequest) { r.Address.City.CityCode = "" }, field: "address.city.city_code", rule: "required"},
		{name: "no contacts", mutate: func(r *siigo.CustomerCreateRequest) { r.Contacts = []siigo.CustomerContact{} }, field: "contacts", rule: "min"},
		{name: "bad email", mutate: func(r *siigo.CustomerCreateRequest) { r.Contacts[0].Email = "nope" }, field: "contacts[0].email", rule: "email"},
		{name: "long check digit", mutate: func(r *siigo.CustomerCreateRequest) { r.CheckDigit = "12" }, field: "check_digit", rule: "len"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := validCustomerRequest()
			tt.mutate(req)

			err := req.Validate()
			require.Error(t, err)

			var validationErr *siigo.ValidationError
			require.ErrorAs(t, err, &validationErr)

			found := false

			for _, field := range validationErr.Fields {
				if field.Field == tt.field && field.Rule == tt.rule {
					found = true

					assert.NotEmpty(t, field.Message)
				}
			}

			assert.True(t, found, "expected %s/%s in %+v", tt.field, tt.rule, validationErr.Fields)
		})
	}

	t.Run("nil request", func(t *testing.T) {
		t.Parallel()

		var req *siigo.CustomerCreateRequest

		err := req.Validate()
		require.ErrorIs(t, err, siigo.ErrPayloadRequired)
		assert.True(t, siigo.IsValidation(err))
	})
}

func TestNewWebhookCreateRequest(t *testing.T) {
	t.Parallel()

	req, err := siigo.NewWebhookCreateRequest(siigo.WebhookProductsUpdate, "https://example.com/hooks/products")
	require.NoError(t, err)
	assert.Equal(t, "public.siigoapi.products.update", req.Topic)
	assert.True(t, req.Active)
	require.NoError(t, req.Validate())

	payload, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"topic":"public.siigoapi.products.update","url":"https://example.com/hooks/products","active":true}`, string(payload))

	_, err = siigo.NewWebhookCreateRequest("ORDERS", "https://example.com")
	require.ErrorIs(t, err, siigo.ErrInvalidWebhookType)

	_, err = siigo.NewWebhookCreateRequest(siigo.WebhookStockUpdate, "example.com/hook")
	require.ErrorIs(t, err, siigo.ErrInvalidWebhookURL)

	var validationErr *siigo.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Fields, 1)
	assert.Equal(t, "url", validationErr.Fields[0].Field)
}

func TestWebhookTypes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []siigo.WebhookType{
		siigo.WebhookProductsCreate,
		siigo.WebhookProductsUpdate,
		siigo.WebhookStockUpdate,
	}, siigo.WebhookTypes())

	parsed, err := siigo.ParseWebhookType(" stock_update ")
	require.NoError(t, err)
	assert.Equal(t, siigo.WebhookStockUpdate, parsed)

	_, err = siigo.ParseWebhookType("orders")
	require.ErrorIs(t, err, siigo.ErrInvalidWebhookType)
	assert.Contains(t, err.Error(), "PRODUCTS_CREATE")
}

func TestDecodeCustomer(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		customer, err := siigo.DecodeCustomer([]byte(`{
			"id": "6b6c9b4f",
			"type": "Customer",
			"person_type": "Company",
			"id_type": {"code": "31", "name": "NIT"},
			"identification": "900123456",
			"branch_office": 0,
			"name": ["Siigo S.A.S."],
			"active": true,
			"vat_responsible": true,
			"address": {"address": "Calle 1", "city": {"country_code": "Co", "state_code": "11", "city_code": "11001"}},
			"metadata": {"created": "2020-06-15T03:33:45Z", "last_updated": null}
		}`))
		require.NoError(t, err)
		assert.Equal(t, "6b6c9b4f", customer.ID)
		assert.Equal(t, siigo.IDTypeNIT, customer.IDType.Code)
		assert.Equal(t, "Siigo S.A.S.", customer.DisplayName())
		assert.Equal(t, siigo.FlexString("11"), customer.Address.City.StateCode)
		assert.Nil(t, customer.Metadata.LastUpdated)
	})

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "empty body", body: "", message: "unexpected empty response body"},
		{name: "not JSON", body: "<html/>", message: "parsing JSON"},
		{name: "missing id", body: `{"type":"Customer","person_type":"Person","id_type":{"code":"13"},"identification":"1","branch_office":0,"active":true,"vat_responsible":false}`, message: "id"},
		{name: "missing several", body: `{"id":"x"}`, message: "missing required fields"},
		{name: "wrong type", body: `{"id":1}`, message: "parsing JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := siigo.DecodeCustomer([]byte(tt.body))
			require.Error(t, err)

			var decodingErr *siigo.DecodingError
			require.ErrorAs(t, err, &decodingErr)
			assert.Equal(t, "customer", decodingErr.Target)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestDecodeWebhooks(t *testing.T) {
	t.Parallel()

	webhooks, err := siigo.DecodeWebhooks([]byte(`[
		{"id":"w-1","application_id":"app","url":"https://example.com","topic":"public.siigoapi.products.create","company_key":"k","active":true,"created_at":"2024-03-01T12:00:00Z"}
	]`))
	require.NoError(t, err)
	require.Len(t, webhooks, 1)
	assert.Equal(t, "w-1", webhooks[0].ID)
	assert.Equal(t, 2024, webhooks[0].CreatedAt.Year())

	_, err = siigo.DecodeWebhooks([]byte(`[{"id":"w-1","url":"https://example.com"}]`))

	var decodingErr *siigo.DecodingError
	require.ErrorAs(t, err, &decodingErr)
	assert.Equal(t, "webhook list item 0", decodingErr.Target)

	_, err = siigo.DecodeWebhook([]byte(`{"id":"w-1","url":"https://example.com","topic":"t"}`))
	require.ErrorAs(t, err, &decodingErr)
	assert.Contains(t, err.Error(), "active")
}

func TestListResponse_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var results siigo.ListResponse[siigo.Link]

	err := json.Unmarshal([]byte(`{"pagination":{"page":1,"page_size":2,"total_results":3},"results":[{"href":"a"},{"href":"b"}],"_links":{"next":{"href":"https://api.siigo.com/v1/customers?page=2"}}}`), &results)
	require.NoError(t, err)
	assert.Len(t, results.Results, 2)
	assert.Equal(t, 3, results.Pagination.TotalResults)
	assert.Equal(t, "https://api.siigo.com/v1/customers?page=2", results.NextCursor())

	var data siigo.ListResponse[siigo.Link]

	err = json.Unmarshal([]byte(`{"data":[{"href":"a"}]}`), &data)
	require.NoError(t, err)
	assert.Len(t, data.Results, 1)
	assert.Empty(t, data.NextCursor())

	err = json.Unmarshal([]byte(`[]`), &data)
	require.Error(t, err)
}

func TestFlexString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected siigo.FlexString
		wantErr  bool
	}{
		{input: `"05"`, expected: "05"},
		{input: `5`, expected: "5"},
		{input: `11001`, expected: "11001"},
		{input: `null`, expected: ""},
		{input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			var value siigo.FlexString

			err := json.Unmarshal([]byte(tt.input), &value)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, value)
		})
	}
}

func TestIDTypeCode(t *testing.T) {
	t.Parallel()

	code, err := siigo.IDTypeCode("cc")
	require.NoError(t, err)
	assert.Equal(t, "13", code)

	code, err = siigo.IDTypeCode("NIT")
	require.NoError(t, err)
	assert.Equal(t, "31", code)

	_, err = siigo.IDTypeCode("passport")
	require.ErrorIs(t, err, siigo.ErrUnknownIDType)
}

func TestCustomer_DisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Marcos Castillo", (&siigo.Customer{Name: []string{"Marcos", "Castillo"}}).DisplayName())
	assert.Equal(t, "Acme", (&siigo.Customer{Name: []string{""}, CommercialName: "Acme"}).DisplayName())
}
