package siigo

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}

			if name == "" {
				return field.Name
			}

			return name
		})

		validate.RegisterStructValidation(customerNameRule, CustomerCreateRequest{})
	})

	return validate
}

// customerNameRule requires two name parts (first and last names) for a
// person and one (the business name) for a company.
func customerNameRule(sl validator.StructLevel) {
	req, ok := sl.Current().Interface().(CustomerCreateRequest)
	if !ok {
		return
	}

	switch req.PersonType {
	case PersonTypePerson:
		if len(req.Name) != 2 {
			sl.ReportError(req.Name, "name", "Name", "person_name", "")
		}
	case PersonTypeCompany:
		if len(req.Name) != 1 {
			sl.ReportError(req.Name, "name", "Name", "company_name", "")
		}
	}
}

// Validate checks the request locally. Failures are returned as a
// *ValidationError and never reach the network.
func (r *CustomerCreateRequest) Validate() error {
	if r == nil {
		return NewValidationError(ErrPayloadRequired)
	}

	return validateStruct(r)
}

// Validate checks the webhook request locally.
func (r *WebhookCreateRequest) Validate() error {
	if r == nil {
		return NewValidationError(ErrPayloadRequired)
	}

	return validateStruct(r)
}

func validateStruct(v interface{}) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return NewValidationError(err)
	}

	fields := make([]FieldError, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields = append(fields, toFieldError(fieldErr))
	}

	return NewValidationError(err, fields...)
}

func toFieldError(fieldErr validator.FieldError) FieldError {
	field := fieldErr.Namespace()
	if _, rest, found := strings.Cut(field, "."); found {
		field = rest
	}

	var message string

	switch fieldErr.Tag() {
	case "required":
		message = field + " is required"
	case "person_name":
		message = field + " must hold first and last names for a person"
	case "company_name":
		message = field + " must hold a single business name for a company"
	case "oneof":
		message = fmt.Sprintf("%s must be one of [%s]", field, fieldErr.Param())
	case "min", "max", "len":
		message = fmt.Sprintf("%s must satisfy %s=%s", field, fieldErr.Tag(), fieldErr.Param())
	default:
		message = fmt.Sprintf("%s is not a valid %s", field, fieldErr.Tag())
	}

	return FieldError{Field: field, Rule: fieldErr.Tag(), Message: message}
}

// customerRequired mirrors the fields a decoded customer must carry. Pointers
// distinguish a missing key from a zero value.
type customerRequired struct {
	ID             *string `json:"id"              validate:"required"`
	Type           *string `json:"type"            validate:"required"`
	PersonType     *string `json:"person_type"     validate:"required"`
	IDType         *IDType `json:"id_type"         validate:"required"`
	Identification *string `json:"identification"  validate:"required"`
	BranchOffice   *int    `json:"branch_office"   validate:"required"`
	Active         *bool   `json:"active"          validate:"required"`
	VATResponsible *bool   `json:"vat_responsible" validate:"required"`
}

type webhookRequired struct {
	ID     *string `json:"id"     validate:"required"`
	URL    *string `json:"url"    validate:"required"`
	Topic  *string `json:"topic"  validate:"required"`
	Active *bool   `json:"active" validate:"required"`
}

// DecodeCustomer decodes and checks a single customer.
func DecodeCustomer(data []byte) (*Customer, error) {
	var customer Customer

	err := decodeChecked(data, &customer, &customerRequired{})
	if err != nil {
		return nil, &DecodingError{Target: "customer", Body: data, Err: err}
	}

	return &customer, nil
}

// DecodeCustomerList decodes a page of customers and checks every item.
func DecodeCustomerList(data []byte) (*ListResponse[Customer], error) {
	var raw ListResponse[json.RawMessage]

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, &DecodingError{Target: "customer list", Body: data, Err: err}
	}

	list := &ListResponse[Customer]{
		Pagination: raw.Pagination,
		Links:      raw.Links,
		Results:    make([]Customer, 0, len(raw.Results)),
	}

	for i, item := range raw.Results {
		var customer Customer

		err = decodeChecked(item, &customer, &customerRequired{})
		if err != nil {
			return nil, &DecodingError{Target: fmt.Sprintf("customer list item %d", i), Body: data, Err: err}
		}

		list.Results = append(list.Results, customer)
	}

	return list, nil
}

// DecodeWebhook decodes and checks a single webhook.
func DecodeWebhook(data []byte) (*Webhook, error) {
	var webhook Webhook

	err := decodeChecked(data, &webhook, &webhookRequired{})
	if err != nil {
		return nil, &DecodingError{Target: "webhook", Body: data, Err: err}
	}

	return &webhook, nil
}

// DecodeWebhooks decodes the bare array the webhooks endpoint returns.
func DecodeWebhooks(data []byte) ([]Webhook, error) {
	var raw []json.RawMessage

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, &DecodingError{Target: "webhook list", Body: data, Err: err}
	}

	webhooks := make([]Webhook, 0, len(raw))

	for i, item := range raw {
		var webhook Webhook

		err = decodeChecked(item, &webhook, &webhookRequired{})
		if err != nil {
			return nil, &DecodingError{Target: fmt.Sprintf("webhook list item %d", i), Body: data, Err: err}
		}

		webhooks = append(webhooks, webhook)
	}

	return webhooks, nil
}

func decodeChecked(data []byte, target, required interface{}) error {
	if len(data) == 0 {
		return ErrUnexpectedEmptyBody
	}

	err := json.Unmarshal(data, required)
	if err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}

	err = getValidator().Struct(required)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			missing := make([]string, 0, len(validationErrors))
			for _, fieldErr := range validationErrors {
				missing = append(missing, fieldErr.Field())
			}

			return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")) //nolint:err113 // field list is dynamic
		}

		return fmt.Errorf("checking required fields: %w", err)
	}

	err = json.Unmarshal(data, target)
	if err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}

	return nil
}
