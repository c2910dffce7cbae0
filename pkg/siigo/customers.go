package siigo

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Identification type codes accepted by Siigo.
const (
	IDTypeCC  = "13"
	IDTypeNIT = "31"
)

// Person types.
const (
	PersonTypePerson  = "Person"
	PersonTypeCompany = "Company"
)

// CustomerTypeCustomer is the only third-party type this client manages.
const CustomerTypeCustomer = "Customer"

// IDTypeCode returns the Siigo code for an identification type name such as
// "CC" or "NIT".
func IDTypeCode(name string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "CC":
		return IDTypeCC, nil
	case "NIT":
		return IDTypeNIT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownIDType, name)
	}
}

// IDType identifies the kind of identification document.
type IDType struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// FiscalResponsibility is a DIAN fiscal responsibility code.
type FiscalResponsibility struct {
	Code string `json:"code"           yaml:"code"           validate:"required"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// City locates an address.
type City struct {
	CountryCode string     `json:"country_code,omitempty" yaml:"country_code,omitempty"`
	CountryName string     `json:"country_name,omitempty" yaml:"country_name,omitempty"`
	StateCode   FlexString `json:"state_code,omitempty"   yaml:"state_code,omitempty"`
	StateName   string     `json:"state_name,omitempty"   yaml:"state_name,omitempty"`
	CityCode    string     `json:"city_code,omitempty"    yaml:"city_code,omitempty"`
	CityName    string     `json:"city_name,omitempty"    yaml:"city_name,omitempty"`
}

// Address is the postal address of a customer.
type Address struct {
	Address    string `json:"address"               yaml:"address"`
	City       City   `json:"city"                  yaml:"city"`
	PostalCode string `json:"postal_code,omitempty" yaml:"postal_code,omitempty"`
}

// Phone is a phone number.
type Phone struct {
	Indicative string `json:"indicative,omitempty" yaml:"indicative,omitempty"`
	Number     string `json:"number,omitempty"     yaml:"number,omitempty"`
	Extension  string `json:"extension,omitempty"  yaml:"extension,omitempty"`
}

// Contact is a person reachable at the customer.
type Contact struct {
	FirstName string `json:"first_name"      yaml:"first_name"`
	LastName  string `json:"last_name"       yaml:"last_name"`
	Email     string `json:"email"           yaml:"email"`
	Phone     *Phone `json:"phone,omitempty" yaml:"phone,omitempty"`
}

// RelatedUsers links a customer to Siigo users.
type RelatedUsers struct {
	SellerID    int `json:"seller_id,omitempty"    yaml:"seller_id,omitempty"`
	CollectorID int `json:"collector_id,omitempty" yaml:"collector_id,omitempty"`
}

// CustomerMetadata holds audit timestamps.
type CustomerMetadata struct {
	Created     time.Time  `json:"created"                yaml:"created"`
	LastUpdated *time.Time `json:"last_updated,omitempty" yaml:"last_updated,omitempty"`
}

// Customer is a third party registered in Siigo.
type Customer struct {
	ID                     string                 `json:"id"                         yaml:"id"`
	Type                   string                 `json:"type"                       yaml:"type"`
	PersonType             string                 `json:"person_type"                yaml:"person_type"`
	IDType                 IDType                 `json:"id_type"                    yaml:"id_type"`
	Identification         string                 `json:"identification"             yaml:"identification"`
	BranchOffice           int                    `json:"branch_office"              yaml:"branch_office"`
	CheckDigit             string                 `json:"check_digit,omitempty"      yaml:"check_digit,omitempty"`
	Name                   []string               `json:"name,omitempty"             yaml:"name,omitempty"`
	CommercialName         string                 `json:"commercial_name,omitempty"  yaml:"commercial_name,omitempty"`
	Active                 bool                   `json:"active"                     yaml:"active"`
	VATResponsible         bool                   `json:"vat_responsible"            yaml:"vat_responsible"`
	FiscalResponsibilities []FiscalResponsibility `json:"fiscal_responsibilities"    yaml:"fiscal_responsibilities"`
	Address                *Address               `json:"address,omitempty"          yaml:"address,omitempty"`
	Phones                 []Phone                `json:"phones"                     yaml:"phones"`
	Contacts               []Contact              `json:"contacts"                   yaml:"contacts"`
	Comments               string                 `json:"comments,omitempty"         yaml:"comments,omitempty"`
	RelatedUsers           *RelatedUsers          `json:"related_users,omitempty"    yaml:"related_users,omitempty"`
	Metadata               *CustomerMetadata      `json:"metadata,omitempty"         yaml:"metadata,omitempty"`
}

// DisplayName joins the name parts, falling back to the commercial name.
func (c *Customer) DisplayName() string {
	parts := make([]string, 0, len(c.Name))

	for _, part := range c.Name {
		if part != "" {
			parts = append(parts, part)
		}
	}

	if len(parts) == 0 {
		return c.CommercialName
	}

	return strings.Join(parts, " ")
}

// CustomerAddress is the address block of a create request.
type CustomerAddress struct {
	Address    string       `json:"address"               validate:"required,max=100"`
	City       CustomerCity `json:"city"                  validate:"required"`
	PostalCode string       `json:"postal_code,omitempty" validate:"omitempty,max=10"`
}

// CustomerCity is the city block of a create request; all codes are required.
type CustomerCity struct {
	CountryCode string `json:"country_code" validate:"required"`
	StateCode   string `json:"state_code"   validate:"required"`
	CityCode    string `json:"city_code"    validate:"required"`
}

// CustomerContact is a contact of a create request.
type CustomerContact struct {
	FirstName string `json:"first_name"      validate:"required,max=50"`
	LastName  string `json:"last_name"       validate:"required,max=50"`
	Email     string `json:"email"           validate:"required,email,max=100"`
	Phone     *Phone `json:"phone,omitempty"`
}

// CustomerCreateRequest is the payload of a customer creation or update.
type CustomerCreateRequest struct {
	Type                   string                 `json:"type,omitempty"           validate:"omitempty,eq=Customer"`
	PersonType             string                 `json:"person_type"              validate:"required,oneof=Person Company"`
	IDType                 string                 `json:"id_type"                  validate:"required,numeric"`
	Identification         string                 `json:"identification"           validate:"required,max=50"`
	CheckDigit             string                 `json:"check_digit,omitempty"    validate:"omitempty,numeric,len=1"`
	Name                   []string               `json:"name"                     validate:"required,min=1,max=2,dive,required,max=100"`
	CommercialName         string                 `json:"commercial_name,omitempty" validate:"omitempty,max=100"`
	BranchOffice           int                    `json:"branch_office"            validate:"gte=0"`
	Active                 *bool                  `json:"active,omitempty"`
	VATResponsible         bool                   `json:"vat_responsible"`
	FiscalResponsibilities []FiscalResponsibility `json:"fiscal_responsibilities"  validate:"required,min=1,dive"`
	Address                CustomerAddress        `json:"address"                  validate:"required"`
	Phones                 []Phone                `json:"phones"                   validate:"required,min=1,dive"`
	Contacts               []CustomerContact      `json:"contacts"                 validate:"required,min=1,dive"`
	Comments               string                 `json:"comments,omitempty"       validate:"omitempty,max=4000"`
	RelatedUsers           *RelatedUsers          `json:"related_users,omitempty"`
}

// CustomerFilter narrows a customer listing. Empty fields are not sent.
type CustomerFilter struct {
	Identification string
	BranchOffice   *int
	CreatedStart   time.Time
	CreatedEnd     time.Time
	UpdatedStart   time.Time
	UpdatedEnd     time.Time
	PageSize       int
}

// ToQueryParams converts the filter to query parameters.
func (f *CustomerFilter) ToQueryParams() *QueryParams {
	params := NewQueryParams()
	if f == nil {
		return params
	}

	if f.Identification != "" {
		params.WithFilter("identification", f.Identification)
	}

	if f.BranchOffice != nil {
		params.WithFilter("branch_office", strconv.Itoa(*f.BranchOffice))
	}

	addDate := func(key string, value time.Time) {
		if !value.IsZero() {
			params.WithFilter(key, value.Format(time.DateOnly))
		}
	}

	addDate("created_start", f.CreatedStart)
	addDate("created_end", f.CreatedEnd)
	addDate("updated_start", f.UpdatedStart)
	addDate("updated_end", f.UpdatedEnd)

	if f.PageSize > 0 {
		params.WithPageSize(f.PageSize)
	}

	return params
}
