package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Address is an immutable postal destination for a shipment.
// Recipient name, first address line, city and country code are required.
type Address struct {
	name        string
	line1       string
	line2       string
	city        string
	province    string
	postalCode  string
	countryCode string
	phone       string
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithLine2 sets the second address line
func WithLine2(line2 string) AddressOption {
	return func(a *Address) {
		a.line2 = strings.TrimSpace(line2)
	}
}

// WithProvince sets the province or state
func WithProvince(province string) AddressOption {
	return func(a *Address) {
		a.province = strings.TrimSpace(province)
	}
}

// WithPostalCode sets the postal code
func WithPostalCode(postalCode string) AddressOption {
	return func(a *Address) {
		a.postalCode = strings.TrimSpace(postalCode)
	}
}

// WithPhone sets the recipient phone number
func WithPhone(phone string) AddressOption {
	return func(a *Address) {
		a.phone = strings.TrimSpace(phone)
	}
}

// NewAddress creates a validated Address
func NewAddress(name, line1, city, countryCode string, opts ...AddressOption) (Address, error) {
	addr := Address{
		name:        strings.TrimSpace(name),
		line1:       strings.TrimSpace(line1),
		city:        strings.TrimSpace(city),
		countryCode: strings.ToUpper(strings.TrimSpace(countryCode)),
	}
	for _, opt := range opts {
		opt(&addr)
	}

	switch {
	case addr.name == "":
		return Address{}, errors.New("recipient name is required")
	case addr.line1 == "":
		return Address{}, errors.New("address line is required")
	case addr.city == "":
		return Address{}, errors.New("city is required")
	case len(addr.countryCode) != 2:
		return Address{}, fmt.Errorf("country code must be ISO 3166-1 alpha-2, got %q", addr.countryCode)
	case len(addr.line1) > 255 || len(addr.line2) > 255:
		return Address{}, errors.New("address line cannot exceed 255 characters")
	}
	return addr, nil
}

// EmptyAddress returns an empty address
func EmptyAddress() Address {
	return Address{}
}

func (a Address) Name() string { return a.name }
func (a Address) Line1() string { return a.line1 }
func (a Address) Line2() string { return a.line2 }
func (a Address) City() string { return a.city }
func (a Address) Province() string { return a.province }
func (a Address) PostalCode() string { return a.postalCode }
func (a Address) CountryCode() string { return a.countryCode }
func (a Address) Phone() string { return a.phone }

// IsEmpty reports whether no destination is set
func (a Address) IsEmpty() bool {
	return a.name == "" && a.line1 == "" && a.city == ""
}

// String renders the address on one line
func (a Address) String() string {
	if a.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, 7)
	for _, p := range []string{a.name, a.line1, a.line2, a.city, a.province, a.postalCode, a.countryCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Equals returns true if both addresses are equal
func (a Address) Equals(other Address) bool {
	return a == other
}

// AddressDTO is the serialized form used for JSON payloads and JSON columns
type AddressDTO struct {
	Name        string `json:"name"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	Province    string `json:"province,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone,omitempty"`
}

// ToDTO converts Address to AddressDTO
func (a Address) ToDTO() AddressDTO {
	return AddressDTO{
		Name:        a.name,
		Line1:       a.line1,
		Line2:       a.line2,
		City:        a.city,
		Province:    a.province,
		PostalCode:  a.postalCode,
		CountryCode: a.countryCode,
		Phone:       a.phone,
	}
}

// ToAddress validates the DTO and converts it to an Address.
// An all-empty DTO yields EmptyAddress.
func (d AddressDTO) ToAddress() (Address, error) {
	if d.Name == "" && d.Line1 == "" && d.City == "" {
		return EmptyAddress(), nil
	}
	return NewAddress(d.Name, d.Line1, d.City, d.CountryCode,
		WithLine2(d.Line2), WithProvince(d.Province), WithPostalCode(d.PostalCode), WithPhone(d.Phone))
}

// MarshalJSON implements json.Marshaler
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.ToDTO())
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Address) UnmarshalJSON(data []byte) error {
	var dto AddressDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	addr, err := dto.ToAddress()
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// Value implements driver.Valuer so the address can live in a JSON column
func (a Address) Value() (driver.Value, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	b, err := json.Marshal(a.ToDTO())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *Address) Scan(value any) error {
	if value == nil {
		*a = EmptyAddress()
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}
	if len(data) == 0 {
		*a = EmptyAddress()
		return nil
	}
	return a.UnmarshalJSON(data)
}
