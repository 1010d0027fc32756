package types

import (
	"database/sql/driver"
	"strings"
)

// Address is a postal address stored as a JSON document. Shipping addresses
// on orders and store billing addresses on shipments share this shape.
type Address struct {
	Name         string `json:"name,omitempty"`
	Company      string `json:"company,omitempty"`
	Address1     string `json:"address1,omitempty"`
	Address2     string `json:"address2,omitempty"`
	City         string `json:"city,omitempty"`
	Province     string `json:"province,omitempty"`
	ProvinceCode string `json:"province_code,omitempty"`
	Country      string `json:"country,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
	Zip          string `json:"zip,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// IsZero reports whether no address line, city or country is set.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Address1) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.Country) == "" &&
		strings.TrimSpace(a.CountryCode) == ""
}

// Value marshals the address into JSON.
func (a Address) Value() (driver.Value, error) {
	return jsonValue(a)
}

// Scan decodes a JSON column into the address.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	return scanJSON(value, a)
}
