package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ShippingAddress is the snapshot persisted on an order at checkout time.
// Stored as jsonb so later edits to the user's saved addresses never rewrite
// order history.
type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Validate enforces the minimum fields checkout requires.
func (a ShippingAddress) Validate() error {
	if strings.TrimSpace(a.FullName) == "" {
		return fmt.Errorf("shipping address: missing full_name")
	}
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("shipping address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("shipping address: missing city")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return fmt.Errorf("shipping address: missing postal_code")
	}
	return nil
}

// Value marshals the address into a jsonb literal.
func (a ShippingAddress) Value() (driver.Value, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("shipping address: marshal %w", err)
	}
	return string(raw), nil
}

// Scan decodes the jsonb column back into the struct.
func (a *ShippingAddress) Scan(value interface{}) error {
	if value == nil {
		*a = ShippingAddress{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("shipping address: unsupported scan type %T", value)
	}

	return json.Unmarshal(raw, a)
}
