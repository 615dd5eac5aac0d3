package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxProductNameLength bounds Product.Name in characters.
const MaxProductNameLength = 200

// maxPrice is the largest value NUMERIC(12,2) can hold.
var maxPrice = decimal.RequireFromString("9999999999.99")

// Product is a listing owned by one seller.
type Product struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	SellerID      string    `json:"seller_id"`
	Name          string    `json:"name"`
	Price         Money     `json:"price"`
	Description   string    `json:"description"`
	AIDescription *string   `json:"ai_description"`
	ImageURL      *string   `json:"image_url"`
	Language      *string   `json:"language"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Money is a stored price. It is written to JSON as a string with exactly
// two decimals, so 499 is echoed as "499.00".
type Money struct {
	decimal.Decimal
}

// NewMoney wraps d.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.StringFixed(2))
}

// ProductFields are the seller-editable columns of a product.
type ProductFields struct {
	Name        string
	Price       decimal.Decimal
	Description string
	Language    *string
}

// ParsePrice parses a price as entered by a seller. Leading and trailing
// whitespace is ignored.
func ParsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("price is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price must be a number")
	}
	if err := ValidatePrice(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidatePrice checks that d is non-negative, has at most two decimal
// places and fits the column.
func ValidatePrice(d decimal.Decimal) error {
	switch {
	case d.IsNegative():
		return fmt.Errorf("price must not be negative")
	case d.Exponent() < -2 && !d.Equal(d.Round(2)):
		return fmt.Errorf("price must have at most 2 decimal places")
	case d.GreaterThan(maxPrice):
		return fmt.Errorf("price must not exceed %s", maxPrice.StringFixed(2))
	}
	return nil
}

// Validate checks the editable fields and normalizes the name.
func (f *ProductFields) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if n := len([]rune(f.Name)); n > MaxProductNameLength {
		return fmt.Errorf("name must be at most %d characters", MaxProductNameLength)
	}
	if err := ValidatePrice(f.Price); err != nil {
		return err
	}
	if f.Language != nil {
		lang := strings.TrimSpace(*f.Language)
		if lang == "" {
			f.Language = nil
		} else {
			f.Language = &lang
		}
	}
	return nil
}
