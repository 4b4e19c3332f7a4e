// Package validator checks admin item requests before they reach the record
// store and returns per-field error details.
package validator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/ingestion"
)

const (
	maxNameLength     = 200
	maxCurrencyLength = 10
	maxPlatformLength = 100
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateItemRequest trims the request in place, applies the default
// currency and returns a ValidationError describing every invalid field.
func ValidateItemRequest(req *ingestion.ItemRequest) error {
	errs := make(map[string]string)

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	req.Platform = strings.TrimSpace(req.Platform)

	if req.Name == "" {
		errs["name"] = "name is required"
	} else if utf8.RuneCountInString(req.Name) > maxNameLength {
		errs["name"] = fmt.Sprintf("name must be at most %d characters", maxNameLength)
	}
	if math.IsNaN(req.Price) || math.IsInf(req.Price, 0) || req.Price < 0 {
		errs["price"] = "price must be a non-negative number"
	}
	if req.Currency == "" {
		req.Currency = catalog.DefaultCurrency
	} else if utf8.RuneCountInString(req.Currency) > maxCurrencyLength {
		errs["currency"] = fmt.Sprintf("currency must be at most %d characters", maxCurrencyLength)
	}
	if utf8.RuneCountInString(req.Platform) > maxPlatformLength {
		errs["game_platform"] = fmt.Sprintf("platform must be at most %d characters", maxPlatformLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
