// Package validation collects field errors as codes that i18n can
// translate.
package validation

import (
	"net/mail"
	"slices"
	"strings"
	"unicode/utf8"
)

// Violations maps a field name to an error code. The first violation of a
// field wins.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless the field already has a violation.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func RequiredID(field string, id uint, v Violations) {
	if id == 0 {
		v.Add(field, "required")
	}
}

func MaxLen(field, value string, max int, v Violations) {
	if utf8.RuneCountInString(value) > max {
		v.Add(field, "too_long")
	}
}

// Email accepts an empty value; combine with Required when mandatory.
func Email(field, value string, v Violations) {
	if value == "" {
		return
	}
	if addr, err := mail.ParseAddress(value); err != nil || addr.Address != value {
		v.Add(field, "invalid_email")
	}
}

// OneOf checks value against allowed.
func OneOf[S ~string](field string, value S, allowed []S, v Violations) {
	if !slices.Contains(allowed, value) {
		v.Add(field, "not_allowed")
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v.Add(field, "must_be_positive")
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v.Add(field, "must_be_positive")
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v.Add(field, "out_of_range")
	}
}
