package utils

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "ZA"

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	if countryCode == "" {
		countryCode = CountryCode
	}
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err
	}
	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}
	return nil
}

// Round2 applies the money rounding rule used across the ledger:
// half away from zero, 2 decimal places (31.005 -> 31.01).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// GenerateAccountNo produces a fallback customer account number when the
// client did not supply one. Collisions are caught by the unique index and
// retried by the caller.
func GenerateAccountNo() string {
	return fmt.Sprintf("CUS-%04d", 1000+rand.Intn(9000))
}

// DefaultPrefix derives a document-number prefix from a store code
// ("falmouth" -> "FAL") when no explicit prefix is configured.
func DefaultPrefix(storeCode string) string {
	code := strings.ToUpper(strings.TrimSpace(storeCode))
	if len(code) > 3 {
		code = code[:3]
	}
	return code
}

func DereferencePtr[T any](ptr *T) T {
	var zero T
	if ptr == nil {
		return zero
	}
	return *ptr
}

// ParseDate accepts the two timestamp shapes clients send: plain dates
// ("2006-01-02") and full RFC3339.
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}
