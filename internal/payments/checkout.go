package payments

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Package is a purchasable offering on the marketing site.
type Package string

const (
	PackageFoundation Package = "foundation"
	PackageGrowth     Package = "growth"
)

const (
	maxEmailLen = 255
	maxNameLen  = 100
)

var (
	// ErrInvalidPackage is returned for an unknown or missing packageType.
	ErrInvalidPackage = errors.New("payments: invalid package type")
	// ErrInvalidEmail is returned when a supplied email fails the format check.
	ErrInvalidEmail = errors.New("payments: invalid email format")
	// ErrInvalidName is returned when name is not a string.
	ErrInvalidName = errors.New("payments: invalid name format")
	// ErrInvalidRequest is returned when the body is not a JSON object.
	ErrInvalidRequest = errors.New("payments: invalid request")
)

// clientMessage maps validation errors onto the text shown to the browser.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPackage):
		return "Invalid package type"
	case errors.Is(err, ErrInvalidEmail):
		return "Invalid email format"
	case errors.Is(err, ErrInvalidName):
		return "Invalid name format"
	default:
		return "Invalid request"
	}
}

var checkoutEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Prices maps packages onto Stripe price IDs.
type Prices struct {
	Foundation string
	Growth     string
}

// For returns the price ID for p.
func (p Prices) For(pkg Package) string {
	switch pkg {
	case PackageFoundation:
		return p.Foundation
	case PackageGrowth:
		return p.Growth
	}
	return ""
}

// Mode reports the Stripe Checkout mode for a package: the growth plan is a
// recurring subscription, everything else is a one-time payment.
func (pkg Package) Mode() string {
	if pkg == PackageGrowth {
		return "subscription"
	}
	return "payment"
}

// CheckoutRequest is a validated checkout submission.
type CheckoutRequest struct {
	Package Package
	Email   string
	Name    string
}

type checkoutBody struct {
	PackageType string          `json:"packageType"`
	Email       json.RawMessage `json:"email"`
	Name        json.RawMessage `json:"name"`
}

// ParseCheckoutRequest validates an untrusted checkout body. Email and name are
// optional; when present the email must be well formed and the name is trimmed
// to 100 characters.
func ParseCheckoutRequest(body []byte) (*CheckoutRequest, error) {
	var in checkoutBody
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, ErrInvalidRequest
	}

	pkg := Package(in.PackageType)
	if pkg != PackageFoundation && pkg != PackageGrowth {
		return nil, ErrInvalidPackage
	}
	req := &CheckoutRequest{Package: pkg}

	if email, set, ok := optionalString(in.Email); set {
		if !ok || utf8.RuneCountInString(email) > maxEmailLen || !checkoutEmailPattern.MatchString(email) {
			return nil, ErrInvalidEmail
		}
		req.Email = strings.TrimSpace(email)
	}

	if name, set, ok := optionalString(in.Name); set {
		if !ok {
			return nil, ErrInvalidName
		}
		req.Name = truncate(strings.TrimSpace(name), maxNameLen)
	}
	return req, nil
}

// optionalString reports whether raw carries a truthy value and whether that
// value is a string. Absent, null, false and "" count as not set.
func optionalString(raw json.RawMessage) (val string, set, ok bool) {
	trimmed := strings.TrimSpace(string(raw))
	switch trimmed {
	case "", "null", "false", `""`, "0":
		return "", false, false
	}
	if err := json.Unmarshal(raw, &val); err != nil {
		return "", true, false
	}
	return val, true, true
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
