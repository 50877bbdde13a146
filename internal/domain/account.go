// Package domain account.go contains the Account credential value type and
// its strict (manual-entry) validation rules.
package domain

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultDigits is used when a provisioning source names no digit count.
const DefaultDigits = 6

// Account is a named one-time-password credential. Name is the unique key
// within a store; Secret is the Base32-encoded shared key and is never held
// decoded beyond the scope of a single code computation.
type Account struct {
	Name      string    `json:"name" mapstructure:"name" validate:"required"`
	Secret    string    `json:"secret" mapstructure:"secret" validate:"required,base32secret"`
	Digits    int       `json:"digits" mapstructure:"digits" validate:"oneof=6 7 8"`
	Algorithm Algorithm `json:"algorithm" mapstructure:"algorithm" validate:"oneof=SHA1 SHA256 SHA512 MD5"`
}

// Normalize fills zero-valued optional fields with their defaults and
// canonicalizes the algorithm casing. It does not correct invalid values;
// that is Validate's job.
func (a Account) Normalize() Account {
	if a.Digits == 0 {
		a.Digits = DefaultDigits
	}
	if a.Algorithm == "" {
		a.Algorithm = DefaultAlgorithm
	} else {
		a.Algorithm = Algorithm(strings.ToUpper(string(a.Algorithm)))
	}
	return a
}

// Validate applies the strict entry rules: non-empty name, Base32-decodable
// secret, digits in {6,7,8} and a supported algorithm. Unlike the lenient
// provisioning-URI path, out-of-range values are rejected, not defaulted.
func (a Account) Validate() error {
	if err := validate.Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return err
		}
		// Map the first violation to its domain sentinel.
		f := verrs[0]
		switch f.Field() {
		case "Name":
			return ErrInvalidName
		case "Secret":
			return fmt.Errorf("%w: account %q", ErrInvalidSecret, a.Name)
		case "Digits":
			return fmt.Errorf("%w: got %d", ErrInvalidDigits, a.Digits)
		case "Algorithm":
			return fmt.Errorf("%w: got %q", ErrUnsupportedAlgorithm, a.Algorithm)
		}
		return err
	}
	return nil
}

// DecodeSecret decodes the account secret from Base32 into raw key bytes.
// Whitespace is trimmed, lowercase is accepted and missing padding is
// tolerated, matching the leniency of common authenticator apps. A secret
// that still fails to decode returns ErrInvalidSecret.
func (a Account) DecodeSecret() ([]byte, error) {
	s := strings.ToUpper(strings.TrimSpace(a.Secret))
	if n := len(s) % 8; n != 0 {
		s += strings.Repeat("=", 8-n)
	}
	raw, err := base32.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: account %q", ErrInvalidSecret, a.Name)
	}
	return raw, nil
}

// ComposeName builds the display name for a provisioned credential from its
// issuer and account label: "issuer (label)" when both are present, either
// one alone otherwise, and "Unknown" when neither is.
func ComposeName(issuer, account string) string {
	switch {
	case issuer != "" && account != "":
		return fmt.Sprintf("%s (%s)", issuer, account)
	case issuer != "":
		return issuer
	case account != "":
		return account
	default:
		return "Unknown"
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// base32secret: field must decode as Base32 after normalization.
	_ = v.RegisterValidation("base32secret", func(fl validator.FieldLevel) bool {
		a := Account{Secret: fl.Field().String()}
		_, err := a.DecodeSecret()
		return err == nil
	})
	return v
}
