// Package provision parses otpauth:// provisioning URIs and Google
// Authenticator otpauth-migration:// export payloads into accounts, and
// builds provisioning URIs back from stored accounts. Parsing is pure and
// reentrant; nothing here touches storage or the clock.
package provision

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/keyfob/keyfob/internal/domain"
)

// Scheme prefixes recognized by Parse and ParseMigration.
const (
	otpauthPrefix   = "otpauth://"
	migrationPrefix = "otpauth-migration://"
)

// Parser-local sentinel errors. These are recoverable: the caller shows the
// failure to the user and takes no further action.
var (
	ErrNotProvisioning = errors.New("not an otpauth provisioning uri")
	ErrSyntax          = errors.New("malformed provisioning uri")
	ErrMissingSecret   = errors.New("provisioning uri has no secret")
)

// Payload is the transient result of parsing a single provisioning URI. It
// is consumed immediately to build an Account and has no persistence of its
// own. Period is carried for caller-side warnings only; code generation is
// fixed at 30 seconds regardless.
type Payload struct {
	Issuer      string
	AccountName string
	Secret      string
	Digits      int
	Algorithm   domain.Algorithm
	Period      int
}

// Account builds the stored credential from the payload, composing the
// display name from issuer and account label.
func (p Payload) Account() domain.Account {
	return domain.Account{
		Name:      domain.ComposeName(p.Issuer, p.AccountName),
		Secret:    p.Secret,
		Digits:    p.Digits,
		Algorithm: p.Algorithm,
	}
}

// Parse interprets raw as an otpauth:// provisioning URI.
//
// Anything without the otpauth:// prefix returns ErrNotProvisioning; input
// that has the prefix but cannot be parsed as a URI returns ErrSyntax with
// the underlying cause attached. A missing or empty secret parameter is
// ErrMissingSecret. Algorithm and digits follow the lenient-default policy:
// unknown algorithms fall back to SHA1 and digits outside {6,7,8} (or
// malformed) fall back to 6, silently. The issuer query parameter wins over
// an issuer embedded in the label.
func Parse(raw string) (Payload, error) {
	if !strings.HasPrefix(raw, otpauthPrefix) {
		return Payload{}, ErrNotProvisioning
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	q := u.Query()

	secret := q.Get("secret")
	if secret == "" {
		return Payload{}, ErrMissingSecret
	}

	label := strings.TrimPrefix(u.Path, "/")
	issuer := q.Get("issuer")
	account := label
	if before, after, found := strings.Cut(label, ":"); found {
		account = after
		if issuer == "" {
			issuer = before
		}
	}

	p := Payload{
		Issuer:      issuer,
		AccountName: account,
		Secret:      secret,
		Digits:      digitsOrDefault(q.Get("digits")),
		Algorithm:   domain.AlgorithmOrDefault(q.Get("algorithm")),
	}
	if v, err := strconv.Atoi(q.Get("period")); err == nil {
		p.Period = v
	}
	return p, nil
}

// digitsOrDefault applies the lenient digit policy: only a well-formed
// integer in {6,7,8} is honored, anything else becomes 6.
func digitsOrDefault(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 6 || n > 8 {
		return domain.DefaultDigits
	}
	return n
}

// BuildURI renders a stored account back into an otpauth://totp/ URI, the
// inverse of Parse for QR export. The composed display name becomes the
// label verbatim; issuer splitting is not reconstructed.
func BuildURI(a domain.Account) string {
	a = a.Normalize()
	q := url.Values{}
	q.Set("secret", a.Secret)
	q.Set("digits", strconv.Itoa(a.Digits))
	q.Set("algorithm", string(a.Algorithm))
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + a.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
