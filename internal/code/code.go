// Package code implements time-based one-time code generation over stored
// accounts. Generation is pure: the same (account, time) pair always yields
// the same code, and no shared state is touched, so callers may invoke it
// concurrently without locking.
package code

import (
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/keyfob/keyfob/internal/domain"
)

// Period is the fixed time step. The provisioning parser accepts a period
// parameter but generation always uses 30 seconds; non-default periods are
// a documented restriction, not an error.
const Period = 30 * time.Second

// Generate computes the RFC 6238 code for account at the given instant:
// HMAC over the 30s counter with the account's hash algorithm, dynamic
// truncation, then the low `digits` decimal digits zero-padded on the left.
// Returns domain.ErrInvalidSecret when the secret is not decodable Base32
// and domain.ErrUnsupportedAlgorithm for algorithms outside the supported
// set; neither reaches the HMAC stage.
func Generate(a domain.Account, at time.Time) (string, error) {
	a = a.Normalize()
	algo, err := hashAlgorithm(a.Algorithm)
	if err != nil {
		return "", err
	}
	if a.Digits < 6 || a.Digits > 8 {
		return "", fmt.Errorf("%w: got %d", domain.ErrInvalidDigits, a.Digits)
	}
	c, err := totp.GenerateCodeCustom(a.Secret, at, totp.ValidateOpts{
		Period:    uint(Period / time.Second),
		Digits:    otp.Digits(a.Digits),
		Algorithm: algo,
	})
	if err != nil {
		if errors.Is(err, otp.ErrValidateSecretInvalidBase32) {
			return "", fmt.Errorf("%w: account %q", domain.ErrInvalidSecret, a.Name)
		}
		return "", fmt.Errorf("generate code for %q: %w", a.Name, err)
	}
	return c, nil
}

// Remaining returns how long the code generated at the given instant stays
// current, i.e. the time left in its 30-second window.
func Remaining(at time.Time) time.Duration {
	return Period - time.Duration(at.Unix()%int64(Period/time.Second))*time.Second
}

// hashAlgorithm maps the domain algorithm onto the OTP library's enum.
func hashAlgorithm(a domain.Algorithm) (otp.Algorithm, error) {
	switch a {
	case domain.AlgSHA1:
		return otp.AlgorithmSHA1, nil
	case domain.AlgSHA256:
		return otp.AlgorithmSHA256, nil
	case domain.AlgSHA512:
		return otp.AlgorithmSHA512, nil
	case domain.AlgMD5:
		return otp.AlgorithmMD5, nil
	default:
		return 0, fmt.Errorf("%w: got %q", domain.ErrUnsupportedAlgorithm, a)
	}
}
