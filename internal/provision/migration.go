// Package provision migration.go decodes Google Authenticator export
// payloads (otpauth-migration://offline?data=...) without generated
// protobuf code, walking the wire format directly.
package provision

import (
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/keyfob/keyfob/internal/domain"
)

// ErrMissingData reports a migration URI without the data query parameter.
var ErrMissingData = errors.New("migration uri has no data parameter")

// MigrationPayload field numbers (proto: MigrationPayload / OtpParameters).
const (
	fieldOtpParameters = 1

	fieldSecret    = 1
	fieldName      = 2
	fieldIssuer    = 3
	fieldAlgorithm = 4
	fieldDigits    = 5
)

// IsMigrationURI reports whether raw carries the otpauth-migration scheme.
func IsMigrationURI(raw string) bool {
	return strings.HasPrefix(raw, migrationPrefix)
}

// ParseMigration decodes a Google Authenticator export URI into the
// accounts it carries, in payload order. The data parameter is base64
// (standard or url-safe alphabet, padded or not); each embedded credential
// gets its secret re-encoded to Base32 and its display name composed the
// same way the single-URI parser does. Algorithm values outside the known
// enum default to SHA1 and digit values outside {6,7,8} default to 6,
// mirroring the lenient URI policy.
func ParseMigration(raw string) ([]domain.Account, error) {
	if !IsMigrationURI(raw) {
		return nil, ErrNotProvisioning
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	data := u.Query().Get("data")
	if data == "" {
		return nil, ErrMissingData
	}
	payload, err := decodeBase64(data)
	if err != nil {
		return nil, fmt.Errorf("%w: data parameter: %v", ErrSyntax, err)
	}

	var accounts []domain.Account
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, protowire.ParseError(n))
		}
		payload = payload[n:]
		if num == fieldOtpParameters && typ == protowire.BytesType {
			msg, n := protowire.ConsumeBytes(payload)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrSyntax, protowire.ParseError(n))
			}
			payload = payload[n:]
			acct, err := parseOtpParameters(msg)
			if err != nil {
				return nil, err
			}
			accounts = append(accounts, acct)
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, payload)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, protowire.ParseError(n))
		}
		payload = payload[n:]
	}
	return accounts, nil
}

// parseOtpParameters decodes one embedded OtpParameters message.
func parseOtpParameters(msg []byte) (domain.Account, error) {
	var (
		secret       []byte
		name, issuer string
		algorithm    uint64
		digits       uint64
	)
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return domain.Account{}, fmt.Errorf("%w: %v", ErrSyntax, protowire.ParseError(n))
		}
		msg = msg[n:]
		switch {
		case num == fieldSecret && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(msg)
			if n < 0 {
				return domain.Account{}, fmt.Errorf("%w: %v", ErrSyntax, protowire.ParseError(n))
			}
			secret, msg = v, msg[n:]
		case num == fieldName && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(msg)
			if n < 0 {
				return domain.Account{}, fmt.Errorf("%w: %v", ErrSyntax, protowire.ParseError(n))
			}
			name, msg = string(v), msg[n:]
		case num == fieldIssuer && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(msg)
			if n < 0 {
				return domain.Account{}, fmt.Errorf("%w: %v", ErrSyntax, protowire.ParseError(n))
			}
			issuer, msg = string(v), msg[n:]
		case num == fieldAlgorithm && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(msg)
			if n < 0 {
				return domain.Account{}, fmt.Errorf("%w: %v", ErrSyntax, protowire.ParseError(n))
			}
			algorithm, msg = v, msg[n:]
		case num == fieldDigits && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(msg)
			if n < 0 {
				return domain.Account{}, fmt.Errorf("%w: %v", ErrSyntax, protowire.ParseError(n))
			}
			digits, msg = v, msg[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, msg)
			if n < 0 {
				return domain.Account{}, fmt.Errorf("%w: %v", ErrSyntax, protowire.ParseError(n))
			}
			msg = msg[n:]
		}
	}
	if len(secret) == 0 {
		return domain.Account{}, ErrMissingSecret
	}
	return domain.Account{
		Name:      domain.ComposeName(issuer, name),
		Secret:    base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret),
		Digits:    migrationDigits(digits),
		Algorithm: migrationAlgorithm(algorithm),
	}, nil
}

// migrationAlgorithm maps the export enum onto the domain algorithm set.
// Unknown values (including ALGORITHM_UNSPECIFIED) default to SHA1.
func migrationAlgorithm(v uint64) domain.Algorithm {
	switch v {
	case 2:
		return domain.AlgSHA256
	case 3:
		return domain.AlgSHA512
	case 4:
		return domain.AlgMD5
	default:
		return domain.AlgSHA1
	}
}

// migrationDigits accepts the raw field value only when it is a literal
// digit count in {6,7,8}; enum codes and anything else become 6.
func migrationDigits(v uint64) int {
	if v >= 6 && v <= 8 {
		return int(v)
	}
	return domain.DefaultDigits
}

// decodeBase64 accepts standard or url-safe alphabets with or without
// padding, the variants seen in real exported links.
func decodeBase64(s string) ([]byte, error) {
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if n := len(s) % 4; n != 0 {
		s += strings.Repeat("=", 4-n)
	}
	return base64.StdEncoding.DecodeString(s)
}
