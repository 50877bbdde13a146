package provision

import (
	"encoding/base32"
	"encoding/base64"
	"errors"
	"net/url"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/keyfob/keyfob/internal/domain"
)

// otpParam mirrors the fields of an exported OtpParameters message for
// building test payloads.
type otpParam struct {
	secret    []byte
	name      string
	issuer    string
	algorithm uint64
	digits    uint64
}

// buildMigrationURI encodes params into an otpauth-migration:// link the
// same way Google Authenticator does: protobuf payload, base64, URL query.
func buildMigrationURI(t *testing.T, params ...otpParam) string {
	t.Helper()
	var payload []byte
	for _, p := range params {
		var msg []byte
		if p.secret != nil {
			msg = protowire.AppendTag(msg, fieldSecret, protowire.BytesType)
			msg = protowire.AppendBytes(msg, p.secret)
		}
		if p.name != "" {
			msg = protowire.AppendTag(msg, fieldName, protowire.BytesType)
			msg = protowire.AppendString(msg, p.name)
		}
		if p.issuer != "" {
			msg = protowire.AppendTag(msg, fieldIssuer, protowire.BytesType)
			msg = protowire.AppendString(msg, p.issuer)
		}
		if p.algorithm != 0 {
			msg = protowire.AppendTag(msg, fieldAlgorithm, protowire.VarintType)
			msg = protowire.AppendVarint(msg, p.algorithm)
		}
		if p.digits != 0 {
			msg = protowire.AppendTag(msg, fieldDigits, protowire.VarintType)
			msg = protowire.AppendVarint(msg, p.digits)
		}
		payload = protowire.AppendTag(payload, fieldOtpParameters, protowire.BytesType)
		payload = protowire.AppendBytes(payload, msg)
	}
	// Trailing version field exercises the unknown-field skip path.
	payload = protowire.AppendTag(payload, 2, protowire.VarintType)
	payload = protowire.AppendVarint(payload, 1)

	data := base64.StdEncoding.EncodeToString(payload)
	return "otpauth-migration://offline?data=" + url.QueryEscape(data)
}

func TestParseMigrationMultipleAccounts(t *testing.T) {
	raw := buildMigrationURI(t,
		otpParam{secret: []byte("12345678901234567890"), name: "alice@example.com", issuer: "Example", algorithm: 1, digits: 6},
		otpParam{secret: []byte("another-secret-key"), name: "bob", algorithm: 2, digits: 8},
	)
	accounts, err := ParseMigration(raw)
	if err != nil {
		t.Fatalf("ParseMigration: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}

	first := accounts[0]
	if first.Name != "Example (alice@example.com)" {
		t.Fatalf("first name mismatch: %q", first.Name)
	}
	wantSecret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte("12345678901234567890"))
	if first.Secret != wantSecret {
		t.Fatalf("secret mismatch: got %q want %q", first.Secret, wantSecret)
	}
	if first.Digits != 6 || first.Algorithm != domain.AlgSHA1 {
		t.Fatalf("unexpected first account params: %+v", first)
	}

	second := accounts[1]
	if second.Name != "bob" {
		t.Fatalf("second name mismatch: %q", second.Name)
	}
	if second.Algorithm != domain.AlgSHA256 || second.Digits != 8 {
		t.Fatalf("unexpected second account params: %+v", second)
	}
}

func TestParseMigrationAlgorithmAndDigitDefaults(t *testing.T) {
	// Enum-style digit codes (1, 2) and out-of-range algorithms fall back
	// to 6 / SHA1 the same way the original importer behaves.
	raw := buildMigrationURI(t,
		otpParam{secret: []byte("k1"), name: "a", algorithm: 99, digits: 2},
	)
	accounts, err := ParseMigration(raw)
	if err != nil {
		t.Fatalf("ParseMigration: %v", err)
	}
	if accounts[0].Algorithm != domain.AlgSHA1 {
		t.Fatalf("expected SHA1 fallback, got %s", accounts[0].Algorithm)
	}
	if accounts[0].Digits != 6 {
		t.Fatalf("expected digits fallback 6, got %d", accounts[0].Digits)
	}
}

func TestParseMigrationURLSafeBase64(t *testing.T) {
	raw := buildMigrationURI(t, otpParam{secret: []byte{0xfb, 0xff, 0xfe, 0x01, 0x02}, name: "x"})
	// Re-encode the data parameter with the url-safe alphabet, unpadded.
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	std, err := base64.StdEncoding.DecodeString(u.Query().Get("data"))
	if err != nil {
		t.Fatalf("decode std: %v", err)
	}
	alt := "otpauth-migration://offline?data=" + url.QueryEscape(base64.RawURLEncoding.EncodeToString(std))
	accounts, err := ParseMigration(alt)
	if err != nil {
		t.Fatalf("ParseMigration url-safe: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Name != "x" {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}
}

func TestParseMigrationWrongScheme(t *testing.T) {
	if _, err := ParseMigration("otpauth://totp/a?secret=B"); !errors.Is(err, ErrNotProvisioning) {
		t.Fatalf("expected ErrNotProvisioning, got %v", err)
	}
}

func TestParseMigrationMissingData(t *testing.T) {
	if _, err := ParseMigration("otpauth-migration://offline"); !errors.Is(err, ErrMissingData) {
		t.Fatalf("expected ErrMissingData, got %v", err)
	}
}

func TestParseMigrationGarbageData(t *testing.T) {
	if _, err := ParseMigration("otpauth-migration://offline?data=%25%25"); !errors.Is(err, ErrSyntax) {
		t.Fatalf("expected ErrSyntax, got %v", err)
	}
}

func TestParseMigrationSecretRequired(t *testing.T) {
	raw := buildMigrationURI(t, otpParam{name: "nosecret"})
	if _, err := ParseMigration(raw); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}
