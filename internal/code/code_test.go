package code

import (
	"encoding/base32"
	"errors"
	"testing"
	"time"

	"github.com/keyfob/keyfob/internal/domain"
)

// RFC 6238 appendix B reference keys, ASCII form. The base32 form the
// accounts carry is computed in-test rather than hand-transcribed.
var (
	rfcKeySHA1   = b32("12345678901234567890")
	rfcKeySHA256 = b32("12345678901234567890123456789012")
	rfcKeySHA512 = b32("1234567890123456789012345678901234567890123456789012345678901234")
)

func b32(ascii string) string {
	return base32.StdEncoding.EncodeToString([]byte(ascii))
}

func TestGenerateRFC6238Vectors(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		algo   domain.Algorithm
		at     int64
		want   string
	}{
		{"sha1_t59", rfcKeySHA1, domain.AlgSHA1, 59, "94287082"},
		{"sha1_t1111111109", rfcKeySHA1, domain.AlgSHA1, 1111111109, "07081804"},
		{"sha1_t1111111111", rfcKeySHA1, domain.AlgSHA1, 1111111111, "14050471"},
		{"sha1_t1234567890", rfcKeySHA1, domain.AlgSHA1, 1234567890, "89005924"},
		{"sha1_t2000000000", rfcKeySHA1, domain.AlgSHA1, 2000000000, "69279037"},
		{"sha256_t59", rfcKeySHA256, domain.AlgSHA256, 59, "46119246"},
		{"sha256_t1111111109", rfcKeySHA256, domain.AlgSHA256, 1111111109, "68084774"},
		{"sha512_t59", rfcKeySHA512, domain.AlgSHA512, 59, "90693936"},
		{"sha512_t1111111109", rfcKeySHA512, domain.AlgSHA512, 1111111109, "25091201"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := domain.Account{Name: "rfc", Secret: tc.secret, Digits: 8, Algorithm: tc.algo}
			got, err := Generate(a, time.Unix(tc.at, 0).UTC())
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if got != tc.want {
				t.Fatalf("code mismatch: got %s want %s", got, tc.want)
			}
		})
	}
}

func TestGenerateDeterministicWithinWindow(t *testing.T) {
	a := domain.Account{Name: "n", Secret: "JBSWY3DPEHPK3PXP", Digits: 6, Algorithm: domain.AlgSHA1}
	base := time.Unix(1700000010, 0).UTC() // exact window start
	first, err := Generate(a, base)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, offset := range []time.Duration{0, time.Second, 29 * time.Second} {
		got, err := Generate(a, base.Add(offset))
		if err != nil {
			t.Fatalf("Generate at +%v: %v", offset, err)
		}
		if got != first {
			t.Fatalf("code changed within window at +%v: %s vs %s", offset, got, first)
		}
	}
	// Next window must roll over.
	next, err := Generate(a, base.Add(30*time.Second))
	if err != nil {
		t.Fatalf("Generate next window: %v", err)
	}
	if next == first {
		t.Fatalf("code did not change across window boundary")
	}
}

func TestGenerateZeroPadsShortCodes(t *testing.T) {
	// t=1111111109 with the RFC SHA1 key yields 07081804; the leading zero
	// must survive rendering.
	a := domain.Account{Name: "rfc", Secret: rfcKeySHA1, Digits: 8, Algorithm: domain.AlgSHA1}
	got, err := Generate(a, time.Unix(1111111109, 0).UTC())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 8 || got[0] != '0' {
		t.Fatalf("expected 8 chars with leading zero, got %q", got)
	}
}

func TestGenerateDigitWidths(t *testing.T) {
	for _, digits := range []int{6, 7, 8} {
		a := domain.Account{Name: "n", Secret: rfcKeySHA1, Digits: digits, Algorithm: domain.AlgSHA1}
		got, err := Generate(a, time.Unix(59, 0).UTC())
		if err != nil {
			t.Fatalf("Generate digits=%d: %v", digits, err)
		}
		if len(got) != digits {
			t.Fatalf("expected %d chars, got %q", digits, got)
		}
	}
}

func TestGenerateDefaultsApply(t *testing.T) {
	// Zero digits/algorithm normalize to 6/SHA1 before generation.
	a := domain.Account{Name: "n", Secret: rfcKeySHA1}
	got, err := Generate(a, time.Unix(59, 0).UTC())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// 94287082 truncated to the default 6 digits.
	if got != "287082" {
		t.Fatalf("expected 287082, got %s", got)
	}
}

func TestGenerateInvalidSecret(t *testing.T) {
	a := domain.Account{Name: "bad", Secret: "1!!", Digits: 6, Algorithm: domain.AlgSHA1}
	_, err := Generate(a, time.Unix(59, 0).UTC())
	if !errors.Is(err, domain.ErrInvalidSecret) {
		t.Fatalf("expected ErrInvalidSecret, got %v", err)
	}
}

func TestGenerateUnsupportedAlgorithm(t *testing.T) {
	a := domain.Account{Name: "bad", Secret: "JBSWY3DPEHPK3PXP", Digits: 6, Algorithm: "SHA3"}
	_, err := Generate(a, time.Unix(59, 0).UTC())
	if !errors.Is(err, domain.ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestRemaining(t *testing.T) {
	tests := []struct {
		at   int64
		want time.Duration
	}{
		{60, 30 * time.Second},
		{59, time.Second},
		{75, 15 * time.Second},
	}
	for _, tc := range tests {
		if got := Remaining(time.Unix(tc.at, 0)); got != tc.want {
			t.Errorf("Remaining(%d) = %v, want %v", tc.at, got, tc.want)
		}
	}
}
