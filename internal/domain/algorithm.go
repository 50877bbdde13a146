// Package domain algorithm.go contains the HMAC hash algorithm enumeration.
package domain

import "strings"

// Algorithm identifies the HMAC hash function used for code generation.
// The canonical form is uppercase.
type Algorithm string

// Supported HMAC hash algorithms.
const (
	AlgSHA1   Algorithm = "SHA1"
	AlgSHA256 Algorithm = "SHA256"
	AlgSHA512 Algorithm = "SHA512"
	AlgMD5    Algorithm = "MD5"
)

// DefaultAlgorithm is used when a provisioning source names no algorithm.
const DefaultAlgorithm = AlgSHA1

// ParseAlgorithm strictly parses s (case-insensitive) into an Algorithm.
// Returns ErrUnsupportedAlgorithm for anything outside the supported set.
// This is the manual-entry path; provisioning URIs use AlgorithmOrDefault.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToUpper(strings.TrimSpace(s))); a {
	case AlgSHA1, AlgSHA256, AlgSHA512, AlgMD5:
		return a, nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}

// AlgorithmOrDefault leniently maps s to an Algorithm, falling back to
// DefaultAlgorithm for unknown or empty values. Real-world provisioning
// URIs carry vendor oddities here, so this path never errors.
func AlgorithmOrDefault(s string) Algorithm {
	if a, err := ParseAlgorithm(s); err == nil {
		return a
	}
	return DefaultAlgorithm
}

// Valid reports whether a is a member of the supported set.
func (a Algorithm) Valid() bool {
	_, err := ParseAlgorithm(string(a))
	return err == nil
}

// String returns the canonical string form.
func (a Algorithm) String() string { return string(a) }
