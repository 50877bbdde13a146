// Package domain errors.go contains sentinel errors
package domain

import "errors"

// Sentinel domain-level errors reused by higher layers.
var (
	ErrInvalidSecret        = errors.New("secret is not valid base32")
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")
	ErrInvalidDigits        = errors.New("digits must be one of 6, 7, 8")
	ErrInvalidName          = errors.New("account name must not be empty")
)
