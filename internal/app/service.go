// Package app contains the application orchestration layer. It wires the
// parsers, the code generator and the persistence port together without
// performing any I/O itself; image loading and rendering stay at the edge.
package app

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/keyfob/keyfob/internal/code"
	"github.com/keyfob/keyfob/internal/domain"
	"github.com/keyfob/keyfob/internal/provision"
	"github.com/keyfob/keyfob/internal/qrscan"
	qrgen "github.com/skip2/go-qrcode"
)

// Entry is one account's current code, or the per-account failure that
// prevented generation. A bad secret poisons only its own entry; the rest
// of the listing still renders.
type Entry struct {
	Name string
	Code string
	Err  error
}

// Service orchestrates account provisioning and code display using the
// injected store, decoder and clock.
type Service struct {
	Store   AccountStore
	Decoder *qrscan.Decoder
	Clock   Clock
}

// Codes reloads the persisted accounts and generates each one's code at
// the current instant. The second return value is how long the codes stay
// current (time left in the 30-second window).
func (s *Service) Codes(ctx context.Context) ([]Entry, time.Duration) {
	now := s.Clock.Now()
	accounts := s.Store.Load(ctx)
	entries := make([]Entry, 0, len(accounts))
	for _, a := range accounts {
		e := Entry{Name: a.Name}
		e.Code, e.Err = code.Generate(a, now)
		entries = append(entries, e)
	}
	return entries, code.Remaining(now)
}

// AddURI provisions accounts from a single otpauth:// URI or an
// otpauth-migration:// export link and persists them. The added accounts
// are returned in payload order. Period values other than 30 are accepted
// but ignored by generation; the caller is expected to tell the user.
func (s *Service) AddURI(ctx context.Context, raw string, overwrite bool) ([]domain.Account, error) {
	accounts, err := s.parseURI(raw)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if err := s.Store.Add(ctx, a, overwrite); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

// AddImage decodes a QR symbol from an already-loaded raster image and
// provisions whatever credential URI it carries.
func (s *Service) AddImage(ctx context.Context, img image.Image, overwrite bool) ([]domain.Account, error) {
	text, err := s.Decoder.Decode(img)
	if err != nil {
		return nil, err
	}
	return s.AddURI(ctx, text, overwrite)
}

// AddManual stores a hand-entered account. Unlike the provisioning-URI
// path this validates strictly: out-of-range digits and unknown algorithms
// are rejected, not defaulted.
func (s *Service) AddManual(ctx context.Context, a domain.Account, overwrite bool) error {
	a = a.Normalize()
	if err := a.Validate(); err != nil {
		return err
	}
	return s.Store.Add(ctx, a, overwrite)
}

// Remove deletes the named account from the persisted collection.
func (s *Service) Remove(ctx context.Context, name string) error {
	return s.Store.Remove(ctx, name)
}

// ExportQR renders the named account as a provisioning QR code PNG of the
// given pixel size, suitable for scanning into another authenticator.
func (s *Service) ExportQR(ctx context.Context, name string, size int) ([]byte, error) {
	a, err := s.Store.Find(ctx, name)
	if err != nil {
		return nil, err
	}
	png, err := qrgen.Encode(provision.BuildURI(a), qrgen.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render provisioning qr: %w", err)
	}
	return png, nil
}

// parseURI routes between the single-URI and migration-export grammars.
func (s *Service) parseURI(raw string) ([]domain.Account, error) {
	if provision.IsMigrationURI(raw) {
		return provision.ParseMigration(raw)
	}
	p, err := provision.Parse(raw)
	if err != nil {
		return nil, err
	}
	return []domain.Account{p.Account()}, nil
}
