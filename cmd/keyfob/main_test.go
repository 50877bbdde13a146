package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	qrgen "github.com/skip2/go-qrcode"

	"github.com/keyfob/keyfob/internal/config"
	"github.com/keyfob/keyfob/internal/domain"
)

func TestBuildStoreJSONBackend(t *testing.T) {
	cfg := &config.Config{
		AccountsPath: filepath.Join(t.TempDir(), "accounts.json"),
		Backend:      config.BackendJSON,
	}
	st, closeStore := buildStore(cfg)
	defer func() { _ = closeStore() }()
	// Missing primary falls through to the embedded empty fallback.
	if got := st.Load(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty store, got %+v", got)
	}
	a := domain.Account{Name: "a", Secret: "JBSWY3DP", Digits: 6, Algorithm: domain.AlgSHA1}
	if err := st.Add(context.Background(), a, false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := st.Load(context.Background()); len(got) != 1 || got[0].Name != "a" {
		t.Fatalf("expected persisted account, got %+v", got)
	}
}

func TestBuildStoreSQLiteBackend(t *testing.T) {
	cfg := &config.Config{
		Backend: config.BackendSQLite,
		DBPath:  filepath.Join(t.TempDir(), "keyfob.db"),
	}
	st, closeStore := buildStore(cfg)
	defer func() { _ = closeStore() }()
	a := domain.Account{Name: "db", Secret: "JBSWY3DP", Digits: 6, Algorithm: domain.AlgSHA1}
	if err := st.Add(context.Background(), a, false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := st.Load(context.Background()); len(got) != 1 || got[0].Name != "db" {
		t.Fatalf("expected persisted account, got %+v", got)
	}
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qr.png")
	if err := qrgen.WriteFile("otpauth://totp/a?secret=JBSWY3DP", qrgen.Medium, 256, path); err != nil {
		t.Fatalf("write qr: %v", err)
	}
	img, err := loadImage(path)
	if err != nil {
		t.Fatalf("loadImage: %v", err)
	}
	if img.Bounds().Dx() != 256 {
		t.Fatalf("unexpected image size %d", img.Bounds().Dx())
	}

	if _, err := loadImage(filepath.Join(dir, "missing.png")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o600); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if _, err := loadImage(garbage); err == nil {
		t.Fatalf("expected decode error for garbage file")
	}
}
