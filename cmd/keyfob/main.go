// Package main provides the keyfob binary entry point: a command-line
// authenticator that stores TOTP credentials and prints their current
// codes.
//
// The application flow:
//  1. Load configuration from defaults and environment variables.
//  2. Build the account store (JSON file or SQLite) with the bundled
//     fallback resource behind it.
//  3. Dispatch the subcommand: list (default), add, remove, export.
//
// Provisioning input comes from otpauth:// URIs, Google Authenticator
// migration links, or QR code images; codes are always computed at a
// fixed 30-second step.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	// register the raster formats the QR scanner accepts
	_ "image/jpeg"
	_ "image/png"

	"github.com/keyfob/keyfob/internal/app"
	"github.com/keyfob/keyfob/internal/config"
	"github.com/keyfob/keyfob/internal/provision"
	"github.com/keyfob/keyfob/internal/qrscan"
	"github.com/keyfob/keyfob/internal/store"
	"github.com/keyfob/keyfob/internal/store/defaults"
	"github.com/keyfob/keyfob/internal/store/jsonfile"
	"github.com/keyfob/keyfob/internal/store/sqlite"
)

// realClock implements app.Clock using time.Now.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(2)
	}
	return cfg
}

// buildStore wires the configured primary backend over the embedded
// fallback resource. The returned closer releases the database handle
// when the SQLite backend is selected.
func buildStore(cfg *config.Config) (*store.Store, func() error) {
	fallback := jsonfile.NewFS(defaults.FS, defaults.Name)
	if cfg.Backend == config.BackendSQLite {
		db, err := sql.Open("sqlite3", cfg.DBPath)
		if err != nil {
			slog.Error("open sqlite driver", "err", err)
			os.Exit(3)
		}
		backend, err := sqlite.New(db)
		if err != nil {
			slog.Error("init sqlite schema", "err", err)
			os.Exit(3)
		}
		return store.New(backend, fallback), db.Close
	}
	return store.New(jsonfile.New(cfg.AccountsPath), fallback), func() error { return nil }
}

func buildService(st *store.Store) *app.Service {
	return &app.Service{Store: st, Decoder: qrscan.New(), Clock: realClock{}}
}

// loadImage decodes a raster file (png/jpeg) into pixels for the scanner.
func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

// cmdList prints every stored account with its current code and how long
// the codes remain valid.
func cmdList(ctx context.Context, svc *app.Service) error {
	entries, remaining := svc.Codes(ctx)
	if len(entries) == 0 {
		fmt.Println("no accounts configured; use `keyfob add` to provision one")
		return nil
	}
	for _, e := range entries {
		if e.Err != nil {
			fmt.Printf("%-40s  <unavailable: %v>\n", e.Name, e.Err)
			continue
		}
		fmt.Printf("%-40s  %s\n", e.Name, e.Code)
	}
	fmt.Printf("codes valid for another %ds\n", int(remaining.Seconds()))
	return nil
}

// cmdAdd provisions accounts from a URI or a QR image file.
func cmdAdd(ctx context.Context, svc *app.Service, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	uri := fs.String("uri", "", "otpauth:// or otpauth-migration:// URI")
	imagePath := fs.String("image", "", "path to an image containing a provisioning QR code")
	overwrite := fs.Bool("overwrite", false, "replace an existing account of the same name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*uri == "") == (*imagePath == "") {
		return errors.New("exactly one of -uri or -image is required")
	}

	var (
		accounts []string
		err      error
	)
	if *uri != "" {
		accounts, err = addURI(ctx, svc, *uri, *overwrite)
	} else {
		accounts, err = addImage(ctx, svc, *imagePath, *overwrite)
	}
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("%w (re-run with -overwrite to replace)", err)
		}
		return err
	}
	for _, name := range accounts {
		fmt.Printf("added %s\n", name)
	}
	return nil
}

func addURI(ctx context.Context, svc *app.Service, uri string, overwrite bool) ([]string, error) {
	warnNonDefaultPeriod(uri)
	added, err := svc.AddURI(ctx, uri, overwrite)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(added))
	for i, a := range added {
		names[i] = a.Name
	}
	return names, nil
}

func addImage(ctx context.Context, svc *app.Service, path string, overwrite bool) ([]string, error) {
	img, err := loadImage(path)
	if err != nil {
		return nil, err
	}
	added, err := svc.AddImage(ctx, img, overwrite)
	if err != nil {
		if errors.Is(err, qrscan.ErrNotFound) {
			return nil, fmt.Errorf("no qr code found in %s", path)
		}
		return nil, err
	}
	names := make([]string, len(added))
	for i, a := range added {
		names[i] = a.Name
	}
	return names, nil
}

// warnNonDefaultPeriod tells the user when a provisioning URI carries a
// period other than 30s, which generation ignores.
func warnNonDefaultPeriod(uri string) {
	p, err := provision.Parse(uri)
	if err == nil && p.Period != 0 && p.Period != 30 {
		slog.Warn("provisioning uri requests a non-default period; codes are generated with a fixed 30s step", "period", p.Period)
	}
}

func cmdRemove(ctx context.Context, svc *app.Service, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	name := fs.String("name", "", "display name of the account to remove")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("-name is required")
	}
	if err := svc.Remove(ctx, *name); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", *name)
	return nil
}

func cmdExport(ctx context.Context, svc *app.Service, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	name := fs.String("name", "", "display name of the account to export")
	out := fs.String("out", "", "output PNG path")
	size := fs.Int("size", cfg.QRSize, "QR image size in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *out == "" {
		return errors.New("-name and -out are required")
	}
	png, err := svc.ExportQR(ctx, *name, *size)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, png, 0o600); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *out)
	return nil
}

func run() error {
	cfg := loadConfig()
	st, closeStore := buildStore(cfg)
	defer func() {
		if err := closeStore(); err != nil {
			slog.Warn("close store", "err", err)
		}
	}()
	svc := buildService(st)
	ctx := context.Background()

	cmd, args := "list", []string{}
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}
	switch cmd {
	case "list":
		return cmdList(ctx, svc)
	case "add":
		return cmdAdd(ctx, svc, args)
	case "remove":
		return cmdRemove(ctx, svc, args)
	case "export":
		return cmdExport(ctx, svc, cfg, args)
	default:
		return fmt.Errorf("unknown command %q (expected list, add, remove or export)", cmd)
	}
}

func main() {
	if err := run(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}
