// Package jsonfile provides the file-backed account Backend. The resource
// is a human-readable JSON document with a top-level "accounts" sequence;
// unknown fields are ignored for forward compatibility and missing fields
// take the domain defaults.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"

	"github.com/keyfob/keyfob/internal/domain"
	"github.com/keyfob/keyfob/internal/store"
)

var _ store.Backend = (*Backend)(nil)

// Backend reads and writes the account document at a filesystem path.
// An optional read-only fs.FS source replaces the path for loads, which is
// how the embedded fallback resource is wired.
type Backend struct {
	path string
	fsys fs.FS
	name string
}

// New returns a Backend persisting to path.
func New(path string) *Backend {
	return &Backend{path: path}
}

// NewFS returns a read-only Backend loading name from fsys. Save is not
// supported and reports an error.
func NewFS(fsys fs.FS, name string) *Backend {
	return &Backend{fsys: fsys, name: name}
}

// document is the serialized shape of the account resource.
type document struct {
	Accounts []domain.Account `json:"accounts"`
}

// Load parses the resource into accounts, preserving order. Decoding runs
// through a weakly-typed pass so numeric strings in hand-edited files
// still land in integer fields, and unrecognized keys are skipped.
func (b *Backend) Load(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := b.read()
	if err != nil {
		return nil, fmt.Errorf("read account resource: %w", err)
	}
	var doc struct {
		Accounts []map[string]any `json:"accounts"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse account resource: %w", err)
	}
	accounts := make([]domain.Account, 0, len(doc.Accounts))
	for i, entry := range doc.Accounts {
		var a domain.Account
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &a,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(entry); err != nil {
			return nil, fmt.Errorf("account entry %d: %w", i, err)
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// Save writes the full collection as indented JSON via a temp file in the
// same directory, fsyncs, then renames over the destination so a crashed
// save never truncates the previous state.
func (b *Backend) Save(ctx context.Context, accounts []domain.Account) error {
	if b.path == "" {
		return fmt.Errorf("account resource %q is read-only", b.name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := document{Accounts: accounts}
	if doc.Accounts == nil {
		doc.Accounts = []domain.Account{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, ".accounts-*.json")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.path)
}

func (b *Backend) read() ([]byte, error) {
	if b.fsys != nil {
		return fs.ReadFile(b.fsys, b.name)
	}
	return os.ReadFile(b.path)
}
