// Package config provides layered configuration loading for the keyfob
// CLI. Defaults are overlaid with KEYFOB_-prefixed environment variables,
// then validated.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the environment variables consumed here.
const envPrefix = "KEYFOB_"

// Config holds the merged runtime configuration.
type Config struct {
	// AccountsPath is the primary persisted account resource (JSON).
	AccountsPath string `koanf:"accounts_path" validate:"required,safepath"`
	// Backend selects the persistence adapter for the primary store.
	Backend BackendKind `koanf:"backend" validate:"oneof=json sqlite"`
	// DBPath is the SQLite database file, used when Backend is sqlite.
	DBPath string `koanf:"db_path" validate:"required,safepath"`
	// QRSize is the pixel size of exported provisioning QR images.
	QRSize int `koanf:"qr_size" validate:"gte=64,lte=1024"`
}

// DefaultAppConfig is the baseline configuration before any overrides.
var DefaultAppConfig = Config{
	AccountsPath: "accounts.json",
	Backend:      BackendJSON,
	DBPath:       "keyfob.db",
	QRSize:       256,
}

// Load merges defaults with environment overrides and validates the
// result. Environment keys map by stripping the prefix and lowercasing:
// KEYFOB_ACCOUNTS_PATH -> accounts_path.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook:       StringToBackendKind(),
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := newValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// newValidator builds the validator with the custom path rule registered.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("safepath", validPath)
	return v
}

// validPath rejects empty, root and parent-traversing paths so a stray
// environment variable cannot point the store outside its install.
func validPath(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" || p == "." || p == "/" || p == "//" {
		return false
	}
	for _, part := range strings.Split(strings.ReplaceAll(p, "\\", "/"), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
