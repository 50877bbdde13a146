package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// BackendKind names a persistence adapter for the primary account store.
type BackendKind string

// Supported store backends.
const (
	BackendJSON   BackendKind = "json"
	BackendSQLite BackendKind = "sqlite"
)

// StringToBackendKind is a DecodeHookFunc that converts a string to a
// BackendKind, normalizing case and rejecting unknown backends at load
// time rather than at first use.
func StringToBackendKind() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(BackendKind("")) {
			return data, nil
		}
		raw := reflect.ValueOf(data).String()
		s := BackendKind(strings.ToLower(strings.TrimSpace(raw)))
		switch s {
		case BackendJSON, BackendSQLite:
			return s, nil
		}
		return nil, fmt.Errorf("unknown store backend %q", raw)
	}
}
