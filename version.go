package tiercache

import (
	"fmt"

	"github.com/goccy/go-reflect"
)

// Versioned is implemented by every cacheable value type. SchemaVersion
// reports the schema tag stored alongside each durable row; it must be a
// fixed, non-empty string per type and callable on the zero value.
//
// Bumping the version invalidates every row written under the old one:
// mismatched rows read as misses and are purged.
type Versioned interface {
	SchemaVersion() string
}

// schemaVersionOf reads the expected schema version from the zero value of V.
// Pointer types are instantiated first so the method has a non-nil receiver.
func schemaVersionOf[V Versioned]() (string, error) {
	typ := reflect.TypeOf((*V)(nil)).Elem()

	var v V
	if typ.Kind() == reflect.Ptr {
		v = reflect.New(typ.Elem()).Interface().(V)
	}
	ver := v.SchemaVersion()
	if ver == "" {
		return "", &ConfigError{
			Param:  "schema version",
			Reason: fmt.Sprintf("type %s must report a non-empty SchemaVersion", typ),
		}
	}
	return ver, nil
}
