package tiercache

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by every operation invoked after Close. The engine
// cannot be reopened; construct a new one.
var ErrClosed = errors.New("tiercache: cache is closed")

// ConfigError reports an invalid construction parameter. The engine never
// becomes usable: New fails eagerly rather than deferring to the first call.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("tiercache: invalid config %s: %s", e.Param, e.Reason)
}

// KeyError reports a key that failed validation (empty, or over the 256
// character limit). It is raised before either tier is touched; batch calls
// abort as a whole with no partial effect.
type KeyError struct {
	Key    string
	Reason string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("tiercache: invalid key %q: %s", e.Key, e.Reason)
}

// TooLargeError reports a value whose encoded form exceeds MaxDiskBytes.
// Nothing is written to either tier; batch calls abort as a whole.
type TooLargeError struct {
	Key   string
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("tiercache: value for key %q is %d bytes, exceeds disk limit of %d",
		e.Key, e.Size, e.Limit)
}
