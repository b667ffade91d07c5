package envyaml

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/eugenenazirov/envyaml/internal/dotenv"
	"github.com/eugenenazirov/envyaml/internal/interpolate"
)

var (
	// ErrFileNotFound is matched by load errors caused by a missing YAML or
	// dotenv file. It is fs.ErrNotExist.
	ErrFileNotFound = fs.ErrNotExist
	// ErrKeyNotFound is matched by errors returned for absent keys.
	ErrKeyNotFound = errors.New("key not found")
	// ErrFormat is matched by every error returned from Config.Format.
	ErrFormat = errors.New("format error")
)

// UndefinedVariableError is returned by Load in strict mode when references
// have neither a value nor an inline default. Names are sorted and unique.
type UndefinedVariableError = interpolate.UndefinedVariableError

// DuplicateKeyError is returned by Load in strict mode when the dotenv file
// assigns the same name more than once.
type DuplicateKeyError = dotenv.DuplicateKeyError

// KeyNotFoundError reports a lookup of an absent key.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found", e.Key)
}

// Is makes errors.Is(err, ErrKeyNotFound) succeed.
func (e *KeyNotFoundError) Is(target error) bool {
	return target == ErrKeyNotFound
}

// FormatError reports a failed Config.Format call.
type FormatError struct {
	Key    string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format %q: %s: %v", e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("format %q: %s", e.Key, e.Reason)
}

// Is makes errors.Is(err, ErrFormat) succeed.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
