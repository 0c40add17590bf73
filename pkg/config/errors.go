package config

import "fmt"

// Error reports a configuration that could not be loaded or is invalid.
// It is fatal: no search starts with a bad configuration.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error in %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
