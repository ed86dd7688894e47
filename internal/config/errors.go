package config

import "fmt"

// InvalidError reports that the configuration document could not be parsed.
// It is never returned for a missing file, only for a present-but-malformed
// one, so callers can treat "no file" and "bad file" differently.
type InvalidError struct {
	Path string
	Err  error
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid configuration at %s: %v", e.Path, e.Err)
}

func (e *InvalidError) Unwrap() error { return e.Err }
