package config

import "fmt"

// ConfigError reports a missing, unreadable or invalid configuration input.
type ConfigError struct {
	// Path is the file that failed to load. Empty for environment settings.
	Path string

	// Key is the offending key, if the error is about a single value.
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	switch {
	case e.Path != "" && e.Key != "":
		return fmt.Sprintf("config %s: %s: %v", e.Path, e.Key, e.Err)
	case e.Path != "":
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	case e.Key != "":
		return fmt.Sprintf("config %s: %v", e.Key, e.Err)
	default:
		return fmt.Sprintf("config: %v", e.Err)
	}
}

// Unwrap implements the errors.Unwrap interface
func (e *ConfigError) Unwrap() error {
	return e.Err
}
