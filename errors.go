// FILE: lixenwraith/settings/errors.go
package settings

import "errors"

var (
	// ErrInvalidPollPeriod is returned for a negative poll period
	ErrInvalidPollPeriod = errors.New("poll period must not be negative")

	// ErrEmptyAppName is returned when the builder has no app name to derive a path from
	ErrEmptyAppName = errors.New("app name cannot be empty")

	// ErrUnknownDirective marks a general-section key this store does not own
	ErrUnknownDirective = errors.New("unknown directive")

	// ErrInvalidValue marks a recognised directive with an unusable value
	ErrInvalidValue = errors.New("invalid directive value")

	// ErrMalformedLine marks an rc line that is neither a section, a comment nor key = value
	ErrMalformedLine = errors.New("malformed line")

	// ErrFileTooLarge is returned when the config file exceeds MaxFileSize
	ErrFileTooLarge = errors.New("config file too large")
)
