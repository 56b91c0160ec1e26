package config

import "errors"

var (
	// ErrUnknownDriver is returned when database.driver names a backend the
	// store cannot open.
	ErrUnknownDriver = errors.New("unknown database driver")

	// ErrInvalidValue is returned when a setting is out of its allowed range.
	ErrInvalidValue = errors.New("invalid configuration value")
)
