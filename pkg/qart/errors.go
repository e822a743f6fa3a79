package qart

import "errors"

var (
	ErrNotConfigured = errors.New("export storage is not configured")
	ErrEmptyKey      = errors.New("export key must not be empty")
)
