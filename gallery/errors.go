// Package gallery is the media upload workflow: intake validation, storage
// upload, album creation and album membership.
package gallery

import "errors"

// Handlers map these to status codes, wrap them with fmt.Errorf("...: %w")
var (
	ErrInvalid   = errors.New("invalid input")
	ErrForbidden = errors.New("not allowed")
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("version conflict")
)
