package tutoring

import "errors"

var (
	ErrRequestNotFound = errors.New("tutoring request not found")
	ErrRequestClosed   = errors.New("tutoring request is closed")
)
