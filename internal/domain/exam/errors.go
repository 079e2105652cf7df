package exam

import "errors"

var (
	ErrExamNotFound    = errors.New("exam not found")
	ErrSessionNotFound = errors.New("exam session not found")
	ErrSessionClosed   = errors.New("exam session is no longer in progress")
)
