package types

import "errors"

// Error taxonomy shared by the store, fetchers and orchestrator.
// Callers match with errors.Is; producers wrap with fmt.Errorf("...: %w", ...).
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrAuthExpired       = errors.New("credential expired")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrParseFailure      = errors.New("malformed message")
	ErrInvalidQuery      = errors.New("invalid search query")
)
