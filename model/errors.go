package model

import "errors"

var (
	// ErrNotFound is returned when no participant matches a scanned identifier.
	ErrNotFound = errors.New("participant not found")
	// ErrEventNotFound is returned when a referenced event does not exist.
	ErrEventNotFound = errors.New("event not found")
	// ErrInvalidPayload is returned for a scan payload with no identifier.
	ErrInvalidPayload = errors.New("invalid scan payload")
	// ErrSheetUnavailable is returned when the remote sheet cannot be fetched.
	ErrSheetUnavailable = errors.New("sheet unavailable")
	// ErrMalformedSheet is returned for an empty sheet or a missing header row.
	ErrMalformedSheet = errors.New("sheet is empty or has no header row")
	// ErrTicketCollision is returned if a generated ticket id already exists.
	ErrTicketCollision = errors.New("ticket id collision")
)
