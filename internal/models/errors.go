package models

import "errors"

// Domain error kinds shared by repositories, services and handlers.
// Expected failures are signalled by wrapping one of these sentinels;
// handlers translate them to HTTP status codes with errors.Is.
var (
	ErrValidation             = errors.New("validation failed")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrNotFound               = errors.New("record not found")
	ErrInvalidState           = errors.New("invalid state transition")
	ErrInsufficientBalance    = errors.New("insufficient escrow balance")
	ErrDuplicateActiveDispute = errors.New("an active dispute already exists for this escrow")
	ErrExternalService        = errors.New("external service failure")
)
