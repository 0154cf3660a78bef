package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates a webhook body failed signature verification.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMalformedPayload indicates a webhook body could not be parsed or is
	// missing a required identifying field.
	ErrMalformedPayload = errors.New("malformed payload")
)
