package auth

import "errors"

var (
	ErrMissingToken = errors.New("missing id token")
	ErrInvalidToken = errors.New("invalid id token")
)
