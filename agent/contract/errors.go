package contract

import "errors"

var (
	ErrInvalidFilter       = errors.New("invalid listing filter")
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")
	ErrConfiguration       = errors.New("missing required configuration")
	ErrLogWrite            = errors.New("event log write failed")
	ErrValidation          = errors.New("validation failed")
)
