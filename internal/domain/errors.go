package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRateLimited   = errors.New("rate limited")
	ErrServerFailure = errors.New("upstream server failure")
	ErrDeliveryFatal = errors.New("fatal delivery failure")
)
