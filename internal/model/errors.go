package model

import "errors"

var (
	// ErrInvalidURL is returned when a candidate URL cannot be parsed into a host.
	ErrInvalidURL = errors.New("invalid url")
	// ErrEmptyTitle is returned when a candidate carries a title that is blank.
	ErrEmptyTitle = errors.New("empty title")
)
