package matching

import "errors"

var (
	// ErrInvalidInput is returned when neither the candidate nor the position carries an identifying field.
	ErrInvalidInput = errors.New("candidate and position lack identifying data")
	// ErrMalformedRecord marks a stored JSON field of a position that can not be parsed.
	ErrMalformedRecord = errors.New("malformed record")
)
