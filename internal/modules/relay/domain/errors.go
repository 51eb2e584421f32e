package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBadRequest is the root of every malformed-join and malformed-ingest error.
	ErrBadRequest = errors.New("bad request")

	ErrMissingGroupID     = fmt.Errorf("%w: missing group_id", ErrBadRequest)
	ErrInvalidTableNumber = fmt.Errorf("%w: invalid table_number", ErrBadRequest)
	ErrMissingMessageType = fmt.Errorf("%w: missing message_type", ErrBadRequest)
	ErrMalformedMessage   = fmt.Errorf("%w: malformed server message", ErrBadRequest)
)
