package energy

import "errors"

// ErrInvalidState is returned when supplied state fails validation.
var ErrInvalidState = errors.New("invalid state")
