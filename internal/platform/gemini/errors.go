package gemini

import "errors"

// ErrEmptyQuery is returned when a request carries no query text.
var ErrEmptyQuery = errors.New("query cannot be empty")
