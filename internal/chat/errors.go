package chat

import "errors"

var (
	// ErrGenerationFailed is returned when a reply could not be produced for any general reason
	ErrGenerationFailed = errors.New("failed to generate reply")

	// ErrInvalidResponse is returned when the model response is empty or malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the model blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during reply generation")

	// ErrInvalidConfig is returned when the responder configuration is invalid
	ErrInvalidConfig = errors.New("invalid responder configuration")
)
