package crawl

import "errors"

var (
	// ErrInvalidConfig indicates the client configuration failed validation.
	ErrInvalidConfig = errors.New("invalid crawl configuration")

	// ErrHTTPClientRequired indicates a nil *http.Client was supplied.
	ErrHTTPClientRequired = errors.New("http client is required")
)
