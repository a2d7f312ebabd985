package api

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is a non-2xx response from the FeedMe backend, with the optional
// structured error body decoded.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether the error is a 404 from the backend. The stores
// use this to reset a view scope instead of propagating the failure.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
