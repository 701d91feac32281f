package response

import "net/http"

// HTTPError is an error that already knows which status it maps to.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// ValidationError is missing or empty required input. It is raised before
// any connection is acquired.
func ValidationError(message string) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Message: message}
}

// NotFoundError means no row matches the requested id.
func NotFoundError(entity string) *HTTPError {
	return &HTTPError{Status: http.StatusNotFound, Message: entity + " not found"}
}

// PolicyRefusal is a request the API declines by rule, not because the
// store rejected it.
func PolicyRefusal(message string) *HTTPError {
	return &HTTPError{Status: http.StatusForbidden, Message: message}
}
