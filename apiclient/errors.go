package apiclient

import "fmt"

// StatusError is a failed API call. StatusCode is 0 when no response was
// received, in which case Err holds the transport error.
type StatusError struct {
	Err        error
	Method     string
	URL        string
	Message    string
	Body       []byte
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.ResponseMessage())
}

func (e *StatusError) Unwrap() error { return e.Err }

// HTTPStatus returns the response status, 0 for transport failures.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// ResponseMessage prefers the server supplied message.
func (e *StatusError) ResponseMessage() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fmt.Sprintf("Request failed with status code %d", e.StatusCode)
	}
}
