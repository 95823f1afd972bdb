package scrapers

import (
	"fmt"

	"github.com/go-resty/resty/v2"
)

// TransportError is returned when a portal could not be reached or answered with an
// unexpected status.
type TransportError struct {
	Call       string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: transport: %v", e.Call, e.Err)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Call, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CheckResponse turns a failed resty call, or a response whose status is not one of
// expected, into a TransportError.
func CheckResponse(call string, res *resty.Response, err error, expected ...int) error {
	if err != nil {
		return &TransportError{Call: call, Err: err}
	}
	if len(expected) == 0 {
		expected = []int{200}
	}
	for _, status := range expected {
		if res.StatusCode() == status {
			return nil
		}
	}
	return &TransportError{Call: call, StatusCode: res.StatusCode()}
}
