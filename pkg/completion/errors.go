package completion

import "fmt"

// UpstreamError reports that the inference endpoint was unreachable or
// answered with something other than a usable success response.
type UpstreamError struct {
	// Status is the HTTP status code, zero when no response was received.
	Status int
	// Body is the upstream response body, kept for diagnostics.
	Body string
	Err  error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("upstream returned %d: %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
