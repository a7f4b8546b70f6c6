package upstream

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the bot backend. The backend reports
// failures as a JSON body with a "detail" message; when the body is not
// parseable the status text stands in.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Detail)
}

// AsAPIError extracts an APIError from an error chain. Connectivity failures
// (dial errors, timeouts) are not APIErrors; callers use the distinction to
// decide between "backend said no" and "backend unreachable".
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
