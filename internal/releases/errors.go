package releases

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotFound is returned by FetchDetail when the service has no such release.
var ErrNotFound = errors.New("release not found")

// maxErrorBody caps how much of a failed response body ends up in an error message.
const maxErrorBody = 140

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	if e.Body != "" {
		msg += " — " + e.Body
	}
	return msg
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

func newHTTPError(op string, code int, body []byte) *HTTPError {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = strings.ToValidUTF8(text[:maxErrorBody], "")
	}
	return &HTTPError{Op: op, StatusCode: code, Body: text}
}
