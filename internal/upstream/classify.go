package upstream

import (
	"fmt"
	"net/http"

	"github.com/handlegraph/followings-gateway/internal/domain"
)

// errorMessageProbes is the fixed priority order for locating a readable
// message in an upstream error body. First non-empty string wins.
var errorMessageProbes = []probe[string]{
	stringAt("message"),
	stringAt("error.message"),
	stringAt("error"),
	stringAt("error_message"),
	stringAt("errors.0.message"),
	stringAt("title"),
	stringAt("detail"),
}

// ClassifyError derives the canonical error for a non-2xx result. The message
// comes from the body when one can be found, falling back to the HTTP status
// text; the parsed body rides along as details. 401 and 403 become credential
// errors, every other status passes through unchanged.
func ClassifyError(res *Result) *domain.APIError {
	message, ok := firstMatch(res.Body.Value(), errorMessageProbes)
	if !ok {
		message = http.StatusText(res.StatusCode)
	}
	if message == "" {
		message = fmt.Sprintf("External API Error %d", res.StatusCode)
	}

	details := res.Details()

	switch res.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUpstreamAuth(message, res.StatusCode).WithDetails(details)
	default:
		return domain.ErrUpstream(message, res.StatusCode).WithDetails(details)
	}
}

// ClassifySchema derives the canonical error for a 2xx result whose body was
// unusable or unrecognized. Upstream-reported success is never trusted
// blindly.
func ClassifySchema(res *Result, reason string) *domain.APIError {
	return domain.ErrUpstreamSchema(reason).WithDetails(res.Details())
}
