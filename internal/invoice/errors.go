package invoice

import "fmt"

// ValidationError marks a malformed or incomplete invoice/payload. It is
// never retried; the caller has to correct the document.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// AuthError marks a CSRF/session failure against the SAP endpoint.
type AuthError struct {
	Status int
	Reason string
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("sap auth failed (status %d): %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("sap auth failed: %s", e.Reason)
}

// UpstreamError carries the raw status and body of an unexpected collaborator
// response for diagnostics. It is surfaced, never retried beyond the single
// CSRF refresh.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream returned status %d: %s", e.Op, e.Status, e.Body)
}

// RateLimitError marks throttling by the AI fallback collaborator. The
// resolver degrades to tier none instead of blocking on it.
type RateLimitError struct {
	Reason string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %s", e.Reason)
}
