package attendance

import "errors"

// Rejection reasons returned by Service.Mark. Callers match them with errors.Is.
var (
	ErrBadRequest        = errors.New("bad request")
	ErrOutsideCampus     = errors.New("outside campus")
	ErrMalformedToken    = errors.New("malformed token")
	ErrIncompleteProfile = errors.New("incomplete profile")
	ErrAlreadyMarked     = errors.New("already marked")
	ErrStorage           = errors.New("storage error")
)

// Outcome names a Mark result for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrOutsideCampus):
		return "outside_campus"
	case errors.Is(err, ErrMalformedToken):
		return "malformed_token"
	case errors.Is(err, ErrIncompleteProfile):
		return "incomplete_profile"
	case errors.Is(err, ErrAlreadyMarked):
		return "already_marked"
	default:
		return "storage_error"
	}
}

// Retryable reports whether resubmitting the same scan can succeed.
func Retryable(err error) bool {
	return Outcome(err) == "storage_error"
}
