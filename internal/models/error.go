package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Guard errors. Credential mismatch and unknown username map to the
	// same value so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrRateLimited        = errors.New("too many login attempts")
	ErrCSRFInvalid        = errors.New("invalid or expired security token")
	ErrSubmissionTooFast  = errors.New("submission arrived too fast")
	ErrTOTPRequired       = errors.New("one-time code required")
	ErrTOTPInvalid        = errors.New("invalid one-time code")

	// The bootstrap credential record must be rotated before any other
	// privileged operation is allowed.
	ErrPasswordRotationRequired = errors.New("password change required")
)

// RateLimitedError carries the remaining lockout duration so handlers can
// emit a Retry-After header. It matches ErrRateLimited under errors.Is.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
