package metrics

import (
	"errors"

	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
)

// Outcome turns an operation error into a low cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, reject.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, reject.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, reject.ErrNotFound):
		return "not_found"
	case errors.Is(err, reject.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, reject.ErrStorageUnavailable):
		return "storage_unavailable"
	}
	return "error"
}
