package reject

import (
	"errors"
	"fmt"
	"time"
)

// Expected, recoverable outcomes of ledger and game operations. Callers
// match them with errors.Is; the wrapping message carries the detail.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrNotFound           = errors.New("not found")
	ErrRateLimited        = errors.New("rate limited")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// RateLimitedError is returned by the claim gate when the window has not
// elapsed yet.
type RateLimitedError struct {
	NextAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s until %s", ErrRateLimited, e.NextAt.Format(time.RFC3339))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

func InsufficientFunds(actorId string, balance int64, requested int64) error {
	return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, actorId, balance, requested)
}

func InvalidTransition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// StorageUnavailable wraps a durability layer failure. Domain errors pass
// through untouched so a transaction body can return them as is.
func StorageUnavailable(err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// IsDomain reports whether err is one of the expected outcomes rather
// than an infrastructure failure.
func IsDomain(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrRateLimited)
}
