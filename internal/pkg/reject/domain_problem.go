package reject

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	insufficientFunds  string = "error.ledger.insufficient-funds"
	invalidTransition  string = "error.game.invalid-transition"
	claimRateLimited   string = "error.claim.rate-limited"
	storageUnavailable string = "error.data.access"
)

// Trace converts a service error into the problem rendered to the caller.
func Trace(err error) *ProblemWithTrace {
	if err == nil {
		return nil
	}

	var pwt *ProblemWithTrace
	if errors.As(err, &pwt) {
		return pwt
	}

	var problem Problem
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		problem = NewProblem().
			WithTitle("Not enough Firebrands").
			WithStatus(http.StatusConflict).
			WithCode(insufficientFunds).
			WithDetail(err.Error()).
			Build()
	case errors.Is(err, ErrInvalidTransition):
		problem = NewProblem().
			WithTitle("Action is not allowed in the current game state").
			WithStatus(http.StatusConflict).
			WithCode(invalidTransition).
			WithDetail(err.Error()).
			Build()
	case errors.Is(err, ErrNotFound):
		problem = NotFoundProblem()
		problem.Detail = err.Error()
	case errors.Is(err, ErrRateLimited):
		p := NewProblem().
			WithTitle("Daily Firebrands already claimed").
			WithStatus(http.StatusTooManyRequests).
			WithCode(claimRateLimited)
		var rl *RateLimitedError
		if errors.As(err, &rl) {
			p.WithParam("nextClaimAt", rl.NextAt.UTC().Format(time.RFC3339))
		}
		problem = p.Build()
	case errors.Is(err, ErrStorageUnavailable):
		log.Warn().Err(err).Msg("Storage unavailable while handling request")
		problem = NewProblem().
			WithTitle("Trouble accessing data, try again").
			WithStatus(http.StatusServiceUnavailable).
			WithCode(storageUnavailable).
			Build()
	default:
		problem = UnexpectedProblem(err)
	}

	return &ProblemWithTrace{Problem: problem, Cause: err}
}
