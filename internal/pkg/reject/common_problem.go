package reject

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

const (
	genericUnexpectedError string = "error.generic.unexpected"
	cannotParseParams      string = "error.generic.cannot-parse-params"
	invalidRequest         string = "error.generic.invalid-request-payload"
	cannotParseBody        string = "error.generic.cannot-parse-payload"
	genericNotFound        string = "error.generic.not-found"
	forbidden              string = "error.generic.forbidden"
	tooManyRequests        string = "error.generic.too-many-requests"
)

// RequestValidationProblem renders a failed ShouldBindJSON. Bodies that are
// not JSON at all get the parse problem instead.
func RequestValidationProblem(bindErr error) Problem {
	var fieldErrors validator.ValidationErrors
	if !errors.As(bindErr, &fieldErrors) {
		return BodyParseProblem()
	}
	return NewProblem().
		WithTitle("Invalid request payload").
		WithStatus(http.StatusBadRequest).
		WithCode(invalidRequest).
		WithFieldErrors(fieldErrors).
		Build()
}

func RequestParamsProblem() Problem {
	return NewProblem().
		WithTitle("Invalid request parameters").
		WithStatus(http.StatusBadRequest).
		WithCode(cannotParseParams).
		Build()
}

func BodyParseProblem() Problem {
	return NewProblem().
		WithTitle("Cannot read payload").
		WithStatus(http.StatusBadRequest).
		WithCode(cannotParseBody).
		Build()
}

func NotFoundProblem() Problem {
	return NewProblem().
		WithTitle("Record not found").
		WithStatus(http.StatusNotFound).
		WithCode(genericNotFound).
		Build()
}

func ForbiddenProblem() Problem {
	return NewProblem().
		WithTitle("Not allowed").
		WithStatus(http.StatusForbidden).
		WithCode(forbidden).
		Build()
}

func TooManyRequestsProblem() Problem {
	return NewProblem().
		WithTitle("Too many requests").
		WithStatus(http.StatusTooManyRequests).
		WithCode(tooManyRequests).
		Build()
}

func UnexpectedProblem(err error) Problem {
	log.Error().Err(err).Msg("Unexpected error while handling request")
	return NewProblem().
		WithTitle("Unexpected error").
		WithStatus(http.StatusInternalServerError).
		WithCode(genericUnexpectedError).
		Build()
}
