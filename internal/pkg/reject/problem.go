package reject

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Problem is the JSON body of every failed API call. Code is the dotted
// error code clients switch on; Params carries machine readable extras
// such as the next claim time.
type Problem struct {
	Title  string            `json:"title,omitempty"`
	Status int               `json:"status,omitempty"`
	Detail string            `json:"detail,omitempty"`
	Code   string            `json:"message,omitempty"`
	Params map[string]string `json:"params,omitempty"`
	Errors []ProblemDetail   `json:"errors,omitempty"`
}

type ProblemDetail struct {
	Property string `json:"property,omitempty"`
	Info     string `json:"info,omitempty"`
	Code     string `json:"code,omitempty"`
}

func NewProblem() *Problem {
	return &Problem{}
}

func (p *Problem) WithTitle(title string) *Problem {
	p.Title = title
	return p
}

func (p *Problem) WithStatus(status int) *Problem {
	p.Status = status
	return p
}

func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

func (p *Problem) WithCode(code string) *Problem {
	p.Code = code
	return p
}

func (p *Problem) WithParam(key string, value string) *Problem {
	if p.Params == nil {
		p.Params = map[string]string{}
	}
	p.Params[key] = value
	return p
}

// WithFieldErrors lists the failed binding rules of a request body, one
// detail per field. Other errors are ignored.
func (p *Problem) WithFieldErrors(err error) *Problem {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return p
	}
	for _, fe := range fieldErrors {
		info := fe.Tag()
		if fe.Param() != "" {
			info += "=" + fe.Param()
		}
		p.Errors = append(p.Errors, ProblemDetail{
			Property: lowerFirst(fe.Field()),
			Info:     info,
			Code:     "error.validation." + fe.Tag(),
		})
	}
	return p
}

func (p *Problem) Build() Problem {
	return *p
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
