package reject

type ProblemWithTrace struct {
	Problem Problem
	Cause   error
}

func (p *ProblemWithTrace) Error() string {
	if p.Cause != nil {
		return p.Problem.Title + ": " + p.Cause.Error()
	}
	return p.Problem.Title
}

func (p *ProblemWithTrace) Unwrap() error {
	return p.Cause
}
