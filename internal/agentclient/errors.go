package agentclient

import "fmt"

type ErrJobNotFound struct {
	error
}

func NewErrJobNotFound(id string) *ErrJobNotFound {
	return &ErrJobNotFound{fmt.Errorf("job %s not found", id)}
}

type ErrSubmission struct {
	error
}

func NewErrSubmission(err error) *ErrSubmission {
	return &ErrSubmission{err}
}

func (e *ErrSubmission) Unwrap() error {
	return e.error
}

type ErrAgent struct {
	error
	StatusCode int
}

func NewErrAgent(status int, body string) *ErrAgent {
	return &ErrAgent{error: fmt.Errorf("agent returned status %d: %s", status, body), StatusCode: status}
}
