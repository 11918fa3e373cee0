package query

import (
	"errors"
	"fmt"

	"github.com/ziadkadry99/llmlibrarian/internal/catalog"
	"github.com/ziadkadry99/llmlibrarian/internal/silo"
)

// PolicyExitCode is the process exit status for policy errors.
const PolicyExitCode = 2

// PolicyError is a user-facing refusal: a missing or unknown scope, a stale
// catalog, or a request the handlers cannot parse.
type PolicyError struct {
	Message  string
	ExitCode int
	Err      error
}

func (e *PolicyError) Error() string {
	return e.Message
}

func (e *PolicyError) Unwrap() error {
	return e.Err
}

func policyf(format string, args ...any) *PolicyError {
	return &PolicyError{Message: fmt.Sprintf(format, args...), ExitCode: PolicyExitCode}
}

// asPolicy maps known refusals from lower layers onto PolicyError and
// returns every other error unchanged.
func asPolicy(err error) error {
	if err == nil {
		return nil
	}
	var pe *PolicyError
	if errors.As(err, &pe) {
		return err
	}
	var stale *catalog.StaleError
	if errors.As(err, &stale) {
		return &PolicyError{Message: stale.Error(), ExitCode: PolicyExitCode, Err: err}
	}
	if errors.Is(err, silo.ErrUnknownSilo) {
		return &PolicyError{Message: err.Error(), ExitCode: PolicyExitCode, Err: err}
	}
	return err
}

// ExitCode returns the process exit status for err: 0 for nil, the policy
// code for policy errors and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var pe *PolicyError
	if errors.As(err, &pe) {
		return pe.ExitCode
	}
	return 1
}
