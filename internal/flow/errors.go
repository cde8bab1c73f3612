package flow

import (
	"errors"
	"fmt"
)

// ValidationError means caller input did not satisfy the flow's input contract.
// The model is never called when it is returned.
type ValidationError struct {
	Flow   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("flow %s: invalid input: %s %s", e.Flow, e.Field, e.Reason)
}

// OutputContractError means the model answer could not be coerced into the
// flow's output contract. Raw holds the unparsed answer for diagnostics.
type OutputContractError struct {
	Flow   string
	Field  string
	Reason string
	Raw    string
}

func (e *OutputContractError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("flow %s: bad model output: %s", e.Flow, e.Reason)
	}
	return fmt.Sprintf("flow %s: bad model output: %s %s", e.Flow, e.Field, e.Reason)
}

// AdapterError wraps a failure of the model call itself.
type AdapterError struct {
	Flow string
	Err  error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("flow %s: model call failed: %v", e.Flow, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsOutputContract reports whether err is or wraps an *OutputContractError.
func IsOutputContract(err error) bool {
	var target *OutputContractError
	return errors.As(err, &target)
}

// IsAdapter reports whether err is or wraps an *AdapterError.
func IsAdapter(err error) bool {
	var target *AdapterError
	return errors.As(err, &target)
}

func fieldOf(err error) (string, string) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field, fe.Reason
	}
	return "", err.Error()
}
