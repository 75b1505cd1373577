package booking

import "fmt"

// StepError reports invalid input or an illegal transition at a wizard step.
// It blocks the transition and touches no conversation-level state.
type StepError struct {
	Step    Step
	Message string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Message)
}

func NewStepError(step Step, msg string) error {
	return &StepError{Step: step, Message: msg}
}
