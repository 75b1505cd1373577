package assistant

import "errors"

var (
	// ErrConversationBusy rejects free-text submission while a backend
	// round-trip is outstanding or the booking wizard is active.
	ErrConversationBusy = errors.New("conversation is busy")

	// ErrEmptyMessage rejects blank submissions.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNoActiveBooking rejects wizard operations when no wizard is attached
	// to the conversation.
	ErrNoActiveBooking = errors.New("no active booking flow")

	// ErrNotDiagramPrompt rejects answering an offer on a turn that is not
	// showing one.
	ErrNotDiagramPrompt = errors.New("turn is not showing a diagram offer")
)
