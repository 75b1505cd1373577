package booking

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"concierge/models"
)

// Step names one state of the wizard's linear flow.
type Step string

const (
	StepEmail    Step = "email"
	StepName     Step = "name"
	StepTitle    Step = "title"
	StepCalendar Step = "calendar"
	StepConfirm  Step = "confirm"
)

// SubmitState tracks the confirm step's submit action.
type SubmitState string

const (
	SubmitIdle     SubmitState = "idle"
	SubmitInFlight SubmitState = "submitting"
	SubmitDone     SubmitState = "submitted"
)

// completionDelay separates the terminal "submitted" display from the moment
// the parent conversation is unlocked again.
const completionDelay = 2 * time.Second

// Wizard is the sequential, back-navigable meeting-booking flow:
// email -> name -> title -> calendar -> confirm. One instance serves one
// conversation and is discarded after confirm completes.
type Wizard struct {
	mu          sync.Mutex
	step        Step
	draft       models.BookingDraft
	submitState SubmitState

	// dates is the selectable window, fixed when the wizard is created.
	dates []string

	submitter  Submitter
	logger     *zap.Logger
	source     string
	pageTitle  string
	onComplete func()
	delay      time.Duration
}

// NewWizard creates a wizard at the email step. onComplete fires once, a short
// delay after submission, and is how the parent conversation's busy gate is
// released.
func NewWizard(submitter Submitter, logger *zap.Logger, source, pageTitle string, onComplete func()) *Wizard {
	return &Wizard{
		step:        StepEmail,
		submitState: SubmitIdle,
		draft:       models.BookingDraft{Timezone: models.DefaultBookingTimezone},
		dates:       models.BookingDateWindow(time.Now()),
		submitter:   submitter,
		logger:      logger,
		source:      source,
		pageTitle:   pageTitle,
		onComplete:  onComplete,
		delay:       completionDelay,
	}
}

// Step reports the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Input feeds free-text input to the current collecting step. Invalid input
// blocks advancement: the step does not change and the caller re-prompts.
func (w *Wizard) Input(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	value := strings.TrimSpace(text)
	switch w.step {
	case StepEmail:
		if value == "" || !strings.Contains(value, "@") {
			return NewStepError(StepEmail, "please enter a valid email address")
		}
		w.draft.Email = value
		w.step = StepName
	case StepName:
		if value == "" {
			return NewStepError(StepName, "please enter your name")
		}
		w.draft.Name = value
		w.step = StepTitle
	case StepTitle:
		if value == "" {
			return NewStepError(StepTitle, "please enter your job title")
		}
		w.draft.Title = value
		w.step = StepCalendar
	default:
		return NewStepError(w.step, "this step does not accept text input")
	}
	return nil
}

// Back steps to the previous collecting step. Stored values are retained.
// There is no back-navigation from email or confirm.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.step {
	case StepName:
		w.step = StepEmail
	case StepTitle:
		w.step = StepName
	case StepCalendar:
		w.step = StepTitle
	default:
		return NewStepError(w.step, "cannot go back from this step")
	}
	return nil
}

// SelectDate picks a date from the fixed forward window.
func (w *Wizard) SelectDate(date string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepCalendar {
		return NewStepError(w.step, "not at the calendar step")
	}
	for _, d := range w.dates {
		if d == date {
			w.draft.Date = date
			return nil
		}
	}
	return NewStepError(StepCalendar, "date is outside the selectable window")
}

// SelectTime picks a half-hour slot. A date must already be chosen; once both
// are set the wizard advances to confirm.
func (w *Wizard) SelectTime(slot string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepCalendar {
		return NewStepError(w.step, "not at the calendar step")
	}
	if w.draft.Date == "" {
		return NewStepError(StepCalendar, "choose a date before a time")
	}
	for _, s := range models.BookingTimeSlots() {
		if s == slot {
			w.draft.Time = slot
			w.step = StepConfirm
			return nil
		}
	}
	return NewStepError(StepCalendar, "time is not an offered slot")
}

// SelectTimezone changes the timezone, which defaults and may be changed
// independently at any point of the calendar step.
func (w *Wizard) SelectTimezone(tz string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepCalendar {
		return NewStepError(w.step, "not at the calendar step")
	}
	for _, z := range models.BookingTimezones() {
		if z == tz {
			w.draft.Timezone = tz
			return nil
		}
	}
	return NewStepError(StepCalendar, "unknown timezone")
}

// Submit performs the one outbound submission from the confirm step. It is
// idempotent under double-invocation: a second call while submitting or after
// completion is a no-op. The visitor always sees success; a failed delivery is
// logged and otherwise swallowed, which is an intentional product decision.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.step != StepConfirm {
		w.mu.Unlock()
		return NewStepError(w.step, "nothing to submit yet")
	}
	if w.submitState != SubmitIdle {
		w.mu.Unlock()
		return nil
	}
	w.submitState = SubmitInFlight
	sub := models.BookingSubmission{
		Email:     w.draft.Email,
		Name:      w.draft.Name,
		Title:     w.draft.Title,
		Date:      w.draft.Date,
		Time:      w.draft.Time,
		Timezone:  w.draft.Timezone,
		Source:    w.source,
		PageTitle: w.pageTitle,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	w.mu.Unlock()

	if err := w.submitter.Submit(ctx, sub); err != nil {
		w.logger.Error("booking submission failed",
			zap.String("email", sub.Email),
			zap.Error(err))
	}

	w.mu.Lock()
	w.submitState = SubmitDone
	done := w.onComplete
	delay := w.delay
	w.mu.Unlock()

	if done != nil {
		time.AfterFunc(delay, done)
	}
	return nil
}

// Summary renders the confirm step's human-readable recap.
func (w *Wizard) Summary() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepConfirm {
		return ""
	}
	day, err := time.Parse(models.BookingDateLayout, w.draft.Date)
	if err != nil {
		return w.draft.Date + " at " + w.draft.Time + " (" + w.draft.Timezone + ")"
	}
	return day.Format("Monday, January 2, 2006") + " at " + w.draft.Time + " (" + w.draft.Timezone + ")"
}

// View is the rendering-facing snapshot of the wizard.
type View struct {
	Step        Step                `json:"step"`
	Draft       models.BookingDraft `json:"draft"`
	SubmitState SubmitState         `json:"submitState"`
	Dates       []string            `json:"dates"`
	Times       []string            `json:"times"`
	Timezones   []string            `json:"timezones"`
	Summary     string              `json:"summary,omitempty"`
}

// Snapshot exposes the current step, draft and catalogs for the presentation
// layer. It is the wizard's only read surface.
func (w *Wizard) Snapshot() View {
	summary := w.Summary()
	w.mu.Lock()
	defer w.mu.Unlock()
	return View{
		Step:        w.step,
		Draft:       w.draft,
		SubmitState: w.submitState,
		Dates:       append([]string(nil), w.dates...),
		Times:       models.BookingTimeSlots(),
		Timezones:   models.BookingTimezones(),
		Summary:     summary,
	}
}
