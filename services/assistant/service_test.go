package assistant

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"concierge/models"
)

type fakeStreamer struct {
	stream string
	err    error
	calls  int32
	turns  []models.Turn
}

func (f *fakeStreamer) StreamReply(ctx context.Context, turns []models.Turn) (io.ReadCloser, error) {
	atomic.AddInt32(&f.calls, 1)
	f.turns = append([]models.Turn(nil), turns...)
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.stream)), nil
}

type nopSubmitter struct{}

func (nopSubmitter) Submit(ctx context.Context, sub models.BookingSubmission) error { return nil }

func newTestService(streamer *fakeStreamer) *Service {
	return NewService(NewMemoryConversationStore(), streamer, nopSubmitter{}, "assistant-widget", zap.NewNop())
}

func startConversation(t *testing.T, s *Service) string {
	t.Helper()
	view, err := s.StartConversation(context.Background())
	require.NoError(t, err)
	require.Len(t, view.Turns, 1, "fresh conversation carries the greeting")
	require.Equal(t, models.RoleAssistant, view.Turns[0].Role)
	return view.ID
}

func TestSubmitOrdinaryQuery(t *testing.T) {
	streamer := &fakeStreamer{stream: "0:\"Hel\"\n0:\"lo\"\n1:ignored\n"}
	s := newTestService(streamer)
	id := startConversation(t, s)

	view, err := s.Submit(context.Background(), id, "what do you do?", "")
	require.NoError(t, err)

	require.Len(t, view.Turns, 3)
	assert.Equal(t, models.RoleUser, view.Turns[1].Role)
	assert.Equal(t, "what do you do?", view.Turns[1].Content)
	assert.Equal(t, models.RoleAssistant, view.Turns[2].Role)
	assert.Equal(t, "Hello", view.Turns[2].Content)
	assert.Equal(t, models.TurnPlain, view.Turns[2].State.Kind)
	assert.False(t, view.Busy, "busy clears once the reply lands")

	// The full history, user turn included, went upstream.
	require.Len(t, streamer.turns, 2)
	assert.Equal(t, "what do you do?", streamer.turns[1].Content)
}

func TestSubmitRejectsEmptyAndBusy(t *testing.T) {
	s := newTestService(&fakeStreamer{stream: "0:\"ok\"\n"})
	id := startConversation(t, s)

	_, err := s.Submit(context.Background(), id, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	// Lock the conversation through the booking path, then try free text.
	_, err = s.Submit(context.Background(), id, "book a demo", "")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), id, "hello?", "")
	assert.ErrorIs(t, err, ErrConversationBusy)
}

func TestSubmitBookingAppendsTwoTurnsAndLocks(t *testing.T) {
	streamer := &fakeStreamer{stream: "0:\"unused\"\n"}
	s := newTestService(streamer)
	id := startConversation(t, s)

	view, err := s.Submit(context.Background(), id, "let's schedule a call about the flowchart", "Home")
	require.NoError(t, err)

	require.Len(t, view.Turns, 3, "user turn plus synthetic wizard host turn")
	assert.Equal(t, models.RoleUser, view.Turns[1].Role)
	assert.Equal(t, models.RoleAssistant, view.Turns[2].Role)
	assert.Equal(t, models.TurnBookingFlow, view.Turns[2].State.Kind)
	assert.Empty(t, view.Turns[2].Content)
	assert.True(t, view.Busy)
	assert.EqualValues(t, 0, atomic.LoadInt32(&streamer.calls), "booking never calls the backend")

	require.NotNil(t, view.Booking, "wizard snapshot exposed while active")
	assert.EqualValues(t, "email", view.Booking.Step)
}

func TestSubmitDiagramReplyCarriesPrompt(t *testing.T) {
	streamer := &fakeStreamer{stream: "0:\"Sure! [DIAGRAM_PROMPT:professional] Want to see it?\"\n"}
	s := newTestService(streamer)
	id := startConversation(t, s)

	view, err := s.Submit(context.Background(), id, "how does onboarding work for companies?", "")
	require.NoError(t, err)

	last := view.Turns[len(view.Turns)-1]
	assert.Equal(t, "Sure! Want to see it?", last.Content)
	assert.Equal(t, models.TurnDiagramPrompt, last.State.Kind)
	assert.Equal(t, models.DiagramProfessional, last.State.Diagram)
}

func TestSubmitDiagramFlipBypassesBackend(t *testing.T) {
	streamer := &fakeStreamer{stream: "0:\"Sure! [DIAGRAM_PROMPT:professional] Want to see it?\"\n"}
	s := newTestService(streamer)
	id := startConversation(t, s)

	_, err := s.Submit(context.Background(), id, "how does onboarding work?", "")
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&streamer.calls))

	view, err := s.Submit(context.Background(), id, "yes, show me the diagram", "")
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&streamer.calls), "flip path must not call the backend")
	require.Len(t, view.Turns, 3, "flip appends no new turn")
	last := view.Turns[len(view.Turns)-1]
	assert.Equal(t, models.TurnDiagramShown, last.State.Kind)
	assert.Equal(t, models.DiagramProfessional, last.State.Diagram)
	assert.False(t, view.Busy)
}

func TestSubmitDiagramWithoutHistoryGoesToBackend(t *testing.T) {
	streamer := &fakeStreamer{stream: "0:\"Here you go.\"\n"}
	s := newTestService(streamer)
	id := startConversation(t, s)

	view, err := s.Submit(context.Background(), id, "show me a visual", "")
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&streamer.calls))
	assert.Equal(t, "Here you go.", view.Turns[len(view.Turns)-1].Content)
}

func TestSubmitTransportErrorSurfacesOnConversation(t *testing.T) {
	streamer := &fakeStreamer{err: errors.New("gateway unreachable")}
	s := newTestService(streamer)
	id := startConversation(t, s)

	view, err := s.Submit(context.Background(), id, "hello", "")
	require.NoError(t, err, "transport failure is conversation state, not a request error")

	assert.Contains(t, view.LastError, "gateway unreachable")
	assert.False(t, view.Busy)
	require.Len(t, view.Turns, 2, "no assistant turn on a failed exchange")

	// The user may retry once the gate is clear.
	streamer.err = nil
	streamer.stream = "0:\"recovered\"\n"
	view, err = s.Submit(context.Background(), id, "hello again", "")
	require.NoError(t, err)
	assert.Empty(t, view.LastError)
	assert.Equal(t, "recovered", view.Turns[len(view.Turns)-1].Content)
}

func TestSubmitEmptyStreamUsesFallback(t *testing.T) {
	s := newTestService(&fakeStreamer{stream: "e:{}\n"})
	id := startConversation(t, s)

	view, err := s.Submit(context.Background(), id, "hello", "")
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, view.Turns[len(view.Turns)-1].Content)
}

func TestAnswerDiagramPrompt(t *testing.T) {
	streamer := &fakeStreamer{stream: "0:\"Sure! [DIAGRAM_PROMPT:personal] Want to see it?\"\n"}
	s := newTestService(streamer)
	id := startConversation(t, s)

	view, err := s.Submit(context.Background(), id, "tell me about the journey", "")
	require.NoError(t, err)
	promptTurn := view.Turns[len(view.Turns)-1]

	// Declining returns the turn to plain content.
	view, err = s.AnswerDiagramPrompt(context.Background(), id, promptTurn.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.TurnPlain, view.Turns[len(view.Turns)-1].State.Kind)

	// A second answer has no prompt to resolve.
	_, err = s.AnswerDiagramPrompt(context.Background(), id, promptTurn.ID, true)
	assert.ErrorIs(t, err, ErrNotDiagramPrompt)
}

func TestAnswerDiagramPromptAccept(t *testing.T) {
	streamer := &fakeStreamer{stream: "0:\"Sure! [DIAGRAM_PROMPT:personal] Want to see it?\"\n"}
	s := newTestService(streamer)
	id := startConversation(t, s)

	view, err := s.Submit(context.Background(), id, "tell me about the journey", "")
	require.NoError(t, err)
	promptTurn := view.Turns[len(view.Turns)-1]

	view, err = s.AnswerDiagramPrompt(context.Background(), id, promptTurn.ID, true)
	require.NoError(t, err)
	last := view.Turns[len(view.Turns)-1]
	assert.Equal(t, models.TurnDiagramShown, last.State.Kind)
	assert.Equal(t, models.DiagramPersonal, last.State.Diagram)
}

func TestBookingFlowThroughService(t *testing.T) {
	s := newTestService(&fakeStreamer{})
	id := startConversation(t, s)

	_, err := s.Submit(context.Background(), id, "book a meeting", "Docs")
	require.NoError(t, err)

	// Step errors block advancement without touching conversation state.
	_, err = s.BookingInput(context.Background(), id, "not-an-email")
	require.Error(t, err)

	view, err := s.BookingInput(context.Background(), id, "a@b.com")
	require.NoError(t, err)
	assert.EqualValues(t, "name", view.Booking.Step)

	view, err = s.BookingBack(context.Background(), id)
	require.NoError(t, err)
	assert.EqualValues(t, "email", view.Booking.Step)
	assert.Equal(t, "a@b.com", view.Booking.Draft.Email, "back retains collected values")

	_, err = s.BookingInput(context.Background(), id, "a@b.com")
	require.NoError(t, err)
	_, err = s.BookingInput(context.Background(), id, "Ada")
	require.NoError(t, err)
	view, err = s.BookingInput(context.Background(), id, "CTO")
	require.NoError(t, err)
	assert.EqualValues(t, "calendar", view.Booking.Step)

	require.NotEmpty(t, view.Booking.Dates)
	view, err = s.BookingSelectDate(context.Background(), id, view.Booking.Dates[0])
	require.NoError(t, err)
	view, err = s.BookingSelectTime(context.Background(), id, "09:30")
	require.NoError(t, err)
	assert.EqualValues(t, "confirm", view.Booking.Step)
	assert.NotEmpty(t, view.Booking.Summary)

	view, err = s.BookingSubmit(context.Background(), id)
	require.NoError(t, err)
	assert.EqualValues(t, "submitted", view.Booking.SubmitState)
	assert.True(t, view.Busy, "gate releases only after the completion delay")
}

func TestBookingOpsWithoutWizard(t *testing.T) {
	s := newTestService(&fakeStreamer{})
	id := startConversation(t, s)

	_, err := s.BookingInput(context.Background(), id, "a@b.com")
	assert.ErrorIs(t, err, ErrNoActiveBooking)
	_, err = s.BookingSubmit(context.Background(), id)
	assert.ErrorIs(t, err, ErrNoActiveBooking)
}

func TestResetClearsEverything(t *testing.T) {
	s := newTestService(&fakeStreamer{err: errors.New("down")})
	id := startConversation(t, s)

	_, err := s.Submit(context.Background(), id, "hi there", "")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), id, "book a call", "")
	require.NoError(t, err)

	view, err := s.Reset(context.Background(), id)
	require.NoError(t, err)

	assert.Empty(t, view.Turns)
	assert.False(t, view.Busy)
	assert.Empty(t, view.LastError)
	assert.Nil(t, view.Booking, "wizard discarded on reset")

	_, err = s.BookingInput(context.Background(), id, "a@b.com")
	assert.ErrorIs(t, err, ErrNoActiveBooking)
}

func TestGetUnknownConversation(t *testing.T) {
	s := newTestService(&fakeStreamer{})
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

// blockingStreamer parks StreamReply until released, so tests can interleave
// other operations with an exchange that is still in flight.
type blockingStreamer struct {
	started chan struct{}
	release chan struct{}
	stream  string
	calls   int32
}

func newBlockingStreamer(stream string) *blockingStreamer {
	return &blockingStreamer{
		started: make(chan struct{}),
		release: make(chan struct{}),
		stream:  stream,
	}
}

func (b *blockingStreamer) StreamReply(ctx context.Context, turns []models.Turn) (io.ReadCloser, error) {
	if atomic.AddInt32(&b.calls, 1) == 1 {
		close(b.started)
	}
	<-b.release
	return io.NopCloser(strings.NewReader(b.stream)), nil
}

type submitResult struct {
	view *View
	err  error
}

func TestResetDuringExchangeDiscardsLateReply(t *testing.T) {
	streamer := newBlockingStreamer("0:\"late answer\"\n")
	s := NewService(NewMemoryConversationStore(), streamer, nopSubmitter{}, "assistant-widget", zap.NewNop())
	id := startConversation(t, s)

	done := make(chan submitResult, 1)
	go func() {
		view, err := s.Submit(context.Background(), id, "hello", "")
		done <- submitResult{view, err}
	}()
	<-streamer.started

	view, err := s.Reset(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, view.Turns)

	close(streamer.release)
	res := <-done
	require.NoError(t, res.err)
	assert.Empty(t, res.view.Turns, "reply arriving after a reset is dropped")

	// The cleared history stays cleared; the late exchange must not save its
	// pre-reset snapshot back.
	final, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, final.Turns)
	assert.False(t, final.Busy)
	assert.Empty(t, final.LastError)
}

func TestConcurrentSubmitLetsOneThrough(t *testing.T) {
	streamer := newBlockingStreamer("0:\"first answer\"\n")
	s := NewService(NewMemoryConversationStore(), streamer, nopSubmitter{}, "assistant-widget", zap.NewNop())
	id := startConversation(t, s)

	done := make(chan submitResult, 1)
	go func() {
		view, err := s.Submit(context.Background(), id, "first question", "")
		done <- submitResult{view, err}
	}()
	<-streamer.started

	// The gate is already closed when the second submit arrives.
	_, err := s.Submit(context.Background(), id, "second question", "")
	assert.ErrorIs(t, err, ErrConversationBusy)

	close(streamer.release)
	res := <-done
	require.NoError(t, res.err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&streamer.calls), "only one exchange reaches the backend")
	require.Len(t, res.view.Turns, 3)
	assert.Equal(t, "first question", res.view.Turns[1].Content)
	assert.Equal(t, "first answer", res.view.Turns[2].Content)
}

func TestResetDiscardsPendingBookingUnlock(t *testing.T) {
	s := newTestService(&fakeStreamer{})
	id := startConversation(t, s)

	// Drive a first booking all the way to submission, which schedules the
	// delayed unlock.
	_, err := s.Submit(context.Background(), id, "book a meeting", "")
	require.NoError(t, err)
	_, err = s.BookingInput(context.Background(), id, "a@b.com")
	require.NoError(t, err)
	_, err = s.BookingInput(context.Background(), id, "Ada")
	require.NoError(t, err)
	view, err := s.BookingInput(context.Background(), id, "CTO")
	require.NoError(t, err)
	_, err = s.BookingSelectDate(context.Background(), id, view.Booking.Dates[0])
	require.NoError(t, err)
	_, err = s.BookingSelectTime(context.Background(), id, "09:30")
	require.NoError(t, err)
	_, err = s.BookingSubmit(context.Background(), id)
	require.NoError(t, err)

	// Abandon that flow and start a fresh one while the unlock is pending.
	_, err = s.Reset(context.Background(), id)
	require.NoError(t, err)
	view, err = s.Submit(context.Background(), id, "book a call", "")
	require.NoError(t, err)
	require.NotNil(t, view.Booking)

	// Outlive the first flow's unlock timer.
	time.Sleep(2500 * time.Millisecond)

	view, err = s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, view.Busy, "stale unlock must not release the new flow's gate")
	require.NotNil(t, view.Booking, "stale unlock must not discard the new wizard")

	_, err = s.BookingInput(context.Background(), id, "b@c.com")
	require.NoError(t, err)
}
