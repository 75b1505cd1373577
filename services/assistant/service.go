package assistant

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"concierge/models"
	"concierge/services/booking"
)

// greeting seeds every fresh conversation with the widget's opening bubble.
const greeting = "Hi there! I'm the site concierge. Ask me anything about what we do, " +
	"or say \"book a meeting\" and I'll set one up with the team."

// View is the rendering-facing state of one conversation: the turn history
// with its per-turn flags, the busy gate, the last transport error, and the
// booking wizard snapshot while one is active.
type View struct {
	*models.Conversation
	Booking *booking.View `json:"booking,omitempty"`
}

// Service is the widget controller. It wires user input through the intent
// classifier, the reply decoder and the booking wizard, and owns all mutation
// of conversation state. The busy gate lives on each Conversation, never on
// the Service, so independent widget instances cannot interfere.
//
// All conversation mutation is serialized through a per-conversation lock.
// The lock is NOT held across the backend stream: the exchange releases it
// once the busy gate is saved, and on completion re-verifies that its user
// turn is still the newest before folding the reply in, so a "New chat"
// issued mid-stream wins and the late result is discarded.
type Service struct {
	store     ConversationStore
	gateway   ReplyStreamer
	submitter booking.Submitter
	logger    *zap.Logger
	source    string

	mu      sync.Mutex
	wizards map[string]*booking.Wizard
	locks   map[string]*sync.Mutex
}

func NewService(store ConversationStore, gateway ReplyStreamer, submitter booking.Submitter, source string, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		gateway:   gateway,
		submitter: submitter,
		logger:    logger,
		source:    source,
		wizards:   make(map[string]*booking.Wizard),
		locks:     make(map[string]*sync.Mutex),
	}
}

// convLock returns the mutex serializing mutation of one conversation.
func (s *Service) convLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// StartConversation creates an empty conversation seeded with the greeting.
func (s *Service) StartConversation(ctx context.Context) (*View, error) {
	conv := &models.Conversation{
		ID:    uuid.New().String(),
		Turns: []models.Turn{models.NewTurn(models.RoleAssistant, greeting)},
	}
	if err := s.store.Save(ctx, conv); err != nil {
		return nil, err
	}
	return s.view(conv), nil
}

// Get returns the rendering-facing state of a conversation.
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(conv), nil
}

// Reset is the "New chat" action: turns cleared, busy cleared, any in-flight
// wizard discarded, independent of prior state. A backend exchange still
// streaming for this conversation will find its user turn gone and discard
// its result.
func (s *Service) Reset(ctx context.Context, id string) (*View, error) {
	lock := s.convLock(id)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	conv.Turns = []models.Turn{}
	conv.Busy = false
	conv.LastError = ""
	s.detachWizard(id)
	if err := s.store.Save(ctx, conv); err != nil {
		return nil, err
	}
	return s.view(conv), nil
}

// Submit runs one free-text utterance through the full pipeline.
func (s *Service) Submit(ctx context.Context, id, text, pageTitle string) (*View, error) {
	lock := s.convLock(id)
	lock.Lock()

	conv, err := s.store.Get(ctx, id)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		lock.Unlock()
		return nil, ErrEmptyMessage
	}
	if conv.Busy {
		lock.Unlock()
		return nil, ErrConversationBusy
	}

	intent := Classify(text, conv.Turns)

	if intent.Kind == IntentBooking {
		view, err := s.startBookingFlow(ctx, conv, text, pageTitle)
		lock.Unlock()
		return view, err
	}

	if intent.Kind == IntentDiagram {
		// A diagram already offered or shown earlier is flipped on in place:
		// no backend call, no new turn.
		if i := conv.FindDiagramTurn(intent.Diagram); i >= 0 {
			conv.Turns[i].State = models.DiagramShownState(intent.Diagram)
			err := s.store.Save(ctx, conv)
			lock.Unlock()
			if err != nil {
				return nil, err
			}
			return s.view(conv), nil
		}
		// Nothing to flip yet; let the backend answer the request.
	}

	// Ordinary query: close the gate and append the user turn before the
	// lock is released, then stream without holding it.
	userTurn := models.NewTurn(models.RoleUser, text)
	conv.Append(userTurn)
	conv.Busy = true
	conv.LastError = ""
	if err := s.store.Save(ctx, conv); err != nil {
		lock.Unlock()
		return nil, err
	}
	history := append([]models.Turn(nil), conv.Turns...)
	lock.Unlock()

	return s.completeExchange(ctx, id, userTurn.ID, history)
}

// startBookingFlow appends the user turn plus a synthetic assistant turn that
// hosts the wizard, and locks the conversation until the wizard completes.
// Caller holds the conversation lock.
func (s *Service) startBookingFlow(ctx context.Context, conv *models.Conversation, text, pageTitle string) (*View, error) {
	conv.Append(models.NewTurn(models.RoleUser, text))
	host := models.NewTurn(models.RoleAssistant, "")
	host.State = models.BookingFlowState()
	conv.Append(host)
	conv.Busy = true
	if err := s.store.Save(ctx, conv); err != nil {
		return nil, err
	}

	id := conv.ID
	var wz *booking.Wizard
	wz = booking.NewWizard(s.submitter, s.logger, s.source, pageTitle, func() {
		s.completeBookingFlow(id, wz)
	})
	s.mu.Lock()
	s.wizards[id] = wz
	s.mu.Unlock()

	return s.view(conv), nil
}

// completeExchange streams the prepared history to the gateway, then folds
// the outcome back into the conversation. The exchange owns the conversation
// only while the gate it closed is still closed and its user turn is still
// the newest one; otherwise the conversation was reset mid-stream and the
// late result is discarded.
func (s *Service) completeExchange(ctx context.Context, id, userTurnID string, history []models.Turn) (*View, error) {
	var reply string
	body, streamErr := s.gateway.StreamReply(ctx, history)
	if streamErr == nil {
		reply, streamErr = DecodeReply(body)
		body.Close()
	}

	lock := s.convLock(id)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.Busy || len(conv.Turns) == 0 || conv.Turns[len(conv.Turns)-1].ID != userTurnID {
		return s.view(conv), nil
	}

	if streamErr != nil {
		// Transport errors surface as conversation-level state: busy cleared,
		// no assistant turn appended, the user may retry.
		s.logger.Error("assistant exchange failed",
			zap.String("conversation", id),
			zap.Error(streamErr))
		conv.Busy = false
		conv.LastError = streamErr.Error()
	} else {
		clean, variant, offered := ExtractDiagramDirective(reply)
		turn := models.NewTurn(models.RoleAssistant, clean)
		if offered {
			turn.State = models.DiagramPromptState(variant)
		}
		conv.Append(turn)
		conv.Busy = false
	}

	if err := s.store.Save(ctx, conv); err != nil {
		return nil, err
	}
	return s.view(conv), nil
}

// AnswerDiagramPrompt resolves the yes/no offer on a turn: yes swaps the
// prompt for the diagram, no returns the turn to plain content.
func (s *Service) AnswerDiagramPrompt(ctx context.Context, id, turnID string, show bool) (*View, error) {
	lock := s.convLock(id)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	i := conv.FindTurn(turnID)
	if i < 0 || conv.Turns[i].State.Kind != models.TurnDiagramPrompt {
		return nil, ErrNotDiagramPrompt
	}
	if show {
		conv.Turns[i].State = models.DiagramShownState(conv.Turns[i].State.Diagram)
	} else {
		conv.Turns[i].State = models.PlainState()
	}
	if err := s.store.Save(ctx, conv); err != nil {
		return nil, err
	}
	return s.view(conv), nil
}

// BookingInput feeds text to the active wizard's current step.
func (s *Service) BookingInput(ctx context.Context, id, text string) (*View, error) {
	wz := s.wizard(id)
	if wz == nil {
		return nil, ErrNoActiveBooking
	}
	if err := wz.Input(text); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// BookingBack steps the active wizard back one step.
func (s *Service) BookingBack(ctx context.Context, id string) (*View, error) {
	wz := s.wizard(id)
	if wz == nil {
		return nil, ErrNoActiveBooking
	}
	if err := wz.Back(); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// BookingSelectDate picks a calendar date in the active wizard.
func (s *Service) BookingSelectDate(ctx context.Context, id, date string) (*View, error) {
	wz := s.wizard(id)
	if wz == nil {
		return nil, ErrNoActiveBooking
	}
	if err := wz.SelectDate(date); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// BookingSelectTime picks a time slot in the active wizard.
func (s *Service) BookingSelectTime(ctx context.Context, id, slot string) (*View, error) {
	wz := s.wizard(id)
	if wz == nil {
		return nil, ErrNoActiveBooking
	}
	if err := wz.SelectTime(slot); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// BookingSelectTimezone changes the timezone in the active wizard.
func (s *Service) BookingSelectTimezone(ctx context.Context, id, tz string) (*View, error) {
	wz := s.wizard(id)
	if wz == nil {
		return nil, ErrNoActiveBooking
	}
	if err := wz.SelectTimezone(tz); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// BookingSubmit triggers the wizard's terminal submission.
func (s *Service) BookingSubmit(ctx context.Context, id string) (*View, error) {
	wz := s.wizard(id)
	if wz == nil {
		return nil, ErrNoActiveBooking
	}
	if err := wz.Submit(ctx); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// completeBookingFlow unlocks the conversation once the wizard's terminal
// display has run its course, then discards the wizard. The unlock timer may
// outlive its flow: if a reset replaced or discarded the wizard while the
// timer was pending, the stale callback must not touch the new state, so it
// only acts while the scheduling wizard is still the attached one.
func (s *Service) completeBookingFlow(id string, wz *booking.Wizard) {
	lock := s.convLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	current := s.wizards[id]
	s.mu.Unlock()
	if current != wz {
		return
	}

	ctx := context.Background()
	conv, err := s.store.Get(ctx, id)
	if err == nil {
		conv.Busy = false
		if err := s.store.Save(ctx, conv); err != nil {
			s.logger.Error("failed to unlock conversation after booking",
				zap.String("conversation", id), zap.Error(err))
		}
	}
	s.detachWizard(id)
}

func (s *Service) wizard(id string) *booking.Wizard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wizards[id]
}

func (s *Service) detachWizard(id string) {
	s.mu.Lock()
	delete(s.wizards, id)
	s.mu.Unlock()
}

func (s *Service) view(conv *models.Conversation) *View {
	v := &View{Conversation: conv}
	if wz := s.wizard(conv.ID); wz != nil {
		snap := wz.Snapshot()
		v.Booking = &snap
	}
	return v
}
