package models

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DiagramVariant names one of the two journey diagrams the widget can show.
type DiagramVariant string

const (
	DiagramPersonal     DiagramVariant = "personal"
	DiagramProfessional DiagramVariant = "professional"
)

// ParseDiagramVariant resolves a raw word to a variant, case-insensitively.
func ParseDiagramVariant(s string) (DiagramVariant, bool) {
	switch DiagramVariant(strings.ToLower(s)) {
	case DiagramPersonal:
		return DiagramPersonal, true
	case DiagramProfessional:
		return DiagramProfessional, true
	}
	return "", false
}

// DiagramAsset maps a variant 1:1 to its image resource. No other mapping exists.
func DiagramAsset(v DiagramVariant) string {
	if v == DiagramProfessional {
		return "/assets/diagrams/professional-journey.svg"
	}
	return "/assets/diagrams/personal-journey.svg"
}

// TurnStateKind tags the interactive sub-state a turn is in.
type TurnStateKind string

const (
	// TurnPlain is an ordinary content-only turn.
	TurnPlain TurnStateKind = "plain"
	// TurnBookingFlow hosts the booking wizard instead of plain content.
	TurnBookingFlow TurnStateKind = "bookingFlow"
	// TurnDiagramPrompt renders a yes/no diagram offer.
	TurnDiagramPrompt TurnStateKind = "diagramPrompt"
	// TurnDiagramShown renders the diagram itself.
	TurnDiagramShown TurnStateKind = "diagramShown"
)

// TurnState is a tagged variant: exactly one kind at a time, with the diagram
// variant attached for the two diagram kinds. Illegal flag combinations are
// unrepresentable.
type TurnState struct {
	Kind    TurnStateKind
	Diagram DiagramVariant
}

func PlainState() TurnState {
	return TurnState{Kind: TurnPlain}
}

func BookingFlowState() TurnState {
	return TurnState{Kind: TurnBookingFlow}
}

func DiagramPromptState(v DiagramVariant) TurnState {
	return TurnState{Kind: TurnDiagramPrompt, Diagram: v}
}

func DiagramShownState(v DiagramVariant) TurnState {
	return TurnState{Kind: TurnDiagramShown, Diagram: v}
}

// Turn is one entry in the conversation history.
type Turn struct {
	ID      string
	Role    Role
	Content string
	State   TurnState
}

// NewTurn creates a plain turn with a fresh id.
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:      uuid.New().String(),
		Role:    role,
		Content: content,
		State:   PlainState(),
	}
}

// turnJSON is the widget-facing wire shape: the renderer consumes independent
// flags, so the tagged state is flattened on the way out and rebuilt on the
// way in.
type turnJSON struct {
	ID                string         `json:"id"`
	Role              Role           `json:"role"`
	Content           string         `json:"content"`
	BookingFlow       bool           `json:"bookingFlow,omitempty"`
	ShowDiagramPrompt bool           `json:"showDiagramPrompt,omitempty"`
	ShowDiagram       bool           `json:"showDiagram,omitempty"`
	DiagramType       DiagramVariant `json:"diagramType,omitempty"`
	DiagramAsset      string         `json:"diagramAsset,omitempty"`
}

func (t Turn) MarshalJSON() ([]byte, error) {
	out := turnJSON{
		ID:      t.ID,
		Role:    t.Role,
		Content: t.Content,
	}
	switch t.State.Kind {
	case TurnBookingFlow:
		out.BookingFlow = true
	case TurnDiagramPrompt:
		out.ShowDiagramPrompt = true
		out.DiagramType = t.State.Diagram
	case TurnDiagramShown:
		out.ShowDiagram = true
		out.DiagramType = t.State.Diagram
		out.DiagramAsset = DiagramAsset(t.State.Diagram)
	}
	return json.Marshal(out)
}

func (t *Turn) UnmarshalJSON(data []byte) error {
	var in turnJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	t.ID = in.ID
	t.Role = in.Role
	t.Content = in.Content
	switch {
	case in.BookingFlow:
		t.State = BookingFlowState()
	case in.ShowDiagram:
		t.State = DiagramShownState(in.DiagramType)
	case in.ShowDiagramPrompt:
		t.State = DiagramPromptState(in.DiagramType)
	default:
		t.State = PlainState()
	}
	return nil
}
