package assistant

import (
	"strings"

	"concierge/models"
)

// IntentKind classifies a raw user utterance.
type IntentKind string

const (
	IntentOrdinary IntentKind = "ordinary"
	IntentBooking  IntentKind = "booking"
	IntentDiagram  IntentKind = "diagram"
)

// Intent is the classifier result. Diagram is only set for IntentDiagram.
type Intent struct {
	Kind    IntentKind
	Diagram models.DiagramVariant
}

var bookingKeywords = []string{
	"book", "meeting", "schedule", "demo", "appointment", "call", "talk", "speak",
}

var diagramKeywords = []string{
	"show diagram", "show me diagram", "diagram", "visual", "flow chart", "flowchart",
}

// Classify inspects an utterance against the conversation history. Detection
// is substring-based and case-insensitive, with no negation handling: "I don't
// want to schedule anything" still classifies as booking. That imprecision is
// a known product decision, not something to fix here. Booking is checked
// first and is exclusive with diagram for a given utterance.
func Classify(utterance string, turns []models.Turn) Intent {
	m := strings.ToLower(utterance)
	if containsAny(m, bookingKeywords) {
		return Intent{Kind: IntentBooking}
	}
	if containsAny(m, diagramKeywords) {
		return Intent{Kind: IntentDiagram, Diagram: resolveDiagramVariant(m, turns)}
	}
	return Intent{Kind: IntentOrdinary}
}

// resolveDiagramVariant picks the variant for a diagram request: the most
// recent assistant turn already carrying one wins, then a variant word in the
// utterance, then the personal default.
func resolveDiagramVariant(lowered string, turns []models.Turn) models.DiagramVariant {
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.Role == models.RoleAssistant && t.State.Diagram != "" {
			return t.State.Diagram
		}
	}
	if containsAny(lowered, []string{"professional", "business", "corporate"}) {
		return models.DiagramProfessional
	}
	if containsAny(lowered, []string{"personal", "individual"}) {
		return models.DiagramPersonal
	}
	return models.DiagramPersonal
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
