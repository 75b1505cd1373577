package assistant

import (
	"testing"

	"concierge/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		utterance   string
		turns       []models.Turn
		wantKind    IntentKind
		wantDiagram models.DiagramVariant
	}{
		{
			name:      "plain question",
			utterance: "What does your product do?",
			wantKind:  IntentOrdinary,
		},
		{
			name:      "booking keyword",
			utterance: "I'd like to book a demo",
			wantKind:  IntentBooking,
		},
		{
			name:      "booking is case-insensitive",
			utterance: "Can we SCHEDULE something?",
			wantKind:  IntentBooking,
		},
		{
			name:      "negation still triggers booking",
			utterance: "I don't want to schedule anything",
			wantKind:  IntentBooking,
		},
		{
			name:      "booking wins over diagram keywords",
			utterance: "book a meeting about that flowchart",
			wantKind:  IntentBooking,
		},
		{
			name:        "diagram with no history and no variant word defaults to personal",
			utterance:   "can you show me the diagram?",
			wantKind:    IntentDiagram,
			wantDiagram: models.DiagramPersonal,
		},
		{
			name:        "diagram variant from utterance",
			utterance:   "show me the business flowchart",
			wantKind:    IntentDiagram,
			wantDiagram: models.DiagramProfessional,
		},
		{
			name:      "history variant beats utterance variant",
			utterance: "show the personal diagram again",
			turns: []models.Turn{
				{Role: models.RoleAssistant, State: models.DiagramPromptState(models.DiagramProfessional)},
			},
			wantKind:    IntentDiagram,
			wantDiagram: models.DiagramProfessional,
		},
		{
			name:      "most recent history variant wins",
			utterance: "show the flow chart",
			turns: []models.Turn{
				{Role: models.RoleAssistant, State: models.DiagramShownState(models.DiagramProfessional)},
				{Role: models.RoleAssistant, State: models.DiagramPromptState(models.DiagramPersonal)},
			},
			wantKind:    IntentDiagram,
			wantDiagram: models.DiagramPersonal,
		},
		{
			name:      "user turns do not carry variants",
			utterance: "diagram please",
			turns: []models.Turn{
				{Role: models.RoleUser, State: models.DiagramShownState(models.DiagramProfessional)},
			},
			wantKind:    IntentDiagram,
			wantDiagram: models.DiagramPersonal,
		},
		{
			name:      "keyword inside a longer word still matches",
			utterance: "my notebook is broken",
			wantKind:  IntentBooking,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.utterance, tt.turns)

			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", got.Kind, tt.wantKind)
			}
			if got.Kind == IntentDiagram && got.Diagram != tt.wantDiagram {
				t.Errorf("Diagram = %q, want %q", got.Diagram, tt.wantDiagram)
			}
		})
	}
}
