package models

// Conversation is the append-only turn history of one widget session, together
// with its busy gate. Turns are never reordered or deleted, only appended or
// mutated in place by id. Each widget instance owns exactly one Conversation;
// nothing is shared across instances.
type Conversation struct {
	ID    string `json:"id"`
	Turns []Turn `json:"turns"`

	// Busy is true while a backend round-trip is outstanding or the booking
	// wizard is active. While true, new free-text submissions are rejected.
	Busy bool `json:"busy"`

	// LastError holds the most recent transport error message, if any.
	LastError string `json:"lastError,omitempty"`
}

// Append adds a turn to the end of the history.
func (c *Conversation) Append(t Turn) {
	c.Turns = append(c.Turns, t)
}

// LatestDiagramVariant scans the history newest-first for an assistant turn
// carrying a diagram variant.
func (c *Conversation) LatestDiagramVariant() (DiagramVariant, bool) {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		t := c.Turns[i]
		if t.Role == RoleAssistant && t.State.Diagram != "" {
			return t.State.Diagram, true
		}
	}
	return "", false
}

// FindDiagramTurn returns the index of the most recent assistant turn
// associated with the given variant, or -1.
func (c *Conversation) FindDiagramTurn(v DiagramVariant) int {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		t := c.Turns[i]
		if t.Role == RoleAssistant && t.State.Diagram == v {
			return i
		}
	}
	return -1
}

// FindTurn returns the index of the turn with the given id, or -1.
func (c *Conversation) FindTurn(id string) int {
	for i := range c.Turns {
		if c.Turns[i].ID == id {
			return i
		}
	}
	return -1
}
