package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/models"
)

func TestConversationBlobRoundTrip(t *testing.T) {
	prompt := models.NewTurn(models.RoleAssistant, "Sure! Want to see it?")
	prompt.State = models.DiagramPromptState(models.DiagramProfessional)
	shown := models.NewTurn(models.RoleAssistant, "Here is the flow.")
	shown.State = models.DiagramShownState(models.DiagramPersonal)
	host := models.NewTurn(models.RoleAssistant, "")
	host.State = models.BookingFlowState()

	conv := &models.Conversation{
		ID: "conv-1",
		Turns: []models.Turn{
			models.NewTurn(models.RoleUser, "show me the diagram"),
			prompt,
			shown,
			host,
		},
		Busy:      true,
		LastError: "upstream timeout",
	}

	blob, err := encodeConversation(conv)
	require.NoError(t, err)

	got, err := decodeConversation(blob)
	require.NoError(t, err)

	assert.Equal(t, conv.ID, got.ID)
	assert.True(t, got.Busy)
	assert.Equal(t, "upstream timeout", got.LastError)
	require.Len(t, got.Turns, 4)

	assert.Equal(t, models.TurnPlain, got.Turns[0].State.Kind)
	assert.Equal(t, models.TurnDiagramPrompt, got.Turns[1].State.Kind)
	assert.Equal(t, models.DiagramProfessional, got.Turns[1].State.Diagram)
	assert.Equal(t, models.TurnDiagramShown, got.Turns[2].State.Kind)
	assert.Equal(t, models.DiagramPersonal, got.Turns[2].State.Diagram)
	assert.Equal(t, models.TurnBookingFlow, got.Turns[3].State.Kind)
}

func TestMemoryStoreIsolatesSavedState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryConversationStore()

	conv := &models.Conversation{
		ID:    "conv-2",
		Turns: []models.Turn{models.NewTurn(models.RoleUser, "hello")},
	}
	require.NoError(t, store.Save(ctx, conv))

	// Mutating the caller's copy after save must not leak into the store.
	conv.Turns[0].Content = "changed"
	conv.Busy = true

	got, err := store.Get(ctx, "conv-2")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Turns[0].Content)
	assert.False(t, got.Busy)

	// Nor may mutating a fetched copy alter a later fetch.
	got.Turns[0].Content = "changed again"
	again, err := store.Get(ctx, "conv-2")
	require.NoError(t, err)
	assert.Equal(t, "hello", again.Turns[0].Content)
}

func TestMemoryStoreUnknownID(t *testing.T) {
	store := NewMemoryConversationStore()
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
