package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"concierge/services/assistant"
)

// AssistantHandler exposes the conversation lifecycle and message submission.
type AssistantHandler struct {
	Svc *assistant.Service
}

func NewAssistantHandler(svc *assistant.Service) *AssistantHandler {
	return &AssistantHandler{Svc: svc}
}

// SubmitMessageRequest is the free-text submission payload.
type SubmitMessageRequest struct {
	Text      string `json:"text"`
	PageTitle string `json:"pageTitle"`
}

// AnswerDiagramRequest resolves a pending diagram offer on a turn.
type AnswerDiagramRequest struct {
	TurnID string `json:"turnId" binding:"required"`
	Show   bool   `json:"show"`
}

// StartConversation creates a fresh conversation seeded with the greeting.
func (h *AssistantHandler) StartConversation(c *gin.Context) {
	view, err := h.Svc.StartConversation(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create conversation", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetConversation returns the rendering-facing state.
func (h *AssistantHandler) GetConversation(c *gin.Context) {
	view, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondConversationError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitMessage runs one utterance through the controller pipeline.
func (h *AssistantHandler) SubmitMessage(c *gin.Context) {
	var req SubmitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	view, err := h.Svc.Submit(c.Request.Context(), c.Param("id"), req.Text, req.PageTitle)
	if err != nil {
		respondConversationError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AnswerDiagram resolves the yes/no offer on a turn.
func (h *AssistantHandler) AnswerDiagram(c *gin.Context) {
	var req AnswerDiagramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	view, err := h.Svc.AnswerDiagramPrompt(c.Request.Context(), c.Param("id"), req.TurnID, req.Show)
	if err != nil {
		respondConversationError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ResetConversation is the "New chat" action.
func (h *AssistantHandler) ResetConversation(c *gin.Context) {
	view, err := h.Svc.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondConversationError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func respondConversationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, assistant.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found or expired"})
	case errors.Is(err, assistant.ErrConversationBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "conversation is busy"})
	case errors.Is(err, assistant.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is empty"})
	case errors.Is(err, assistant.ErrNoActiveBooking):
		c.JSON(http.StatusConflict, gin.H{"error": "no active booking flow"})
	case errors.Is(err, assistant.ErrNotDiagramPrompt):
		c.JSON(http.StatusConflict, gin.H{"error": "turn is not showing a diagram offer"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "details": err.Error()})
	}
}
