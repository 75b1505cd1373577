package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"concierge/services/booking"
)

// BookingInputRequest carries free-text input for the wizard's current step.
type BookingInputRequest struct {
	Text string `json:"text"`
}

// BookingCalendarRequest selects a date, a time and/or a timezone.
type BookingCalendarRequest struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
}

// BookingInput feeds text to the wizard (email, name, title steps).
func (h *AssistantHandler) BookingInput(c *gin.Context) {
	var req BookingInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	view, err := h.Svc.BookingInput(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// BookingBack navigates the wizard one step back.
func (h *AssistantHandler) BookingBack(c *gin.Context) {
	view, err := h.Svc.BookingBack(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// BookingCalendar applies date/time/timezone selections. Selections are
// applied in timezone, date, time order so a single request can carry all of
// them; picking the time is what advances to confirm.
func (h *AssistantHandler) BookingCalendar(c *gin.Context) {
	var req BookingCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if req.Timezone != "" {
		if _, err := h.Svc.BookingSelectTimezone(ctx, id, req.Timezone); err != nil {
			respondBookingError(c, err)
			return
		}
	}
	if req.Date != "" {
		if _, err := h.Svc.BookingSelectDate(ctx, id, req.Date); err != nil {
			respondBookingError(c, err)
			return
		}
	}
	if req.Time != "" {
		if _, err := h.Svc.BookingSelectTime(ctx, id, req.Time); err != nil {
			respondBookingError(c, err)
			return
		}
	}

	view, err := h.Svc.Get(ctx, id)
	if err != nil {
		respondConversationError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// BookingConfirm triggers the wizard's terminal submission.
func (h *AssistantHandler) BookingConfirm(c *gin.Context) {
	view, err := h.Svc.BookingSubmit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func respondBookingError(c *gin.Context, err error) {
	var stepErr *booking.StepError
	if errors.As(err, &stepErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": stepErr.Message,
			"step":  string(stepErr.Step),
		})
		return
	}
	respondConversationError(c, err)
}
