package models

import (
	"fmt"
	"time"
)

// BookingDateLayout is the wire format for wizard dates.
const BookingDateLayout = "2006-01-02"

// BookingDraft collects the fields of a meeting request step by step. It is
// owned by the booking wizard and discarded once submitted.
type BookingDraft struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	Timezone string `json:"timezone"`
}

// BookingSubmission is the payload forwarded to the lead-capture endpoint.
type BookingSubmission struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Timezone  string `json:"timezone"`
	Source    string `json:"source"`
	PageTitle string `json:"pageTitle,omitempty"`
	Timestamp string `json:"timestamp"`
}

// BookingDateWindow returns the fixed forward-looking window of selectable
// dates: tomorrow through fourteen days out, anchored at now.
func BookingDateWindow(now time.Time) []string {
	dates := make([]string, 0, 14)
	for i := 1; i <= 14; i++ {
		dates = append(dates, now.AddDate(0, 0, i).Format(BookingDateLayout))
	}
	return dates
}

// BookingTimeSlots returns the fixed half-hour slot catalog, 09:00 through 16:30.
func BookingTimeSlots() []string {
	slots := make([]string, 0, 16)
	for h := 9; h <= 16; h++ {
		slots = append(slots, fmt.Sprintf("%02d:00", h), fmt.Sprintf("%02d:30", h))
	}
	return slots
}

// BookingTimezones returns the fixed set of named zones offered by the wizard.
func BookingTimezones() []string {
	return []string{
		"Eastern Time (ET)",
		"Central Time (CT)",
		"Mountain Time (MT)",
		"Pacific Time (PT)",
		"GMT (UK)",
		"Central European Time (CET)",
		"India (IST)",
		"Singapore (SGT)",
		"Japan (JST)",
		"Sydney (AEST)",
	}
}

// DefaultBookingTimezone is preselected on the calendar step.
const DefaultBookingTimezone = "Eastern Time (ET)"
