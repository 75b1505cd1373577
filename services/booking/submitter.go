package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"concierge/models"
)

// Submitter delivers a confirmed meeting request to the lead-capture endpoint.
type Submitter interface {
	Submit(ctx context.Context, sub models.BookingSubmission) error
}

// LeadSubmitter is the HTTP implementation of Submitter. Like the gateway
// client it carries no timeout; the wizard's disabled submit button is the
// only guard while the request is in flight.
type LeadSubmitter struct {
	url    string
	client *http.Client
}

func NewLeadSubmitter(url string) *LeadSubmitter {
	return &LeadSubmitter{
		url:    url,
		client: &http.Client{},
	}
}

func (s *LeadSubmitter) Submit(ctx context.Context, sub models.BookingSubmission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal booking submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build lead request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("call lead endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("lead endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
