package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"concierge/models"
)

// systemInstruction frames the assistant for every exchange. It also teaches
// the backend the diagram-offer directive that ExtractDiagramDirective strips
// back out of replies.
const systemInstruction = "You are the site concierge. Answer briefly and helpfully. " +
	"When the visitor would benefit from seeing a journey diagram, include the marker " +
	"[DIAGRAM_PROMPT:personal] or [DIAGRAM_PROMPT:professional] in your reply."

// ReplyStreamer sends the ordered turn history to the assistant backend and
// returns its raw chunked reply stream.
type ReplyStreamer interface {
	StreamReply(ctx context.Context, turns []models.Turn) (io.ReadCloser, error)
}

type gatewayMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type gatewayRequest struct {
	Messages []gatewayMessage `json:"messages"`
}

// GatewayClient is the HTTP implementation of ReplyStreamer.
//
// The client carries no timeout and the stream is never cancelled mid-read: a
// hung gateway leaves the conversation busy until the widget is reopened.
// Known limitation, kept deliberately.
type GatewayClient struct {
	url    string
	client *http.Client
}

func NewGatewayClient(url string) *GatewayClient {
	return &GatewayClient{url: url, client: &http.Client{}}
}

func (g *GatewayClient) StreamReply(ctx context.Context, turns []models.Turn) (io.ReadCloser, error) {
	req := gatewayRequest{
		Messages: make([]gatewayMessage, 0, len(turns)+1),
	}
	req.Messages = append(req.Messages, gatewayMessage{Role: "system", Content: systemInstruction})
	for _, t := range turns {
		req.Messages = append(req.Messages, gatewayMessage{Role: string(t.Role), Content: t.Content})
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call assistant gateway: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("assistant gateway returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
