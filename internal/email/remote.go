package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"beliefpad/api/internal/document"
)

// SendRequest is the body of POST /api/send-email. The PIN travels with
// every request; there is no session.
type SendRequest struct {
	Document       document.Record `json:"document"`
	RecipientEmail string          `json:"recipientEmail" validate:"required,email"`
	SenderName     string          `json:"senderName" validate:"max=200"`
	SenderEmail    string          `json:"senderEmail" validate:"omitempty,email"`
	EmailSubject   string          `json:"emailSubject" validate:"max=500"`
	EmailMessage   string          `json:"emailMessage"`
	PIN            string          `json:"pin" validate:"required"`
}

// SendResponse is the reply of the delivery endpoint.
type SendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RemoteClient hands documents to a beliefpad server for delivery.
type RemoteClient struct {
	baseURL string
	client  *http.Client
}

func NewRemoteClient(baseURL string) *RemoteClient {
	return &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Send posts req and returns the server's message id. Any failure is
// ErrDelivery carrying the server's message verbatim.
func (c *RemoteClient) Send(ctx context.Context, req SendRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/send-email", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build send request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrDelivery, err)
	}

	var out SendResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: %s", ErrDelivery, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		message := out.Message
		if message == "" {
			message = out.Error
		}
		if message == "" {
			message = resp.Status
		}
		return "", fmt.Errorf("%w: %s", ErrDelivery, message)
	}
	return out.MessageID, nil
}
