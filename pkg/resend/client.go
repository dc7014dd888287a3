package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	apiKey     string
	fromEmail  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, fromEmail string) *Client {
	return &Client{
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		baseURL:    "https://api.resend.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured reports whether the client can actually send
func (c *Client) IsConfigured() bool {
	return c.apiKey != "" && c.fromEmail != ""
}

type SendEmailRequest struct {
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html,omitempty"`
	Text    string            `json:"text,omitempty"`
	ReplyTo string            `json:"reply_to,omitempty"`
	From    string            `json:"from"`
	Headers map[string]string `json:"headers,omitempty"`
}

type SendEmailResponse struct {
	ID string `json:"id"`
}

// SendEmail delivers a single email. The returned ID is Resend's email
// id, stored on the message for correlating delivery webhooks later.
func (c *Client) SendEmail(ctx context.Context, req SendEmailRequest) (*SendEmailResponse, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("resend client not configured")
	}

	if req.From == "" {
		req.From = c.fromEmail
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("resend API error: %s (status %d)", string(body), resp.StatusCode)
	}

	var result SendEmailResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

type EmailStatusResponse struct {
	ID        string   `json:"id"`
	To        []string `json:"to"`
	Subject   string   `json:"subject"`
	LastEvent string   `json:"last_event"`
	CreatedAt string   `json:"created_at"`
}

// GetEmail fetches delivery status for a previously sent email
func (c *Client) GetEmail(ctx context.Context, emailID string) (*EmailStatusResponse, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("resend client not configured")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/emails/"+emailID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resend API error: %s (status %d)", string(body), resp.StatusCode)
	}

	var result EmailStatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}
