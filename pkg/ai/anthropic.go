package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude
type AnthropicProvider struct {
	apiKey    string
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
	baseURL   string
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey, model string, maxTokens int, timeout time.Duration, logger *zap.Logger) *AnthropicProvider {
	if apiKey == "" {
		return &AnthropicProvider{logger: logger}
	}

	return &AnthropicProvider{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger,
		baseURL:   "https://api.anthropic.com/v1",
	}
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable checks if the provider is available
func (p *AnthropicProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// GenerateVariations generates message variations using Anthropic Claude
func (p *AnthropicProvider) GenerateVariations(ctx context.Context, req *VariationRequest) (*VariationResponse, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("Anthropic provider not available")
	}

	count := req.Count
	if count <= 0 {
		count = 3
	}

	systemPrompt := `You are a B2B outreach copywriter. Rewrite the given message into
distinct variations that preserve the original intent and call to action.
Each variation must read naturally on the target channel, avoid spam
trigger phrasing, and stay roughly the same length as the original.
Return ONLY a numbered list, one variation per line.`

	userPrompt := fmt.Sprintf(`Rewrite this %s outreach message into %d variations.
Tone: %s

Message:
%s`, req.Channel, count, req.Tone, req.BaseMessage)

	content, err := p.messages(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	variations := ParseVariations(content, count)
	if len(variations) == 0 {
		return nil, fmt.Errorf("no variations in response")
	}

	return &VariationResponse{
		Variations: variations,
		Provider:   p.Name(),
	}, nil
}

// PersonalizeMessage adapts a template message to a single lead
func (p *AnthropicProvider) PersonalizeMessage(ctx context.Context, req *PersonalizeRequest) (string, error) {
	if !p.IsAvailable() {
		return "", fmt.Errorf("Anthropic provider not available")
	}

	systemPrompt := `You are a B2B outreach copywriter. Adapt the template to the lead
without inventing facts. Keep the structure and call to action intact.
Return ONLY the adapted message, no commentary.`

	userPrompt := fmt.Sprintf(`Template:
%s

Lead name: %s
Company: %s
Segment: %s`, req.Template, req.LeadName, req.Company, req.Segment)

	content, err := p.messages(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(content), nil
}

func (p *AnthropicProvider) messages(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	requestBody := map[string]interface{}{
		"model":      p.model,
		"max_tokens": p.maxTokens,
		"system":     systemPrompt,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": userPrompt,
			},
		},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	client := &http.Client{Timeout: p.timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Anthropic API error: %d - %s", resp.StatusCode, string(body))
	}

	var anthropicResp struct {
		Content []struct {
			Text string `json:"text"`
			Type string `json:"type"`
		} `json:"content"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&anthropicResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(anthropicResp.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	return anthropicResp.Content[0].Text, nil
}
