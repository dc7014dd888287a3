package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// OpenAIProvider implements the Provider interface for OpenAI
type OpenAIProvider struct {
	apiKey    string
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
	baseURL   string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey, model string, maxTokens int, timeout time.Duration, logger *zap.Logger) *OpenAIProvider {
	if apiKey == "" {
		return &OpenAIProvider{logger: logger}
	}

	return &OpenAIProvider{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger,
		baseURL:   "https://api.openai.com/v1",
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is available
func (p *OpenAIProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// GenerateVariations generates message variations using OpenAI
func (p *OpenAIProvider) GenerateVariations(ctx context.Context, req *VariationRequest) (*VariationResponse, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("OpenAI provider not available")
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

	content, err := p.chat(ctx, systemPrompt, userPrompt, 0.8)
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
func (p *OpenAIProvider) PersonalizeMessage(ctx context.Context, req *PersonalizeRequest) (string, error) {
	if !p.IsAvailable() {
		return "", fmt.Errorf("OpenAI provider not available")
	}

	systemPrompt := `You are a B2B outreach copywriter. Adapt the template to the lead
without inventing facts. Keep the structure and call to action intact.
Return ONLY the adapted message, no commentary.`

	userPrompt := fmt.Sprintf(`Template:
%s

Lead name: %s
Company: %s
Segment: %s`, req.Template, req.LeadName, req.Company, req.Segment)

	content, err := p.chat(ctx, systemPrompt, userPrompt, 0.5)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(content), nil
}

func (p *OpenAIProvider) chat(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	messages := []map[string]interface{}{
		{"role": "system", "content": systemPrompt},
		{"role": "user", "content": userPrompt},
	}

	requestBody := map[string]interface{}{
		"model":       p.model,
		"messages":    messages,
		"max_tokens":  p.maxTokens,
		"temperature": temperature,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	client := &http.Client{Timeout: p.timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OpenAI API error: %d - %s", resp.StatusCode, string(body))
	}

	var openAIResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&openAIResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(openAIResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return openAIResp.Choices[0].Message.Content, nil
}

var variationLinePattern = regexp.MustCompile(`^\s*(?:\d+[\.\)]|[-*])\s*`)

// ParseVariations extracts variations from a numbered or bulleted list,
// falling back to non-empty lines. At most max entries are returned.
func ParseVariations(content string, max int) []string {
	var variations []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = variationLinePattern.ReplaceAllString(line, "")
		line = strings.Trim(line, `"`)
		if line == "" {
			continue
		}
		variations = append(variations, line)
		if max > 0 && len(variations) >= max {
			break
		}
	}
	return variations
}
