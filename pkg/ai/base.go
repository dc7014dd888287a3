package ai

import (
	"context"
)

// Provider is the base interface for all AI providers
type Provider interface {
	// GenerateVariations rewrites a base outreach message into distinct variations
	GenerateVariations(ctx context.Context, req *VariationRequest) (*VariationResponse, error)

	// PersonalizeMessage adapts a template message to a single lead
	PersonalizeMessage(ctx context.Context, req *PersonalizeRequest) (string, error)

	// IsAvailable checks if the provider is available/configured
	IsAvailable() bool

	// Name returns the provider name
	Name() string
}

// VariationRequest represents a message variation request
type VariationRequest struct {
	BaseMessage string
	Channel     string // "whatsapp" or "email"
	Count       int
	Tone        string
	Context     map[string]interface{}
}

// VariationResponse represents a message variation response
type VariationResponse struct {
	Variations []string `json:"variations"`
	Provider   string   `json:"provider"`
}

// PersonalizeRequest represents a per-lead personalization request
type PersonalizeRequest struct {
	Template string
	LeadName string
	Company  string
	Segment  string
	Context  map[string]interface{}
}
