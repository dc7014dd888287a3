package ai

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

// MockProvider is a mock implementation of Provider for testing
type MockProvider struct {
	name      string
	available bool
	shouldErr bool
}

func (m *MockProvider) GenerateVariations(ctx context.Context, req *VariationRequest) (*VariationResponse, error) {
	if m.shouldErr {
		return nil, errors.New("mock error")
	}
	return &VariationResponse{
		Variations: []string{"variation one", "variation two"},
		Provider:   m.name,
	}, nil
}

func (m *MockProvider) PersonalizeMessage(ctx context.Context, req *PersonalizeRequest) (string, error) {
	if m.shouldErr {
		return "", errors.New("mock error")
	}
	return "Hi " + req.LeadName + ", quick question about " + req.Company, nil
}

func (m *MockProvider) IsAvailable() bool {
	return m.available
}

func (m *MockProvider) Name() string {
	return m.name
}

func TestManager_GetAvailableProvider(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name      string
		providers []Provider
		want      string
		wantNil   bool
	}{
		{
			name: "returns first available provider",
			providers: []Provider{
				&MockProvider{name: "provider1", available: true},
				&MockProvider{name: "provider2", available: true},
			},
			want:    "provider1",
			wantNil: false,
		},
		{
			name: "returns nil when no providers available",
			providers: []Provider{
				&MockProvider{name: "provider1", available: false},
				&MockProvider{name: "provider2", available: false},
			},
			want:    "",
			wantNil: true,
		},
		{
			name: "skips unavailable providers",
			providers: []Provider{
				&MockProvider{name: "provider1", available: false},
				&MockProvider{name: "provider2", available: true},
			},
			want:    "provider2",
			wantNil: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(tt.providers, logger)
			got := m.GetAvailableProvider()

			if tt.wantNil {
				if got != nil {
					t.Errorf("Manager.GetAvailableProvider() = %v, want nil", got)
				}
			} else {
				if got == nil {
					t.Errorf("Manager.GetAvailableProvider() = nil, want %v", tt.want)
				} else if got.Name() != tt.want {
					t.Errorf("Manager.GetAvailableProvider() = %v, want %v", got.Name(), tt.want)
				}
			}
		})
	}
}

func TestManager_GenerateVariations_WithFallback(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name         string
		providers    []Provider
		wantErr      bool
		wantProvider string
	}{
		{
			name: "succeeds with first provider",
			providers: []Provider{
				&MockProvider{name: "provider1", available: true, shouldErr: false},
				&MockProvider{name: "provider2", available: true, shouldErr: false},
			},
			wantErr:      false,
			wantProvider: "provider1",
		},
		{
			name: "falls back to second provider when first fails",
			providers: []Provider{
				&MockProvider{name: "provider1", available: true, shouldErr: true},
				&MockProvider{name: "provider2", available: true, shouldErr: false},
			},
			wantErr:      false,
			wantProvider: "provider2",
		},
		{
			name: "fails when all providers fail",
			providers: []Provider{
				&MockProvider{name: "provider1", available: true, shouldErr: true},
				&MockProvider{name: "provider2", available: true, shouldErr: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(tt.providers, logger)
			req := &VariationRequest{
				BaseMessage: "Hi, do you have 15 minutes this week?",
				Channel:     "whatsapp",
				Count:       2,
				Tone:        "casual",
			}

			resp, err := m.GenerateVariations(context.Background(), req)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Manager.GenerateVariations() expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("Manager.GenerateVariations() error = %v, want nil", err)
				}
				if resp == nil {
					t.Errorf("Manager.GenerateVariations() response = nil, want non-nil")
				} else if resp.Provider != tt.wantProvider {
					t.Errorf("Manager.GenerateVariations() provider = %v, want %v", resp.Provider, tt.wantProvider)
				}
			}
		})
	}
}

func TestManager_PersonalizeMessage_WithFallback(t *testing.T) {
	logger := zap.NewNop()
	m := NewManager([]Provider{
		&MockProvider{name: "provider1", available: true, shouldErr: false},
	}, logger)

	req := &PersonalizeRequest{
		Template: "Hi {{name}}, saw you work at {{company}}",
		LeadName: "Ana",
		Company:  "Acme",
		Segment:  "fintech",
	}

	resp, err := m.PersonalizeMessage(context.Background(), req)
	if err != nil {
		t.Errorf("Manager.PersonalizeMessage() error = %v, want nil", err)
	}
	if resp == "" {
		t.Errorf("Manager.PersonalizeMessage() response = empty, want non-empty")
	}
}
