package ai

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	logger := zap.NewNop()

	p := NewOpenAIProvider("", "gpt-4o-mini", 500, 10*time.Second, logger)
	if p.IsAvailable() {
		t.Error("provider without API key should not be available")
	}

	p = NewOpenAIProvider("sk-test", "gpt-4o-mini", 500, 10*time.Second, logger)
	if !p.IsAvailable() {
		t.Error("provider with API key should be available")
	}
	if p.Name() != "openai" {
		t.Errorf("Name() = %v, want openai", p.Name())
	}
}

func TestParseVariations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		max     int
		want    []string
	}{
		{
			name:    "numbered list",
			content: "1. First option\n2. Second option\n3. Third option",
			max:     3,
			want:    []string{"First option", "Second option", "Third option"},
		},
		{
			name:    "numbered with parens and blank lines",
			content: "1) First\n\n2) Second\n",
			max:     5,
			want:    []string{"First", "Second"},
		},
		{
			name:    "bulleted list",
			content: "- Alpha\n* Beta",
			max:     2,
			want:    []string{"Alpha", "Beta"},
		},
		{
			name:    "respects max",
			content: "1. One\n2. Two\n3. Three",
			max:     2,
			want:    []string{"One", "Two"},
		},
		{
			name:    "plain lines with quotes",
			content: "\"Hello there\"\n\"Quick question\"",
			max:     0,
			want:    []string{"Hello there", "Quick question"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseVariations(tt.content, tt.max)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseVariations() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseVariations()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
