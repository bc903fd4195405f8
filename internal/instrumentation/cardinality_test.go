package instrumentation

import "testing"

func TestExtractSenderDomain(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"jane@example.com", "example.com"},
		{"boss@Corp.COM", "corp.com"},
		{"invalid", "unknown"},
		{"", "unknown"},
		{"trailing@", "unknown"},
		{"a@b@c", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ExtractSenderDomain(tt.input); got != tt.expected {
				t.Errorf("ExtractSenderDomain(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
