package validation

import (
	"strings"
	"testing"
)

func TestTrimAndLimit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"Trims spaces", "  hello  ", 10, "hello"},
		{"Cuts long text", "abcdefgh", 3, "abc"},
		{"Counts runes not bytes", "ñañaña", 2, "ña"},
		{"No limit", "  keep everything ", 0, "keep everything"},
		{"Only spaces", "    ", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrimAndLimit(tt.input, tt.max)
			if result != tt.expected {
				t.Errorf("TrimAndLimit(%q, %d) = %q, want %q", tt.input, tt.max, result, tt.expected)
			}
		})
	}
}

func TestValidGroupName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Normal name", "Dune readers", true},
		{"Empty", "", false},
		{"Whitespace", "   ", false},
		{"At limit", strings.Repeat("a", MaxGroupNameLength), true},
		{"Over limit", strings.Repeat("a", MaxGroupNameLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidGroupName(tt.input); got != tt.expected {
				t.Errorf("ValidGroupName(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

type sampleRequest struct {
	Name   string `validate:"required,max=5"`
	Page   int    `validate:"gte=0"`
	Action string `validate:"omitempty,oneof=promote demote kick"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		req     sampleRequest
		wantErr string
	}{
		{"Valid", sampleRequest{Name: "ok", Page: 1, Action: "kick"}, ""},
		{"Missing name", sampleRequest{Page: 1}, "name is required"},
		{"Long name", sampleRequest{Name: "toolong"}, "name must be at most 5 characters"},
		{"Negative page", sampleRequest{Name: "ok", Page: -1}, "page must be at least 0"},
		{"Bad action", sampleRequest{Name: "ok", Action: "ban"}, "action must be one of: promote demote kick"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("Struct() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
