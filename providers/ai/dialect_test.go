package ai

import (
	"errors"
	"testing"
)

func TestHasFamily(t *testing.T) {
	tests := []struct {
		model    string
		families []string
		want     bool
	}{
		{"o1", []string{"o1"}, true},
		{"o1-mini", []string{"o1"}, true},
		{"o10", []string{"o1"}, false},
		{"openai/o3-mini", []string{"o3"}, true},
		{"models/gemini-2.5-pro", []string{"gemini-2.5"}, true},
		{"GPT-4o", []string{"gpt-4o"}, true},
		{"deepseek-r1:14b", []string{"deepseek-r1"}, true},
		{"gpt-4o", []string{"o1", "o3"}, false},
	}
	for _, tt := range tests {
		if got := HasFamily(tt.model, tt.families...); got != tt.want {
			t.Errorf("HasFamily(%q, %v) = %v, want %v", tt.model, tt.families, got, tt.want)
		}
	}
}

func TestAccessBaseURL(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"", "https://default"},
		{"api.example.com/", "https://api.example.com"},
		{"http://localhost:11434", "http://localhost:11434"},
	}
	for _, tt := range tests {
		if got := (Access{Host: tt.host}).BaseURL("https://default"); got != tt.want {
			t.Errorf("BaseURL(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestErrorHelpers(t *testing.T) {
	wrapped := errors.Join(errors.New("other"), NewValidationError("openai", "bad %s", "tool"))
	if !IsValidationError(wrapped) {
		t.Error("expected a wrapped validation error")
	}
	if got := NewValidationError("openai", "bad").Error(); got != "openai: validation: bad" {
		t.Errorf("got %q", got)
	}
	if !IsProtocolViolation(NewProtocolViolation("openai", "id changed")) {
		t.Error("expected a protocol violation")
	}
	cause := errors.New("reset")
	failure := &TransportFailure{Op: TransportRead, Err: cause}
	if !errors.Is(failure, cause) || failure.Error() != "transport read: reset" {
		t.Errorf("got %v", failure)
	}
	if got := (&DialectIssue{Vendor: "gemini", StatusCode: 429, Message: "quota"}).Error(); got != "gemini: upstream error (429): quota" {
		t.Errorf("got %q", got)
	}
}
