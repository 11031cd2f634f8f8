package utils

import (
	"strings"
	"testing"
)

func TestTruncateString(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		maxLen        int
		wantTruncated bool
	}{
		{"shorter than maxLen returns unchanged", "hello", 10, false},
		{"exactly at maxLen returns unchanged", "hello", 5, false},
		{"longer than maxLen gets truncated", "hello world", 5, true},
		{"zero maxLen uses default", strings.Repeat("a", DefaultMaxStringLength+1), 0, true},
		{"negative maxLen keeps short input", "short", -1, false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got := TruncateString(testCase.input, testCase.maxLen)
			hasSuffix := strings.Contains(got, "... (truncated, total:")
			if hasSuffix != testCase.wantTruncated {
				t.Errorf("TruncateString(%q, %d) truncated=%v, want %v; got %q",
					testCase.input, testCase.maxLen, hasSuffix, testCase.wantTruncated, got)
			}
		})
	}

	if got := TruncateString("abcdefghij", 4); !strings.HasPrefix(got, "abcd...") {
		t.Errorf("got %q, want prefix %q", got, "abcd...")
	}
}

func TestRedactHeaders(t *testing.T) {
	got := RedactHeaders(map[string]string{
		"x-api-key":         "sk-ant-1234567890",
		"Authorization":     "Bearer sk-proj-abcdefghijkl",
		"anthropic-version": "2023-06-01",
		"api-key":           "short",
	})
	want := "Authorization: Bearer sk-p***kl\n" +
		"anthropic-version: 2023-06-01\n" +
		"api-key: ***\n" +
		"x-api-key: sk-a***90\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
