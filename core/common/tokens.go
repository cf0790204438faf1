package common

import "strings"

// charsPerToken is the rough character-to-token ratio used for budgeting.
// Good enough for English prose; the budget guarantee only needs an upper bound.
const charsPerToken = 4

// EstimateTokens estimates the token count of s.
func EstimateTokens(s string) int {
	return EstimateTokensForLength(len(s))
}

// EstimateTokensForLength estimates the token count of a string n bytes long.
// Lets callers budget a concatenation without materializing it.
func EstimateTokensForLength(n int) int {
	return n / charsPerToken
}

// TruncateToTokens cuts s so its estimated token count does not exceed maxTokens.
// It prefers ending at the last sentence terminator found after 80% of the
// target cut point; when none exists it hard-cuts at the character boundary.
func TruncateToTokens(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	limit := maxTokens * charsPerToken
	if len(s) <= limit {
		return s
	}

	truncated := s[:limit]
	floor := limit * 8 / 10
	cut := -1
	for _, term := range []string{".", "?", "!"} {
		if idx := strings.LastIndex(truncated, term); idx >= floor && idx > cut {
			cut = idx
		}
	}
	if cut >= 0 {
		return truncated[:cut+1]
	}
	return truncated
}
