package gate

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxPromptLength caps inbound prompts before they reach the paid API.
const MaxPromptLength = 1000

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	quotePattern = regexp.MustCompile("[\"'`]")

	// Substrings that have no business inside an image prompt. Matching is
	// case-insensitive against the raw prompt, before sanitization.
	denyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<\s*script`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)\bon\w+\s*=`),
		regexp.MustCompile(`(?i)eval\s*\(`),
		regexp.MustCompile(`(?i)document\.cookie`),
		regexp.MustCompile(`\$\{`),
		regexp.MustCompile(`\{\{`),
	}
)

// NormalizePrompt produces the stable cache/dedup key for a prompt.
func NormalizePrompt(prompt string) string {
	return strings.ToLower(strings.TrimSpace(prompt))
}

// ValidatePrompt rejects empty, oversized, or suspicious prompts. The
// returned error message is safe to echo to the caller.
func ValidatePrompt(prompt string) error {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	if len(trimmed) > MaxPromptLength {
		return fmt.Errorf("prompt exceeds %d characters", MaxPromptLength)
	}
	for _, p := range denyPatterns {
		if p.MatchString(trimmed) {
			return fmt.Errorf("prompt contains disallowed content")
		}
	}
	// Markup-only prompts would sanitize down to nothing and reach the paid
	// API empty. Catch them here so the caller gets an input error.
	if SanitizePrompt(trimmed) == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	return nil
}

// SanitizePrompt strips HTML tags and quote characters before the prompt is
// forwarded upstream.
func SanitizePrompt(prompt string) string {
	s := tagPattern.ReplaceAllString(prompt, "")
	s = quotePattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
