package util

import (
	"regexp"
	"strings"
)

// CountWords returns the number of whitespace-separated tokens in s.
// It is an approximation of length, not a token count, and is used for
// progress display and cost estimates only.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

var (
	thinkTagRegex        = regexp.MustCompile(`(?i)<think(?:ing)?>([\s\S]*?)</think(?:ing)?>`)
	chineseThinkTagRegex = regexp.MustCompile(`(?i)<思考>([\s\S]*?)</思考>`)
)

// StripThinkTags removes reasoning blocks emitted by reasoning models
func StripThinkTags(response string) string {
	result := thinkTagRegex.ReplaceAllString(response, "")
	result = chineseThinkTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Leading chatter some models put before the requested content.
var preamblePrefixes = []string{
	"sure",
	"certainly",
	"of course",
	"here is",
	"here's",
	"below is",
}

// CleanResponse strips reasoning blocks, a single leading line of chatter
// ("Sure! Here is the subsection:") and surrounding whitespace.
func CleanResponse(content string) string {
	trimmed := StripThinkTags(content)
	if trimmed == "" {
		return ""
	}

	first, rest, found := strings.Cut(trimmed, "\n")
	lower := strings.ToLower(strings.TrimSpace(first))
	if found && strings.HasSuffix(lower, ":") {
		for _, p := range preamblePrefixes {
			if strings.HasPrefix(lower, p) {
				return strings.TrimSpace(rest)
			}
		}
	}

	return trimmed
}

var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N}_\-.]+`)

// SanitizeFileName turns a title into a file-name-safe token: spaces become
// underscores, anything outside letters, digits, "_", "-" and "." is dropped.
func SanitizeFileName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeFileChars.ReplaceAllString(s, "")
	s = strings.Trim(s, "._")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	if len(s) > 80 {
		s = strings.TrimRight(s[:80], "_")
	}
	if s == "" {
		return "untitled"
	}
	return s
}
