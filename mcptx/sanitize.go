package mcptx

import "regexp"

// maxSanitizedLength is the hard cap on a sanitized error message. No
// string returned by sanitizeError exceeds this length.
const maxSanitizedLength = 200

// sanitizePatterns redacts credential-shaped tokens and local
// filesystem paths before an error message is ever surfaced to a
// caller or logged. Matching is case-insensitive; the matched value
// (not just the key) is replaced so "Token=abc123" becomes
// "[REDACTED]" in full, not "Token=[REDACTED]".
var sanitizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)password[=:]\s*\S+`),
	regexp.MustCompile(`(?i)token[=:]\s*\S+`),
	regexp.MustCompile(`(?i)key[=:]\s*\S+`),
	regexp.MustCompile(`(?i)secret[=:]\s*\S+`),
	regexp.MustCompile(`(?i)auth[=:]\s*\S+`),
	regexp.MustCompile(`/Users/[^/\s]+`),
	regexp.MustCompile(`/home/[^/\s]+`),
	regexp.MustCompile(`file://\S+`),
}

// sanitizeError converts an arbitrary error into a string safe to
// return to callers and write to logs or lifecycle trackers: secrets
// and local paths are redacted, and the result is truncated to
// maxSanitizedLength characters. sanitizeError is pure and
// deterministic for a given input.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return sanitizeMessage(err.Error())
}

func sanitizeMessage(msg string) string {
	for _, pattern := range sanitizePatterns {
		msg = pattern.ReplaceAllString(msg, "[REDACTED]")
	}
	if len(msg) > maxSanitizedLength {
		msg = msg[:maxSanitizedLength-3] + "..."
	}
	return msg
}
