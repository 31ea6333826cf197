// Package pipeline turns a raw inference response into candidate ledger
// entries: fence stripping, strict decoding and field policy.
package pipeline

import (
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// Sanitize returns the body of the first fenced block in raw, trimmed. Without
// a complete fence pair it returns raw trimmed. It never fails; detecting a
// malformed payload is left to Decode.
func Sanitize(raw string) string {
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}
