// Package textnorm turns raw resume and job description text into the
// canonical token strings and skill sets consumed by the feature builder.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern   = regexp.MustCompile(`http\S+|www\S+`)
	emailPattern = regexp.MustCompile(`\S+@\S+`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	punctPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Clean lowercases text and strips urls, email addresses, phone numbers and
// punctuation. The result holds only letters, digits and underscores
// separated by single spaces.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFC.String(strings.ToValidUTF8(text, " "))
	text = strings.ToLower(text)

	text = urlPattern.ReplaceAllString(text, "")
	text = emailPattern.ReplaceAllString(text, "")
	text = phonePattern.ReplaceAllString(text, "")
	text = punctPattern.ReplaceAllString(text, " ")
	text = spacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// containsPhrase reports whether phrase occurs in cleaned text as whole words.
// Both arguments must already be cleaned.
func containsPhrase(cleaned, phrase string) bool {
	if phrase == "" || cleaned == "" {
		return false
	}
	return strings.Contains(" "+cleaned+" ", " "+phrase+" ")
}

// ContainsPhrase reports whether phrase occurs in text as whole words after
// both are cleaned.
func ContainsPhrase(text, phrase string) bool {
	return containsPhrase(Clean(text), Clean(phrase))
}
