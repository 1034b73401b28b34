package main

import (
	"regexp"
	"strings"
)

var (
	htmlTagRegex     = regexp.MustCompile(`<[^<>]*>`)
	punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
)

// Normalize reduces raw review text to the canonical form the classifier
// matches against: lowercased, HTML tags and punctuation stripped,
// whitespace collapsed. Idempotent; empty input yields empty output.
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	s = htmlTagRegex.ReplaceAllString(s, " ")
	s = punctuationRegex.ReplaceAllString(s, " ")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
