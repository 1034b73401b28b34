package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the curated keyword sets the classifier matches against
// canonical text. Single-word terms match whole words; multi-word terms
// match as phrases. All terms must already be in canonical (normalized)
// form.
type Lexicon struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

func DefaultLexicon() Lexicon {
	return Lexicon{
		Positive: []string{
			"great", "excellent", "amazing", "love", "loved", "perfect",
			"awesome", "fantastic", "wonderful", "recommend", "fast",
			"quick", "happy", "satisfied", "beautiful", "best", "nice",
			"easy", "helpful", "reliable", "sturdy", "comfortable",
			"on time", "as described", "well made", "five stars",
			"works great", "good quality",
		},
		Negative: []string{
			"terrible", "awful", "horrible", "broke", "broken", "worst",
			"poor", "disappointed", "disappointing", "defective",
			"damaged", "late", "slow", "refund", "useless", "missing",
			"wrong", "flimsy", "scam", "never arrived", "fell apart",
			"waste of money", "stopped working", "did not work",
			"poor quality", "too small", "too big",
		},
	}
}

func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("read lexicon: %w", err)
	}
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon yaml: %w", err)
	}
	if len(lex.Positive) == 0 && len(lex.Negative) == 0 {
		return Lexicon{}, fmt.Errorf("lexicon %s contains no terms", path)
	}
	for i, t := range lex.Positive {
		lex.Positive[i] = Normalize(t)
	}
	for i, t := range lex.Negative {
		lex.Negative[i] = Normalize(t)
	}
	return lex, nil
}

// Score counts positive minus negative term hits in canonical text.
// The sign is the lexical leaning; zero means no usable lexical signal.
func (l Lexicon) Score(canonical string) int {
	if canonical == "" {
		return 0
	}
	counts := make(map[string]int)
	for _, w := range strings.Fields(canonical) {
		counts[w]++
	}
	padded := " " + canonical + " "

	score := 0
	for _, term := range l.Positive {
		score += termHits(term, counts, padded)
	}
	for _, term := range l.Negative {
		score -= termHits(term, counts, padded)
	}
	return score
}

func termHits(term string, counts map[string]int, padded string) int {
	if term == "" {
		return 0
	}
	if !strings.Contains(term, " ") {
		return counts[term]
	}
	return strings.Count(padded, " "+term+" ")
}
