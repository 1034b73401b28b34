package main

import (
	"fmt"
	"strings"
)

// EmptyContextMarker is the serialized form of a context block built from
// zero records. Downstream short-circuits on it instead of calling the
// completion model.
const EmptyContextMarker = "NO_MATCHING_REVIEWS"

const contextHeader = "Customer reviews (id | sentiment | rating | text):"

// minExcerptChars is the smallest excerpt worth sending; below this a line
// is dropped instead of truncated further.
const minExcerptChars = 24

// SampleContext builds a bounded, prompt-ready sample of the filtered
// record set. Sampling is fixed-quota-per-class: entries are taken
// round-robin across the sentiment classes in AllSentiments order so the
// majority class cannot crowd out the rest, and records within a class keep
// ID order. Near the budget, individual excerpts shrink before a whole
// class is dropped. No randomness anywhere: the same records and budget
// always produce the same block.
//
// The serialized block never exceeds budget bytes. Budgets too small for
// the header plus one minimal line yield the empty-context marker.
func SampleContext(records []ReviewRecord, budget, maxExcerptChars int) ContextBlock {
	if len(records) == 0 {
		return ContextBlock{Header: EmptyContextMarker, Empty: true}
	}

	strata := make(map[Sentiment][]ReviewRecord, len(AllSentiments))
	for _, rec := range records {
		strata[rec.Sentiment] = append(strata[rec.Sentiment], rec)
	}

	block := ContextBlock{Header: contextHeader}
	size := len(contextHeader)
	if size > budget {
		return ContextBlock{Header: EmptyContextMarker, Empty: true}
	}

	cursor := make(map[Sentiment]int, len(AllSentiments))
	full := false
	for !full {
		took := false
		for _, class := range AllSentiments {
			i := cursor[class]
			if i >= len(strata[class]) {
				continue
			}
			rec := strata[class][i]

			entry := ContextEntry{
				ID:        rec.ID,
				Sentiment: rec.Sentiment,
				Rating:    rec.Rating,
				Excerpt:   truncateExcerpt(rec.Text, maxExcerptChars),
			}
			line := entryLine(entry)

			// Shrink the excerpt until the line fits the remaining budget.
			for size+1+len(line) > budget && len([]rune(entry.Excerpt)) > minExcerptChars {
				entry.Excerpt = truncateExcerpt(entry.Excerpt, len([]rune(entry.Excerpt))-8)
				line = entryLine(entry)
			}
			if size+1+len(line) > budget {
				full = true
				break
			}

			block.Entries = append(block.Entries, entry)
			size += 1 + len(line)
			cursor[class] = i + 1
			took = true
		}
		if !took {
			break
		}
	}

	if len(block.Entries) == 0 {
		return ContextBlock{Header: EmptyContextMarker, Empty: true}
	}
	return block
}

// SerializedText renders the block exactly as it is placed in the prompt.
func (b ContextBlock) SerializedText() string {
	if b.Empty {
		return EmptyContextMarker
	}
	var sb strings.Builder
	sb.WriteString(b.Header)
	for _, entry := range b.Entries {
		sb.WriteString("\n")
		sb.WriteString(entryLine(entry))
	}
	return sb.String()
}

// IDSet returns the record identifiers present in the block, used to strip
// fabricated evidence IDs from model answers.
func (b ContextBlock) IDSet() map[string]bool {
	set := make(map[string]bool, len(b.Entries))
	for _, entry := range b.Entries {
		set[entry.ID] = true
	}
	return set
}

func entryLine(e ContextEntry) string {
	rating := "n/a"
	if e.Rating != nil {
		rating = fmt.Sprintf("%g", *e.Rating)
	}
	return fmt.Sprintf("- [%s] %s | %s | %q", e.ID, e.Sentiment, rating, e.Excerpt)
}

func truncateExcerpt(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return string(runes[:maxChars])
	}
	return string(runes[:maxChars-3]) + "..."
}
