package main

import (
	"fmt"
	"strings"
	"time"
)

type Sentiment string

const (
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentPositive Sentiment = "Positive"
)

// AllSentiments is the fixed class order used for stratified sampling and
// deterministic output ordering.
var AllSentiments = []Sentiment{SentimentNegative, SentimentNeutral, SentimentPositive}

func ParseSentiment(s string) (Sentiment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "negative":
		return SentimentNegative, nil
	case "neutral":
		return SentimentNeutral, nil
	case "positive":
		return SentimentPositive, nil
	}
	return "", fmt.Errorf("unknown sentiment %q", s)
}

type ReviewRecord struct {
	ID         string
	Text       string // raw review text as ingested
	Canonical  string // Normalize(Text)
	Rating     *float64
	ReviewedAt *time.Time
	Category   string
	Sentiment  Sentiment
	Confidence float64
}

// Filters narrows the session record set for both aggregation and Ask.
// Zero values mean "no constraint".
type Filters struct {
	Sentiments []Sentiment
	Category   string
	Keyword    string // case-insensitive substring over the raw review text
	From       *time.Time
	To         *time.Time
}

type GroupDim string

const (
	DimPeriod       GroupDim = "period"
	DimCategory     GroupDim = "category"
	DimSentiment    GroupDim = "sentiment"
	DimRatingBucket GroupDim = "rating_bucket"
)

func ParseGroupDim(s string) (GroupDim, error) {
	switch GroupDim(strings.ToLower(strings.TrimSpace(s))) {
	case DimPeriod, DimCategory, DimSentiment, DimRatingBucket:
		return GroupDim(strings.ToLower(strings.TrimSpace(s))), nil
	}
	return "", fmt.Errorf("unknown grouping dimension %q", s)
}

type AggregationRow struct {
	Key             []string // one value per requested dimension, in caller order
	Count           int
	SentimentCounts map[Sentiment]int
	MeanRating      float64 // over rated records only; 0 when RatedCount is 0
	RatedCount      int
}

type AggregationResult struct {
	Dims  []GroupDim
	Rows  []AggregationRow
	Total int
}

type ContextEntry struct {
	ID        string
	Sentiment Sentiment
	Rating    *float64
	Excerpt   string
}

// ContextBlock is the bounded sample handed to the completion model as
// grounding evidence. Built fresh per query, discarded afterwards.
type ContextBlock struct {
	Header  string
	Entries []ContextEntry
	Empty   bool
}

type InsightAnswer struct {
	Query       string
	AnswerText  string
	EvidenceIDs []string
	LatencyMS   int64
}

// PeriodKey buckets a review timestamp into a calendar month. Records
// without a timestamp group under "unknown".
func PeriodKey(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.Format("2006-01")
}
