package main

import (
	"fmt"
	"sort"
	"strings"
)

// groupKeySep joins dimension values into a map key. Unit separator keeps
// joined keys collision-free for any printable dimension value.
const groupKeySep = "\x1f"

// Aggregate groups classified records by the caller's dimension order and
// returns one summary row per distinct key combination present in the
// input. Zero-count combinations are omitted. The input slice is never
// mutated and the result is deterministic regardless of input order: rows
// sort by their joined group key, and key order always follows dims, not
// discovery order. One pass over the records, one sort over the rows.
//
// An empty dims list is allowed and produces a single overall row.
func Aggregate(records []ReviewRecord, dims []GroupDim, rules RuleConfig) (AggregationResult, error) {
	seen := make(map[GroupDim]bool, len(dims))
	for _, dim := range dims {
		if _, err := ParseGroupDim(string(dim)); err != nil {
			return AggregationResult{}, err
		}
		if seen[dim] {
			return AggregationResult{}, fmt.Errorf("duplicate grouping dimension %q", dim)
		}
		seen[dim] = true
	}

	type accum struct {
		row       AggregationRow
		ratingSum float64
	}
	groups := make(map[string]*accum)

	for _, rec := range records {
		key := groupKey(rec, dims, rules)
		joined := strings.Join(key, groupKeySep)
		acc, ok := groups[joined]
		if !ok {
			acc = &accum{row: AggregationRow{
				Key:             key,
				SentimentCounts: make(map[Sentiment]int, len(AllSentiments)),
			}}
			groups[joined] = acc
		}
		acc.row.Count++
		acc.row.SentimentCounts[rec.Sentiment]++
		if rec.Rating != nil {
			acc.row.RatedCount++
			acc.ratingSum += *rec.Rating
		}
	}

	joinedKeys := make([]string, 0, len(groups))
	for k := range groups {
		joinedKeys = append(joinedKeys, k)
	}
	sort.Strings(joinedKeys)

	result := AggregationResult{Dims: dims, Total: len(records)}
	for _, k := range joinedKeys {
		acc := groups[k]
		if acc.row.RatedCount > 0 {
			acc.row.MeanRating = acc.ratingSum / float64(acc.row.RatedCount)
		}
		result.Rows = append(result.Rows, acc.row)
	}
	return result, nil
}

func groupKey(rec ReviewRecord, dims []GroupDim, rules RuleConfig) []string {
	key := make([]string, len(dims))
	for i, dim := range dims {
		switch dim {
		case DimPeriod:
			key[i] = PeriodKey(rec.ReviewedAt)
		case DimCategory:
			if rec.Category == "" {
				key[i] = "uncategorized"
			} else {
				key[i] = rec.Category
			}
		case DimSentiment:
			key[i] = string(rec.Sentiment)
		case DimRatingBucket:
			key[i] = rules.RatingBucket(rec.Rating)
		}
	}
	return key
}

// KPICounts returns the headline counters the stats surface shows: total,
// positive and negative review counts for the current filtered set.
func KPICounts(records []ReviewRecord) (total, positive, negative int) {
	total = len(records)
	for _, rec := range records {
		switch rec.Sentiment {
		case SentimentPositive:
			positive++
		case SentimentNegative:
			negative++
		}
	}
	return total, positive, negative
}
