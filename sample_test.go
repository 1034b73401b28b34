package main

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func sampleRecords(negative, neutral, positive int) []ReviewRecord {
	var records []ReviewRecord
	add := func(n int, class Sentiment, prefix string) {
		for i := 0; i < n; i++ {
			records = append(records, ReviewRecord{
				ID:        fmt.Sprintf("%s%03d", prefix, i),
				Text:      fmt.Sprintf("review body %s%03d with enough words to matter", prefix, i),
				Sentiment: class,
			})
		}
	}
	add(negative, SentimentNegative, "neg")
	add(neutral, SentimentNeutral, "neu")
	add(positive, SentimentPositive, "pos")
	return records
}

func TestSampleContextEmptyInput(t *testing.T) {
	block := SampleContext(nil, 6000, 240)
	if !block.Empty {
		t.Fatalf("expected empty block for no records")
	}
	if block.SerializedText() != EmptyContextMarker {
		t.Fatalf("expected marker, got %q", block.SerializedText())
	}
}

func TestSampleContextRespectsBudget(t *testing.T) {
	records := sampleRecords(40, 40, 40)
	for _, budget := range []int{200, 500, 1500, 6000} {
		block := SampleContext(records, budget, 240)
		if got := len(block.SerializedText()); got > budget {
			t.Fatalf("budget %d: serialized %d bytes", budget, got)
		}
	}
}

func TestSampleContextRoundRobinBalance(t *testing.T) {
	// Plenty of budget: every class should contribute evenly despite the
	// positive class dominating the input.
	records := sampleRecords(3, 3, 60)
	block := SampleContext(records, 100000, 240)

	counts := map[Sentiment]int{}
	for _, entry := range block.Entries {
		counts[entry.Sentiment]++
	}
	if counts[SentimentNegative] != 3 || counts[SentimentNeutral] != 3 || counts[SentimentPositive] != 60 {
		t.Fatalf("unexpected class counts %v", counts)
	}

	// The first rounds interleave one record per class.
	want := []Sentiment{SentimentNegative, SentimentNeutral, SentimentPositive, SentimentNegative, SentimentNeutral, SentimentPositive}
	for i, class := range want {
		if block.Entries[i].Sentiment != class {
			t.Fatalf("entry %d sentiment = %s, want %s", i, block.Entries[i].Sentiment, class)
		}
	}
}

func TestSampleContextMinorityClassSurvivesTightBudget(t *testing.T) {
	records := sampleRecords(1, 0, 80)
	block := SampleContext(records, 400, 240)
	if block.Empty {
		t.Fatalf("expected non-empty block")
	}
	seen := map[Sentiment]bool{}
	for _, entry := range block.Entries {
		seen[entry.Sentiment] = true
	}
	if !seen[SentimentNegative] {
		t.Fatalf("minority class crowded out: %+v", block.Entries)
	}
}

func TestSampleContextIDOrderWithinClass(t *testing.T) {
	records := sampleRecords(5, 0, 0)
	block := SampleContext(records, 100000, 240)
	var ids []string
	for _, entry := range block.Entries {
		ids = append(ids, entry.ID)
	}
	want := []string{"neg000", "neg001", "neg002", "neg003", "neg004"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}

func TestSampleContextDeterministic(t *testing.T) {
	records := sampleRecords(10, 10, 10)
	a := SampleContext(records, 800, 120)
	b := SampleContext(records, 800, 120)
	if a.SerializedText() != b.SerializedText() {
		t.Fatalf("sampling is not deterministic")
	}
}

func TestSampleContextShrinksExcerpts(t *testing.T) {
	long := strings.Repeat("customer words ", 40)
	records := []ReviewRecord{{ID: "r1", Text: long, Sentiment: SentimentNeutral}}

	roomy := SampleContext(records, 100000, 240)
	tight := SampleContext(records, len(contextHeader)+120, 240)
	if tight.Empty {
		t.Fatalf("expected the excerpt to shrink, not the entry to drop")
	}
	if len(tight.Entries[0].Excerpt) >= len(roomy.Entries[0].Excerpt) {
		t.Fatalf("expected a shorter excerpt under pressure: %d vs %d",
			len(tight.Entries[0].Excerpt), len(roomy.Entries[0].Excerpt))
	}
	if got := len(tight.SerializedText()); got > len(contextHeader)+120 {
		t.Fatalf("shrunken block still over budget: %d bytes", got)
	}
}

func TestSampleContextTinyBudgetYieldsMarker(t *testing.T) {
	records := sampleRecords(2, 2, 2)
	block := SampleContext(records, 10, 240)
	if !block.Empty || block.SerializedText() != EmptyContextMarker {
		t.Fatalf("expected empty marker for an unusable budget, got %+v", block)
	}
}

func TestTruncateExcerpt(t *testing.T) {
	if got := truncateExcerpt("short", 240); got != "short" {
		t.Fatalf("got %q", got)
	}
	got := truncateExcerpt("0123456789", 8)
	if got != "01234..." {
		t.Fatalf("got %q", got)
	}
	// Rune-safe on multibyte text.
	got = truncateExcerpt("ótimo produto recomendo muito", 10)
	if len([]rune(got)) != 10 || !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q", got)
	}
}

func TestContextBlockIDSet(t *testing.T) {
	block := ContextBlock{Entries: []ContextEntry{{ID: "a"}, {ID: "b"}}}
	set := block.IDSet()
	if !set["a"] || !set["b"] || set["c"] {
		t.Fatalf("unexpected id set %v", set)
	}
}
