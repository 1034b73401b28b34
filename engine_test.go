package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// newTestEngine seeds an in-memory store from a generated CSV: 60 five-star,
// 30 three-star and 10 one-star reviews whose text carries no lexicon terms,
// so the rating alone decides each label.
func newTestEngine(t *testing.T, completer Completer) (*Engine, *sql.DB) {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("review_id,review_text,rating,date,category\n")
	n := 0
	write := func(count int, rating int, category string) {
		for i := 0; i < count; i++ {
			n++
			fmt.Fprintf(&sb, "r%03d,review number %d,%d,2025-04-%02d,%s\n", n, n, rating, i%28+1, category)
		}
	}
	write(60, 5, "toys")
	write(30, 3, "toys")
	write(10, 1, "books")

	path := filepath.Join(t.TempDir(), "reviews.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	db, err := InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := Config{
		ReviewsCSV:         path,
		ContextBudgetChars: 6000,
		ExcerptMaxChars:    240,
	}
	retriever := instantRetriever(completer, time.Second)
	engine := NewEngine(db, testRules(), retriever, cfg)

	result, err := engine.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if result.Inserted != 100 {
		t.Fatalf("seeded %d records, want 100", result.Inserted)
	}
	return engine, db
}

func TestEngineGetAggregation(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeCompleter{steps: []fakeStep{{text: "{}"}}})

	result, err := engine.GetAggregation(Filters{}, []GroupDim{DimSentiment})
	if err != nil {
		t.Fatalf("GetAggregation: %v", err)
	}
	if result.Total != 100 {
		t.Fatalf("Total = %d, want 100", result.Total)
	}
	want := map[string]int{"Negative": 10, "Neutral": 30, "Positive": 60}
	if len(result.Rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(result.Rows), len(want))
	}
	for _, row := range result.Rows {
		if want[row.Key[0]] != row.Count {
			t.Fatalf("row %s count = %d, want %d", row.Key[0], row.Count, want[row.Key[0]])
		}
	}
}

func TestEngineGetAggregationWithFilters(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeCompleter{steps: []fakeStep{{text: "{}"}}})

	result, err := engine.GetAggregation(Filters{Category: "books"}, []GroupDim{DimSentiment})
	if err != nil {
		t.Fatalf("GetAggregation: %v", err)
	}
	if result.Total != 10 || len(result.Rows) != 1 || result.Rows[0].Key[0] != "Negative" {
		t.Fatalf("unexpected filtered aggregation %+v", result)
	}
}

func TestEngineAsk(t *testing.T) {
	fake := &fakeCompleter{steps: []fakeStep{
		{text: `{"answer": "Mostly positive.", "evidence_ids": ["r001"]}`},
	}}
	engine, _ := newTestEngine(t, fake)

	answer, err := engine.Ask(context.Background(), "how do customers feel?", Filters{})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.AnswerText != "Mostly positive." {
		t.Fatalf("answer = %q", answer.AnswerText)
	}
	if len(answer.EvidenceIDs) != 1 || answer.EvidenceIDs[0] != "r001" {
		t.Fatalf("evidence = %v", answer.EvidenceIDs)
	}
}

func TestEngineAskNoMatchesSkipsModel(t *testing.T) {
	fake := &fakeCompleter{steps: []fakeStep{{text: `{"answer": "unused"}`}}}
	engine, _ := newTestEngine(t, fake)

	answer, err := engine.Ask(context.Background(), "q", Filters{Category: "electronics"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.AnswerText != noDataAnswer {
		t.Fatalf("answer = %q, want %q", answer.AnswerText, noDataAnswer)
	}
	if fake.callCount() != 0 {
		t.Fatalf("no-match questions must not reach the model, got %d calls", fake.callCount())
	}
}

func TestEngineAskSupersession(t *testing.T) {
	fake := &fakeCompleter{
		steps: []fakeStep{{text: `{"answer": "done", "evidence_ids": []}`}},
		delay: 100 * time.Millisecond,
	}
	engine, _ := newTestEngine(t, fake)

	var wg sync.WaitGroup
	var firstErr, secondErr error
	var second InsightAnswer

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = engine.Ask(context.Background(), "first question", Filters{})
	}()

	time.Sleep(20 * time.Millisecond)
	wg.Add(1)
	go func() {
		defer wg.Done()
		second, secondErr = engine.Ask(context.Background(), "second question", Filters{})
	}()
	wg.Wait()

	if !errors.Is(firstErr, ErrQuerySuperseded) {
		t.Fatalf("first answer should be discarded as superseded, got %v", firstErr)
	}
	if secondErr != nil {
		t.Fatalf("second Ask: %v", secondErr)
	}
	if second.AnswerText != "done" {
		t.Fatalf("second answer = %q", second.AnswerText)
	}
}

func TestEngineRefreshRelabels(t *testing.T) {
	engine, db := newTestEngine(t, &fakeCompleter{steps: []fakeStep{{text: "{}"}}})

	if _, err := engine.Refresh(); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	count, err := CountReviews(db)
	if err != nil {
		t.Fatalf("CountReviews: %v", err)
	}
	if count != 100 {
		t.Fatalf("re-ingest duplicated rows: %d", count)
	}

	last := engine.LastIngest()
	if last.Inserted != 100 || last.TotalRows != 100 {
		t.Fatalf("LastIngest = %+v", last)
	}
}
