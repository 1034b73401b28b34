package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"
)

// Engine owns the session's classified record set and exposes the two
// consumer operations the surface layer builds on: GetAggregation and Ask.
// The record set is read-only between ingests; concurrent reads need no
// coordination. The only mutable state is the ingest counters and the Ask
// sequence used for supersession.
type Engine struct {
	db        *sql.DB
	rules     RuleConfig
	retriever *Retriever

	contextBudget   int
	excerptMaxChars int
	csvPath         string

	mu         sync.Mutex
	lastIngest IngestResult
	askSeq     uint64
}

func NewEngine(db *sql.DB, rules RuleConfig, retriever *Retriever, cfg Config) *Engine {
	return &Engine{
		db:              db,
		rules:           rules,
		retriever:       retriever,
		contextBudget:   cfg.ContextBudgetChars,
		excerptMaxChars: cfg.ExcerptMaxChars,
		csvPath:         cfg.ReviewsCSV,
	}
}

// Refresh re-runs the ingestion pipeline over the configured CSV,
// re-labeling every record with the current rule set.
func (e *Engine) Refresh() (IngestResult, error) {
	result, err := IngestCSV(e.csvPath, e.db, e.rules)
	if err != nil {
		return result, err
	}
	e.mu.Lock()
	e.lastIngest = result
	e.mu.Unlock()
	return result, nil
}

// LastIngest returns the counters from the most recent ingest run, surfaced
// alongside aggregate statistics.
func (e *Engine) LastIngest() IngestResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastIngest
}

// GetAggregation rebuilds summary rows from the currently filtered record
// set. Never mutated in place: every call recomputes from storage.
func (e *Engine) GetAggregation(f Filters, dims []GroupDim) (AggregationResult, error) {
	records, err := QueryReviews(e.db, f)
	if err != nil {
		return AggregationResult{}, fmt.Errorf("query reviews: %w", err)
	}
	return Aggregate(records, dims, e.rules)
}

// Ask answers a free-form question over the filtered record set. If no
// records match, it returns the "no data" answer without touching the
// completion model. If a newer question arrives while this one's retrieval
// is in flight, the stale result is discarded and ErrQuerySuperseded is
// returned — last writer wins by submission order, not response arrival.
func (e *Engine) Ask(ctx context.Context, query string, f Filters) (InsightAnswer, error) {
	seq := e.nextAskSeq()

	records, err := QueryReviews(e.db, f)
	if err != nil {
		return InsightAnswer{}, fmt.Errorf("query reviews: %w", err)
	}
	if len(records) == 0 {
		return InsightAnswer{Query: query, AnswerText: noDataAnswer}, nil
	}

	block := SampleContext(records, e.contextBudget, e.excerptMaxChars)
	start := time.Now()
	answer, err := e.retriever.Retrieve(ctx, query, block)
	if err != nil {
		return InsightAnswer{}, err
	}

	if e.supersededSince(seq) {
		log.Printf("discarding stale insight answer seq=%d latency=%s", seq, time.Since(start).Round(time.Millisecond))
		return InsightAnswer{}, ErrQuerySuperseded
	}
	return answer, nil
}

func (e *Engine) nextAskSeq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.askSeq++
	return e.askSeq
}

func (e *Engine) supersededSince(seq uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.askSeq != seq
}
