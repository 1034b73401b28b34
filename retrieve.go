package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"
)

var (
	// ErrRetrievalTimeout means the completion call exceeded the configured
	// bound. Retryable by the user; never retried automatically.
	ErrRetrievalTimeout = errors.New("insight retrieval timed out")

	// ErrRetrievalTransport wraps network or provider failures. Retried at
	// most once, with full-jitter backoff.
	ErrRetrievalTransport = errors.New("insight retrieval transport failure")

	// ErrQuerySuperseded means a newer query was submitted while this one
	// was in flight; the result must be discarded, not displayed.
	ErrQuerySuperseded = errors.New("query superseded by a newer submission")
)

// MalformedAnswerError reports model output that failed structural
// validation. Raw is kept for diagnosis logging only and must never be
// surfaced as fact.
type MalformedAnswerError struct {
	Raw string
}

func (e *MalformedAnswerError) Error() string {
	return "model answer failed structural validation"
}

const noDataAnswer = "No reviews match the current filters."

const insightPreamble = `You are a customer-review analyst. Answer the question using ONLY the reviews listed below; do not invent reviews or identifiers.
Respond with JSON only (no markdown):
{"answer": "...", "evidence_ids": ["id1", "id2"]}`

const retryBackoffCap = 2 * time.Second

// Retriever sends an assembled prompt to the completion capability and
// validates the answer's structure. It does not judge semantic correctness.
type Retriever struct {
	completer Completer
	timeout   time.Duration
	maxTokens int

	// backoff returns the full-jitter delay before the single transport
	// retry. Overridable in tests.
	backoff func() time.Duration
}

func NewRetriever(completer Completer, timeout time.Duration, maxTokens int) *Retriever {
	return &Retriever{
		completer: completer,
		timeout:   timeout,
		maxTokens: maxTokens,
		backoff: func() time.Duration {
			return time.Duration(rand.Int63n(int64(retryBackoffCap)))
		},
	}
}

// Retrieve answers a free-form question grounded on the context block. An
// empty block short-circuits with a "no data" answer and never reaches the
// model. Failures come back typed: ErrRetrievalTimeout,
// ErrRetrievalTransport or MalformedAnswerError — never a silent empty
// answer.
func (r *Retriever) Retrieve(ctx context.Context, query string, block ContextBlock) (InsightAnswer, error) {
	if block.Empty {
		return InsightAnswer{Query: query, AnswerText: noDataAnswer}, nil
	}

	prompt := insightPreamble + "\n\nQuestion: " + query + "\n\n" + block.SerializedText()
	start := time.Now()

	raw, err := r.completeOnce(ctx, prompt)
	if errors.Is(err, ErrRetrievalTransport) {
		delay := r.backoff()
		log.Printf("retrieval transport failure, retrying once after %s: %v", delay.Round(time.Millisecond), err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return InsightAnswer{}, fmt.Errorf("%w: %v", ErrRetrievalTransport, ctx.Err())
		}
		raw, err = r.completeOnce(ctx, prompt)
	}
	if err != nil {
		return InsightAnswer{}, err
	}

	parsed, err := parseInsightResponse(raw)
	if err != nil {
		truncated := raw
		if len(truncated) > 512 {
			truncated = truncated[:512] + fmt.Sprintf("... [truncated, total_length=%d]", len(raw))
		}
		log.Printf("malformed model answer: %v raw=%q", err, truncated)
		return InsightAnswer{}, &MalformedAnswerError{Raw: raw}
	}

	return InsightAnswer{
		Query:       query,
		AnswerText:  parsed.Answer,
		EvidenceIDs: filterEvidenceIDs(parsed.EvidenceIDs, block),
		LatencyMS:   time.Since(start).Milliseconds(),
	}, nil
}

func (r *Retriever) completeOnce(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := r.completer.Complete(callCtx, prompt, r.maxTokens)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return "", fmt.Errorf("%w after %s", ErrRetrievalTimeout, r.timeout)
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return "", fmt.Errorf("retrieval canceled: %w", context.Canceled)
		}
		return "", fmt.Errorf("%w: %v", ErrRetrievalTransport, err)
	}
	return text, nil
}

type insightResponse struct {
	Answer      string   `json:"answer"`
	EvidenceIDs []string `json:"evidence_ids"`
}

func parseInsightResponse(responseText string) (insightResponse, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var parsed insightResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		return insightResponse{}, fmt.Errorf("parsing insight response: %w", err)
	}
	if strings.TrimSpace(parsed.Answer) == "" {
		return insightResponse{}, fmt.Errorf("insight response has empty answer")
	}
	return parsed, nil
}

// filterEvidenceIDs strips identifiers the model invented: only IDs that
// actually appear in the context block may be surfaced as evidence.
func filterEvidenceIDs(ids []string, block ContextBlock) []string {
	present := block.IDSet()
	var kept []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if present[id] {
			kept = append(kept, id)
		} else if id != "" {
			log.Printf("dropping fabricated evidence id %q", id)
		}
	}
	return kept
}
