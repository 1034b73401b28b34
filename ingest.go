package main

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

// IngestResult tracks separate counters for each recovered row problem.
// Malformed rows never abort an ingest run; they are skipped (missing text)
// or degraded (bad rating/timestamp treated as absent) and counted.
type IngestResult struct {
	TotalRows     int
	Inserted      int
	SkippedNoText int
	BadRatings    int
	BadTimestamps int
}

type reviewColumns struct {
	id        int
	text      int
	rating    int
	timestamp int
	category  int
}

// IngestCSV reads a review CSV, normalizes and proxy-labels every usable
// row, and stores the classified records. Only the text column is required;
// id, rating, timestamp and category are optional.
func IngestCSV(path string, db *sql.DB, rules RuleConfig) (IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return IngestResult{}, fmt.Errorf("open reviews csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return IngestResult{}, fmt.Errorf("reviews csv %s is empty", path)
		}
		return IngestResult{}, fmt.Errorf("read csv header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return IngestResult{}, fmt.Errorf("parse csv header: %w", err)
	}

	var result IngestResult
	var records []ReviewRecord
	rowNum := 0

	for {
		row, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return result, fmt.Errorf("read csv row: %w", err)
		}
		rowNum++
		result.TotalRows++

		text := strings.TrimSpace(fieldAt(row, cols.text))
		if text == "" {
			result.SkippedNoText++
			continue
		}

		rec := ReviewRecord{
			ID:        strings.TrimSpace(fieldAt(row, cols.id)),
			Text:      text,
			Canonical: Normalize(text),
			Category:  strings.TrimSpace(fieldAt(row, cols.category)),
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("r%06d", rowNum)
		}

		if raw := strings.TrimSpace(fieldAt(row, cols.rating)); raw != "" {
			rating, err := strconv.ParseFloat(raw, 64)
			if err != nil || rating < rules.RatingMin || rating > rules.RatingMax {
				result.BadRatings++
			} else {
				rec.Rating = &rating
			}
		}

		reviewedAt, ok := timeOrNil(fieldAt(row, cols.timestamp))
		if !ok {
			result.BadTimestamps++
		}
		rec.ReviewedAt = reviewedAt

		rules.ClassifyRecord(&rec)
		records = append(records, rec)
	}

	inserted, err := InsertReviews(db, records)
	result.Inserted = inserted
	if err != nil {
		return result, fmt.Errorf("store reviews: %w", err)
	}

	log.Printf("ingest complete file=%s rows=%d inserted=%d skipped_no_text=%d bad_ratings=%d bad_timestamps=%d",
		path, result.TotalRows, result.Inserted, result.SkippedNoText, result.BadRatings, result.BadTimestamps)
	return result, nil
}

// resolveColumns maps the flexible header names seen in review exports onto
// column indices. Only a text column is mandatory.
func resolveColumns(header []string) (reviewColumns, error) {
	cols := reviewColumns{id: -1, text: -1, rating: -1, timestamp: -1, category: -1}

	for i, h := range header {
		switch normalizeHeader(h) {
		case "review_id", "id":
			cols.id = i
		case "review_comment_message", "review_text", "text", "comment":
			cols.text = i
		case "review_score", "rating", "score", "stars":
			cols.rating = i
		case "review_creation_date", "timestamp", "date", "reviewed_at":
			cols.timestamp = i
		case "product_category", "product_category_name", "category":
			cols.category = i
		}
	}

	if cols.text == -1 {
		return reviewColumns{}, fmt.Errorf("no text column found in header %v", header)
	}
	return cols, nil
}

func normalizeHeader(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\uFEFF"))
	return strings.ToLower(s)
}

func fieldAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// FormatIngestSummary returns a human-readable summary of an IngestResult.
func FormatIngestSummary(result IngestResult) string {
	parts := []string{fmt.Sprintf("%d stored", result.Inserted)}
	if result.SkippedNoText > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped (no text)", result.SkippedNoText))
	}
	if result.BadRatings > 0 {
		parts = append(parts, fmt.Sprintf("%d invalid ratings treated as absent", result.BadRatings))
	}
	if result.BadTimestamps > 0 {
		parts = append(parts, fmt.Sprintf("%d unparseable timestamps dropped", result.BadTimestamps))
	}
	return fmt.Sprintf("Ingested %d rows: %s.", result.TotalRows, strings.Join(parts, ", "))
}
