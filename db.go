package main

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens the session review store. The default path is ":memory:" so
// the record set lives only for the lifetime of the process.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS reviews (
		id          TEXT PRIMARY KEY,
		text        TEXT NOT NULL,
		canonical   TEXT NOT NULL,
		rating      REAL,
		reviewed_at DATETIME,
		category    TEXT DEFAULT '',
		sentiment   TEXT NOT NULL,
		confidence  REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reviews_sentiment ON reviews(sentiment);
	CREATE INDEX IF NOT EXISTS idx_reviews_category ON reviews(category);
	CREATE INDEX IF NOT EXISTS idx_reviews_reviewed_at ON reviews(reviewed_at);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// InsertReviews stores classified records in one transaction. Re-ingesting
// an ID replaces the previous row, so a pipeline re-run re-labels records
// instead of duplicating them.
func InsertReviews(db *sql.DB, records []ReviewRecord) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO reviews (id, text, canonical, rating, reviewed_at, category, sentiment, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		var rating any
		if rec.Rating != nil {
			rating = *rec.Rating
		}
		var reviewedAt any
		if rec.ReviewedAt != nil {
			reviewedAt = rec.ReviewedAt.UTC()
		}
		_, err := stmt.Exec(rec.ID, rec.Text, rec.Canonical, rating, reviewedAt,
			rec.Category, string(rec.Sentiment), rec.Confidence)
		if err != nil {
			return inserted, err
		}
		inserted++
	}

	return inserted, tx.Commit()
}

// QueryReviews returns the records matching the filters, ordered by ID so
// every downstream pass sees a deterministic sequence.
func QueryReviews(db *sql.DB, f Filters) ([]ReviewRecord, error) {
	query := `SELECT id, text, canonical, rating, reviewed_at, category, sentiment, confidence FROM reviews`
	var clauses []string
	var args []any

	if len(f.Sentiments) > 0 {
		placeholders := make([]string, len(f.Sentiments))
		for i, s := range f.Sentiments {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		clauses = append(clauses, fmt.Sprintf("sentiment IN (%s)", strings.Join(placeholders, ",")))
	}
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	if f.Keyword != "" {
		clauses = append(clauses, "instr(lower(text), ?) > 0")
		args = append(args, strings.ToLower(f.Keyword))
	}
	if f.From != nil {
		clauses = append(clauses, "reviewed_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		clauses = append(clauses, "reviewed_at < ?")
		args = append(args, f.To.UTC())
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ReviewRecord
	for rows.Next() {
		var rec ReviewRecord
		var rating sql.NullFloat64
		var reviewedAt sql.NullTime
		var sentiment string
		if err := rows.Scan(&rec.ID, &rec.Text, &rec.Canonical, &rating, &reviewedAt,
			&rec.Category, &sentiment, &rec.Confidence); err != nil {
			return nil, err
		}
		if rating.Valid {
			v := rating.Float64
			rec.Rating = &v
		}
		if reviewedAt.Valid {
			t := reviewedAt.Time.UTC()
			rec.ReviewedAt = &t
		}
		rec.Sentiment = Sentiment(sentiment)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func CountReviews(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM reviews").Scan(&count)
	return count, err
}

// timeOrNil parses an ingestion timestamp; the empty string means absent.
func timeOrNil(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u, true
		}
	}
	return nil, false
}
