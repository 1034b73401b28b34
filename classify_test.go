package main

import "testing"

func ratingPtr(v float64) *float64 {
	return &v
}

func testRules() RuleConfig {
	return DefaultRuleConfig(DefaultLexicon())
}

func TestClassifySignalsAgree(t *testing.T) {
	rules := testRules()

	sentiment, confidence := rules.Classify(Normalize("the product broke and is terrible"), ratingPtr(1))
	if sentiment != SentimentNegative {
		t.Fatalf("expected Negative, got %s", sentiment)
	}
	if confidence != rules.AgreeConfidence {
		t.Fatalf("expected agree confidence %.2f, got %.2f", rules.AgreeConfidence, confidence)
	}

	sentiment, confidence = rules.Classify(Normalize("amazing quality, fast shipping"), ratingPtr(5))
	if sentiment != SentimentPositive {
		t.Fatalf("expected Positive, got %s", sentiment)
	}
	if confidence != rules.AgreeConfidence {
		t.Fatalf("expected agree confidence %.2f, got %.2f", rules.AgreeConfidence, confidence)
	}
}

func TestClassifyMidRatingNeutral(t *testing.T) {
	rules := testRules()

	sentiment, confidence := rules.Classify(Normalize("it's okay I guess"), ratingPtr(3))
	if sentiment != SentimentNeutral {
		t.Fatalf("expected Neutral, got %s", sentiment)
	}
	if confidence != rules.RatingOnlyConfidence {
		t.Fatalf("expected rating-only confidence %.2f, got %.2f", rules.RatingOnlyConfidence, confidence)
	}
}

func TestClassifyContradiction(t *testing.T) {
	rules := testRules()

	// Rating label wins; confidence strictly below the agreeing case.
	sentiment, confidence := rules.Classify(Normalize("terrible support"), ratingPtr(5))
	if sentiment != SentimentPositive {
		t.Fatalf("expected rating label to win on contradiction, got %s", sentiment)
	}
	if confidence >= rules.AgreeConfidence {
		t.Fatalf("expected contradiction confidence below %.2f, got %.2f", rules.AgreeConfidence, confidence)
	}
	if confidence != rules.ContradictConfidence {
		t.Fatalf("expected contradiction confidence %.2f, got %.2f", rules.ContradictConfidence, confidence)
	}
}

func TestClassifyInvalidRatingTreatedAsAbsent(t *testing.T) {
	rules := testRules()
	text := Normalize("terrible support")

	wantSentiment, wantConfidence := rules.Classify(text, nil)
	for _, bad := range []float64{0, -1, 5.5, 42} {
		sentiment, confidence := rules.Classify(text, ratingPtr(bad))
		if sentiment != wantSentiment || confidence != wantConfidence {
			t.Fatalf("rating %g: got (%s, %.2f), want same as absent rating (%s, %.2f)",
				bad, sentiment, confidence, wantSentiment, wantConfidence)
		}
	}
}

func TestClassifyLexicalOnly(t *testing.T) {
	rules := testRules()

	sentiment, confidence := rules.Classify("terrible support", nil)
	if sentiment != SentimentNegative {
		t.Fatalf("expected lexical signal to decide without rating, got %s", sentiment)
	}
	if confidence != rules.LexicalOnlyConfidence {
		t.Fatalf("expected lexical-only confidence %.2f, got %.2f", rules.LexicalOnlyConfidence, confidence)
	}
}

func TestClassifyLexicalShiftsMidRating(t *testing.T) {
	rules := testRules()

	sentiment, confidence := rules.Classify("great phone case", ratingPtr(3))
	if sentiment != SentimentPositive {
		t.Fatalf("expected lexical signal to shift a mid rating, got %s", sentiment)
	}
	if confidence != rules.ShiftConfidence {
		t.Fatalf("expected shift confidence %.2f, got %.2f", rules.ShiftConfidence, confidence)
	}
}

func TestClassifyNoSignals(t *testing.T) {
	rules := testRules()

	sentiment, confidence := rules.Classify("review number seventeen", nil)
	if sentiment != SentimentNeutral {
		t.Fatalf("expected Neutral with no signals, got %s", sentiment)
	}
	if confidence != rules.MinConfidence {
		t.Fatalf("expected minimum confidence %.2f, got %.2f", rules.MinConfidence, confidence)
	}
}

func TestRatingBucket(t *testing.T) {
	rules := testRules()

	cases := []struct {
		rating *float64
		want   string
	}{
		{nil, "unrated"},
		{ratingPtr(9), "unrated"},
		{ratingPtr(1), "low"},
		{ratingPtr(2), "low"},
		{ratingPtr(3), "mid"},
		{ratingPtr(4), "high"},
		{ratingPtr(5), "high"},
	}
	for _, tc := range cases {
		if got := rules.RatingBucket(tc.rating); got != tc.want {
			t.Fatalf("RatingBucket(%v) = %q, want %q", tc.rating, got, tc.want)
		}
	}
}
