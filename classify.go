package main

// RuleConfig is the proxy-labeling rule table: rating thresholds, the
// keyword lexicon and the confidence assigned to each signal combination.
// A single value is built at startup and passed into every classification
// call; it is never mutated, so alternate rule sets can be evaluated side
// by side and tests stay deterministic.
//
// Confidence values are heuristic strength indicators on [0,1] describing
// how strongly the two signals agree. They are not calibrated
// probabilities.
type RuleConfig struct {
	RatingMin float64 // ratings outside [RatingMin, RatingMax] are treated as absent
	RatingMax float64

	RatingLow  float64 // rating <= RatingLow leans Negative
	RatingHigh float64 // rating >= RatingHigh leans Positive

	Lexicon Lexicon

	AgreeConfidence       float64 // rating and lexical signal point the same way
	RatingOnlyConfidence  float64 // usable rating, lexical signal silent
	LexicalOnlyConfidence float64 // no usable rating, lexical signal decides
	ShiftConfidence       float64 // mid rating shifted by the lexical signal
	ContradictConfidence  float64 // signals disagree: rating label kept, confidence cut
	MinConfidence         float64 // no signal at all
}

func DefaultRuleConfig(lex Lexicon) RuleConfig {
	return RuleConfig{
		RatingMin:             1,
		RatingMax:             5,
		RatingLow:             2,
		RatingHigh:            4,
		Lexicon:               lex,
		AgreeConfidence:       0.90,
		RatingOnlyConfidence:  0.60,
		LexicalOnlyConfidence: 0.55,
		ShiftConfidence:       0.50,
		ContradictConfidence:  0.35,
		MinConfidence:         0.20,
	}
}

// Classify assigns a proxy sentiment label and confidence to one canonical
// review text. rating is nil when the source row had none; out-of-bounds
// ratings are treated as absent rather than failing the record.
//
// Contradiction policy: when a usable rating and the lexical signal point
// in opposite directions, the rating's label is kept and the confidence
// drops to ContradictConfidence, strictly below AgreeConfidence, so
// contradictory records stay visible instead of being silently overridden.
func (rc RuleConfig) Classify(canonical string, rating *float64) (Sentiment, float64) {
	hasRating := rating != nil && *rating >= rc.RatingMin && *rating <= rc.RatingMax

	ratingLean := 0
	if hasRating {
		switch {
		case *rating >= rc.RatingHigh:
			ratingLean = 1
		case *rating <= rc.RatingLow:
			ratingLean = -1
		}
	}

	lexLean := 0
	if s := rc.Lexicon.Score(canonical); s > 0 {
		lexLean = 1
	} else if s < 0 {
		lexLean = -1
	}

	switch {
	case !hasRating && lexLean == 0:
		return SentimentNeutral, rc.MinConfidence
	case !hasRating:
		return leanSentiment(lexLean), rc.LexicalOnlyConfidence
	case ratingLean == 0 && lexLean == 0:
		return SentimentNeutral, rc.RatingOnlyConfidence
	case ratingLean == 0:
		return leanSentiment(lexLean), rc.ShiftConfidence
	case lexLean == 0:
		return leanSentiment(ratingLean), rc.RatingOnlyConfidence
	case ratingLean == lexLean:
		return leanSentiment(ratingLean), rc.AgreeConfidence
	default:
		return leanSentiment(ratingLean), rc.ContradictConfidence
	}
}

// ClassifyRecord fills the derived sentiment and confidence fields from the
// record's canonical text and rating.
func (rc RuleConfig) ClassifyRecord(rec *ReviewRecord) {
	rec.Sentiment, rec.Confidence = rc.Classify(rec.Canonical, rec.Rating)
}

// RatingBucket maps a rating onto the aggregation bucket implied by the
// rule thresholds.
func (rc RuleConfig) RatingBucket(rating *float64) string {
	if rating == nil || *rating < rc.RatingMin || *rating > rc.RatingMax {
		return "unrated"
	}
	switch {
	case *rating >= rc.RatingHigh:
		return "high"
	case *rating <= rc.RatingLow:
		return "low"
	default:
		return "mid"
	}
}

func leanSentiment(lean int) Sentiment {
	switch {
	case lean > 0:
		return SentimentPositive
	case lean < 0:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}
