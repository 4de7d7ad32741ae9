package rank

import (
	"math"
	"strings"
	"time"

	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
)

const (
	freshnessWindowDays = 30
	recencyBoostDays    = 7
	behavioralWeight    = 0.3
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// defaultRelevance scores a candidate for a viewer without stored
// preferences: a 0.5 base lifted by rating, view volume, recency and
// urgency.
func defaultRelevance(l *model.Listing, now time.Time) float64 {
	score := 0.5 + 0.2*(l.Rating.Average/5)
	if l.Views > 10 {
		score += math.Min(0.15, 0.1*math.Log(float64(l.Views)/10))
	}
	if now.Sub(l.CreatedAt) <= recencyBoostDays*24*time.Hour {
		score += 0.1
	}
	if l.IsUrgent {
		score += 0.05
	}
	return clamp01(score)
}

// preferenceRelevance scores a candidate against the viewer's stored
// preferences and recent interaction history. The behavioral contribution
// is additive on top of the weighted sum (not re-normalized); the result is
// decayed by freshness and clamped to [0,1].
func preferenceRelevance(l *model.Listing, pref *model.ViewerPreference, history []model.InteractionRecord, now time.Time) float64 {
	weights := pref.Weights
	if weights == (model.ScoreWeights{}) {
		weights = model.DefaultScoreWeights()
	}

	sum := weights.CategoryMatch*categoryMatch(l, pref) +
		weights.TypeMatch*typeMatch(l, pref) +
		weights.TagMatch*tagMatch(l, pref) +
		weights.LocationMatch*locationMatch(l, pref) +
		weights.RatingMatch*ratingMatch(l, pref)

	sum += behavioralWeight * behavioralScore(l, history)

	return clamp01(sum * freshnessFactor(l, now))
}

func categoryMatch(l *model.Listing, pref *model.ViewerPreference) float64 {
	for _, c := range pref.PreferredCategories {
		if c == l.CategoryID {
			return 1
		}
	}
	return 0
}

func typeMatch(l *model.Listing, pref *model.ViewerPreference) float64 {
	for _, t := range pref.PreferredTypes {
		if t == l.Type {
			return 1
		}
	}
	return 0
}

// tagMatch is the fraction of the viewer's preferred tags carried by the
// candidate, capped at 1.
func tagMatch(l *model.Listing, pref *model.ViewerPreference) float64 {
	if len(pref.PreferredTags) == 0 {
		return 0
	}
	matched := 0
	for _, t := range pref.PreferredTags {
		if l.HasTag(t) {
			matched++
		}
	}
	return math.Min(1, float64(matched)/float64(len(pref.PreferredTags)))
}

func locationMatch(l *model.Listing, pref *model.ViewerPreference) float64 {
	loc := strings.ToLower(l.Location)
	for _, want := range pref.PreferredLocations {
		if want != "" && strings.Contains(loc, strings.ToLower(want)) {
			return 1
		}
	}
	return 0
}

// ratingMatch grants the normalized rating only when the candidate clears
// the viewer's minimum.
func ratingMatch(l *model.Listing, pref *model.ViewerPreference) float64 {
	if l.Rating.Average >= pref.MinRating {
		return l.Rating.Average / 5
	}
	return 0
}

// behavioralScore is the count of history records whose at-interaction-time
// category, type or tags overlap the candidate, normalized by twice the
// history length and capped at 1.
func behavioralScore(l *model.Listing, history []model.InteractionRecord) float64 {
	if len(history) == 0 {
		return 0
	}
	matched := 0
	for i := range history {
		if interactionMatches(&history[i], l) {
			matched++
		}
	}
	return math.Min(1, float64(matched)/float64(2*len(history)))
}

func interactionMatches(rec *model.InteractionRecord, l *model.Listing) bool {
	if rec.CategoryID != "" && rec.CategoryID == l.CategoryID {
		return true
	}
	if rec.AdType != "" && rec.AdType == l.Type {
		return true
	}
	for _, t := range rec.TagIDs {
		if l.HasTag(t) {
			return true
		}
	}
	return false
}

// freshnessFactor decays linearly from 1 at creation time to 0 at 30 days.
func freshnessFactor(l *model.Listing, now time.Time) float64 {
	days := now.Sub(l.CreatedAt).Hours() / 24
	return math.Max(0, 1-days/freshnessWindowDays)
}
