package scoring

import (
	"math"
	"time"

	"github.com/wisedom/wisedom/internal/model"
)

// Strength levels.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// Score bounds for ConnectionScore.
const (
	MinScore = 1
	MaxScore = 10
)

// Strength is the breakdown returned by the contact strength endpoint.
type Strength struct {
	ContactID         string     `json:"contact_id"`
	Score             int        `json:"score"`
	Level             string     `json:"level"`
	Percent           int        `json:"percent"`
	Recency           float64    `json:"recency"`
	CountPoints       float64    `json:"count_points"`
	ResponsePoints    float64    `json:"response_points"`
	RecencyPoints     float64    `json:"recency_points"`
	InteractionCount  int        `json:"interaction_count"`
	AvgResponseHours  float64    `json:"avg_response_hours"`
	LastInteraction   *time.Time `json:"last_interaction,omitempty"`
	DaysSinceLastSeen *int       `json:"days_since_last_interaction,omitempty"`
}

// countPoints rewards volume: half a point per interaction, capped at 5.
func countPoints(count int) float64 {
	return math.Min(float64(count)*0.5, 5)
}

// responsePoints rewards fast replies. Zero or unknown response time scores 0.
func responsePoints(avgResponseHours float64) float64 {
	if avgResponseHours <= 0 {
		return 0
	}
	return math.Max(0, 5-avgResponseHours/24)
}

// recencyPoints decays by one point per 30 days since the last interaction.
func recencyPoints(last *time.Time, now time.Time) float64 {
	if last == nil {
		return 0
	}
	return math.Max(0, 5-daysSince(*last, now)/30)
}

// ConnectionScore computes the 1..10 connection strength.
func ConnectionScore(count int, avgResponseHours float64, last *time.Time, now time.Time) int {
	raw := countPoints(count) + responsePoints(avgResponseHours) + recencyPoints(last, now)
	return int(clamp(math.Round(raw), MinScore, MaxScore))
}

// Level buckets a 1..10 score.
func Level(score int) string {
	switch {
	case score >= 7:
		return LevelHigh
	case score >= 4:
		return LevelMedium
	default:
		return LevelLow
	}
}

// ToPercent maps a 1..10 score onto the 0..100 scale stored on contacts.
func ToPercent(score int) int {
	return int(clamp(float64(score*10), model.MinRelationshipStrength, model.MaxRelationshipStrength))
}

// RecencyStrength is a linear 0..1 decay over a year. No interaction yields 0.
func RecencyStrength(last *time.Time, now time.Time) float64 {
	if last == nil {
		return 0
	}
	return math.Max(0, 1-daysSince(*last, now)/365)
}

// StoredStrength is the value persisted in contacts.relationship_strength.
// A contact without interactions has strength 0.
func StoredStrength(stats model.InteractionStats, now time.Time) int {
	if stats.Count == 0 {
		return 0
	}
	return ToPercent(ConnectionScore(stats.Count, stats.AvgResponseHours, stats.LastInteraction, now))
}

// ConnectionStrength computes the full breakdown for a contact.
func ConnectionStrength(stats model.InteractionStats, now time.Time) Strength {
	score := ConnectionScore(stats.Count, stats.AvgResponseHours, stats.LastInteraction, now)

	s := Strength{
		ContactID:        stats.ContactID,
		Score:            score,
		Level:            Level(score),
		Percent:          StoredStrength(stats, now),
		Recency:          RecencyStrength(stats.LastInteraction, now),
		CountPoints:      countPoints(stats.Count),
		ResponsePoints:   responsePoints(stats.AvgResponseHours),
		RecencyPoints:    recencyPoints(stats.LastInteraction, now),
		InteractionCount: stats.Count,
		AvgResponseHours: stats.AvgResponseHours,
		LastInteraction:  stats.LastInteraction,
	}
	if stats.LastInteraction != nil {
		days := int(daysSince(*stats.LastInteraction, now))
		s.DaysSinceLastSeen = &days
	}
	return s
}
