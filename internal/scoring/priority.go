package scoring

import (
	"math"
	"time"

	"github.com/wisedom/wisedom/internal/model"
)

// inactiveAfterDays is when the priority score starts to be discounted.
const inactiveAfterDays = 30

// PriorityInput carries the signals that feed PriorityScore.
type PriorityInput struct {
	// RelationshipStrength is normalised to 0..1.
	RelationshipStrength    float64
	RecentInteractions      int
	HighImportanceUpdates   int
	MediumImportanceUpdates int
	AvgSentiment            float64
	LastInteraction         *time.Time
}

// PriorityScore ranks how much attention a contact needs, on 0..100.
func PriorityScore(in PriorityInput, now time.Time) float64 {
	score := in.RelationshipStrength * 20
	score += float64(in.RecentInteractions) * 5
	score += float64(in.HighImportanceUpdates) * 15
	score += float64(in.MediumImportanceUpdates) * 10
	score += in.AvgSentiment * 10

	if in.LastInteraction == nil || math.Ceil(daysSince(*in.LastInteraction, now)) > inactiveAfterDays {
		score *= 0.8
	}

	return clamp(score, 0, 100)
}

// PriorityInputFor builds the input from a contact and its interaction stats.
// stats may be nil for contacts without interactions.
func PriorityInputFor(c *model.Contact, stats *model.InteractionStats) PriorityInput {
	in := PriorityInput{
		RelationshipStrength: float64(c.RelationshipStrength) / model.MaxRelationshipStrength,
		LastInteraction:      c.LastContactDate,
	}
	if stats == nil {
		return in
	}

	in.RecentInteractions = stats.RecentCount
	in.HighImportanceUpdates = stats.HighImportanceCount
	in.MediumImportanceUpdates = stats.MediumImportanceCount
	in.AvgSentiment = stats.AvgSentiment
	if stats.LastInteraction != nil {
		in.LastInteraction = stats.LastInteraction
	}
	return in
}
