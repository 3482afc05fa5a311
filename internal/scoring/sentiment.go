package scoring

import "strings"

var (
	positiveKeywords = []string{"great", "excellent", "happy", "pleased", "thank", "appreciate"}
	negativeKeywords = []string{"disappointed", "unhappy", "frustrated", "concerned", "issue", "problem"}
)

// Sentiment scores free text on -1..1 from keyword hits.
// Keywords match anywhere in the lowercased text, so "thanks" and "issues"
// count. Each keyword counts once no matter how often it appears.
func Sentiment(text string) float64 {
	if text == "" {
		return 0
	}
	text = strings.ToLower(text)

	score := 0
	for _, k := range positiveKeywords {
		if strings.Contains(text, k) {
			score++
		}
	}
	for _, k := range negativeKeywords {
		if strings.Contains(text, k) {
			score--
		}
	}

	return clamp(float64(score)/5, -1, 1)
}
