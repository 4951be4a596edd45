package sentiment

import (
	"strings"

	"github.com/branchwatch/social-listening-bot/internal/models"
)

var positiveWords = []string{
	"good", "great", "excellent", "love", "awesome", "fantastic",
	"helpful", "works", "solved", "success", "impressed", "seamless",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "hate", "broken", "error",
	"fail", "problem", "issue", "bug", "struggling", "crash",
}

// lexiconScore is the offline fallback backend: a word-count scorer over
// small positive/negative lexicons. The score is the share of sentiment
// words agreeing with the winning label, so a text with only positive
// hits scores 1.0 and a mixed text scores lower.
func lexiconScore(text string) models.SentimentResult {
	content := strings.ToLower(text)

	positiveCount := 0
	negativeCount := 0

	for _, word := range positiveWords {
		if strings.Contains(content, word) {
			positiveCount++
		}
	}

	for _, word := range negativeWords {
		if strings.Contains(content, word) {
			negativeCount++
		}
	}

	total := positiveCount + negativeCount

	switch {
	case positiveCount > negativeCount:
		return models.SentimentResult{
			Label: models.LabelPositive,
			Score: float64(positiveCount) / float64(total),
		}
	case negativeCount > positiveCount:
		return models.SentimentResult{
			Label: models.LabelNegative,
			Score: float64(negativeCount) / float64(total),
		}
	case total == 0:
		return models.SentimentResult{Label: models.LabelNeutral, Score: 1.0}
	default:
		// Equal positive and negative evidence.
		return models.SentimentResult{Label: models.LabelNeutral, Score: 0.5}
	}
}
