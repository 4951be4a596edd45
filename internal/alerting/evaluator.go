// Package alerting computes a run's negative share and decides whether it
// warrants a notification. Evaluation is pure: it never calls the notifier.
package alerting

import (
	"sort"

	"github.com/branchwatch/social-listening-bot/internal/models"
)

// TopNegativeLimit caps how many offending examples an alert carries.
const TopNegativeLimit = 3

// DefaultThreshold is the negative-ratio cutoff used when none is configured.
const DefaultThreshold = 0.20

// Evaluate summarizes the run and decides whether an alert is due. An
// empty run has ratio 0 and never alerts. TopNegative contains the
// negative-labeled mentions ordered by score descending, ties broken by
// most recent timestamp, truncated to TopNegativeLimit.
func Evaluate(enriched []models.EnrichedMention, threshold float64) models.AlertDecision {
	summary := models.RunSummary{Total: len(enriched)}

	var negatives []models.EnrichedMention
	for _, mention := range enriched {
		if mention.Sentiment.Label == models.LabelNegative {
			negatives = append(negatives, mention)
		}
	}

	summary.NegativeCount = len(negatives)
	if summary.Total > 0 {
		summary.NegativeRatio = float64(summary.NegativeCount) / float64(summary.Total)
	}

	sort.SliceStable(negatives, func(i, j int) bool {
		if negatives[i].Sentiment.Score != negatives[j].Sentiment.Score {
			return negatives[i].Sentiment.Score > negatives[j].Sentiment.Score
		}
		return negatives[i].Timestamp.After(negatives[j].Timestamp)
	})

	if len(negatives) > TopNegativeLimit {
		negatives = negatives[:TopNegativeLimit]
	}
	summary.TopNegative = negatives

	return models.AlertDecision{
		Summary:   summary,
		Threshold: threshold,
		AlertDue:  summary.Total > 0 && summary.NegativeRatio >= threshold,
	}
}
