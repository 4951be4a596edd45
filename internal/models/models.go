package models

import "time"

// Source identifies the platform a mention was collected from.
type Source string

const (
	SourceTwitter    Source = "twitter"
	SourceFacebook   Source = "facebook"
	SourceGooglePlay Source = "google_play"
)

// Sentiment labels assigned to mention text.
const (
	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"
)

// Mention is a normalized record of a textual reference to the monitored
// brand from one source. (Source, ID) is the dedup key within a run.
type Mention struct {
	Source    Source    `json:"source"`
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// SentimentResult is the canonical classification of one mention's text.
// Score is the confidence mass assigned to the winning label, in [0,1].
type SentimentResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// EnrichedMention is the persisted and ranked unit: a mention plus its
// sentiment classification.
type EnrichedMention struct {
	Mention
	Sentiment SentimentResult `json:"sentiment"`
}

// RunSummary aggregates one run's sentiment outcome.
// NegativeRatio is defined as 0 for an empty run.
type RunSummary struct {
	Total         int               `json:"total"`
	NegativeCount int               `json:"negative_count"`
	NegativeRatio float64           `json:"negative_ratio"`
	TopNegative   []EnrichedMention `json:"top_negative"`
}

// AlertDecision is the pure output of alert evaluation. The orchestrator,
// not the evaluator, decides to call the notifier.
type AlertDecision struct {
	Summary   RunSummary `json:"summary"`
	Threshold float64    `json:"threshold"`
	AlertDue  bool       `json:"alert_due"`
}

// Row is one sink record. Column order is fixed:
// timestamp, source, id, user, text, sentiment_label, sentiment_score.
type Row struct {
	Timestamp      time.Time `json:"timestamp"`
	Source         string    `json:"source"`
	ID             string    `json:"id"`
	User           string    `json:"user"`
	Text           string    `json:"text"`
	SentimentLabel string    `json:"sentiment_label"`
	SentimentScore float64   `json:"sentiment_score"`
}

// RowFromEnriched converts an enriched mention into its sink row.
func RowFromEnriched(m EnrichedMention) Row {
	return Row{
		Timestamp:      m.Timestamp,
		Source:         string(m.Source),
		ID:             m.ID,
		User:           m.Author,
		Text:           m.Text,
		SentimentLabel: m.Sentiment.Label,
		SentimentScore: m.Sentiment.Score,
	}
}

// Outcome classifies how a run ended.
type Outcome string

const (
	// OutcomeSuccess means every source produced usable data.
	OutcomeSuccess Outcome = "success"
	// OutcomeDegraded means some sources failed but the run still
	// produced a usable summary.
	OutcomeDegraded Outcome = "degraded"
	// OutcomeFailure means no source yielded usable data.
	OutcomeFailure Outcome = "failure"
)

// RunReport captures everything that happened during one pipeline run,
// including failures that were recovered locally.
type RunReport struct {
	StartedAt            time.Time         `json:"started_at"`
	Duration             string            `json:"duration"`
	Collected            map[string]int    `json:"collected"`
	SourceErrors         map[string]string `json:"source_errors,omitempty"`
	DroppedOnNormalize   int               `json:"dropped_on_normalize"`
	Duplicates           int               `json:"duplicates"`
	ClassificationErrors int               `json:"classification_errors"`
	StorageError         string            `json:"storage_error,omitempty"`
	NotificationError    string            `json:"notification_error,omitempty"`
	Summary              RunSummary        `json:"summary"`
	AlertSent            bool              `json:"alert_sent"`
	Outcome              Outcome           `json:"outcome"`
}
