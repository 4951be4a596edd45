// Package pipeline sequences the collection-to-alert stages and isolates
// per-source and per-stage failures so one bad collaborator never sinks a
// run.
package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/branchwatch/social-listening-bot/internal/alerting"
	"github.com/branchwatch/social-listening-bot/internal/config"
	"github.com/branchwatch/social-listening-bot/internal/dedupe"
	"github.com/branchwatch/social-listening-bot/internal/models"
	"github.com/branchwatch/social-listening-bot/internal/normalize"
	"github.com/branchwatch/social-listening-bot/internal/notifications"
	"github.com/branchwatch/social-listening-bot/internal/sentiment"
	"github.com/branchwatch/social-listening-bot/internal/sources"
	"github.com/branchwatch/social-listening-bot/internal/storage"
	"github.com/sirupsen/logrus"
)

// Service runs the collection-to-alert pipeline.
type Service struct {
	config     *config.Config
	collectors []sources.Collector
	classifier *sentiment.Classifier
	writer     storage.Writer
	notifier   notifications.Notifier

	mu      sync.RWMutex
	metrics *Metrics
}

// Metrics holds counters from the most recent run, exported by the
// serve-mode /metrics endpoint.
type Metrics struct {
	TotalMentions      int            `json:"total_mentions"`
	LastRun            time.Time      `json:"last_run"`
	LastRunDuration    string         `json:"last_run_duration"`
	LastOutcome        models.Outcome `json:"last_outcome"`
	SourceMetrics      map[string]int `json:"source_metrics"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	ErrorCount         int            `json:"error_count"`
}

// NewService wires the pipeline from its collaborators.
func NewService(cfg *config.Config, collectors []sources.Collector, classifier *sentiment.Classifier, writer storage.Writer, notifier notifications.Notifier) *Service {
	return &Service{
		config:     cfg,
		collectors: collectors,
		classifier: classifier,
		writer:     writer,
		notifier:   notifier,
		metrics: &Metrics{
			SourceMetrics:      make(map[string]int),
			SentimentBreakdown: make(map[string]int),
		},
	}
}

// Run executes the stages in sequence: collect per source (isolated),
// normalize, dedupe, classify, persist, evaluate, notify. It always
// returns a report; only a total absence of usable data is a failure.
func (s *Service) Run(ctx context.Context) *models.RunReport {
	start := time.Now()
	logrus.Infof("Starting listening run for brand %q", s.config.BrandName)

	report := &models.RunReport{
		StartedAt:    start,
		Collected:    make(map[string]int),
		SourceErrors: make(map[string]string),
	}

	// Stage 1: collection, one source at a time, failures isolated.
	var records []sources.RawRecord
	usableSources := 0
	enabledSources := 0

	for _, collector := range s.collectors {
		if !collector.Enabled() {
			logrus.Infof("Skipping disabled collector %s", collector.Name())
			continue
		}
		enabledSources++

		collected, err := collector.Collect(ctx)
		if err != nil {
			logrus.Errorf("Collection from %s failed, continuing with other sources: %v", collector.Name(), err)
			report.SourceErrors[collector.Name()] = err.Error()
			continue
		}

		logrus.Infof("Collected %d records from %s", len(collected), collector.Name())
		report.Collected[collector.Name()] = len(collected)
		records = append(records, collected...)
		usableSources++
	}

	// Stage 2: normalization.
	mentions, normStats := normalize.Normalize(records, time.Now)
	report.DroppedOnNormalize = normStats.Dropped

	// Optional relevance filter between normalization and dedup, for
	// brand queries that collect noisy homonyms.
	if len(s.config.Keywords) > 0 {
		before := len(mentions)
		mentions = filterByRelevance(mentions, s.config.Keywords)
		logrus.Infof("Relevance filter kept %d of %d mentions", len(mentions), before)
	}

	// Stage 3: deduplication.
	mentions, duplicates := dedupe.Deduplicate(mentions)
	report.Duplicates = duplicates

	// Stage 4: sentiment classification.
	texts := make([]string, len(mentions))
	for i, mention := range mentions {
		texts[i] = mention.Text
	}
	results, classifyFailures := s.classifier.Classify(ctx, texts)
	report.ClassificationErrors = classifyFailures

	enriched := make([]models.EnrichedMention, len(mentions))
	for i, mention := range mentions {
		enriched[i] = models.EnrichedMention{Mention: mention, Sentiment: results[i]}
	}

	// Stage 5: persistence. A sink failure is recorded, not fatal;
	// alerting proceeds on in-memory results.
	rows := make([]models.Row, len(enriched))
	for i, mention := range enriched {
		rows[i] = models.RowFromEnriched(mention)
	}
	if err := s.writer.Append(ctx, rows); err != nil {
		logrus.Errorf("Failed to persist %d rows, continuing to alerting: %v", len(rows), err)
		report.StorageError = err.Error()
	}

	// Stage 6: alert evaluation and delivery.
	decision := alerting.Evaluate(enriched, s.config.AlertThreshold)
	report.Summary = decision.Summary

	if decision.AlertDue {
		logrus.Warnf("Negative ratio %.2f crossed threshold %.2f, sending alert",
			decision.Summary.NegativeRatio, decision.Threshold)
		if err := s.notifier.SendAlert(&decision); err != nil {
			logrus.Errorf("Alert delivery failed: %v", err)
			report.NotificationError = err.Error()
		} else {
			report.AlertSent = true
		}
	} else {
		logrus.Infof("Negative ratio %.2f below threshold %.2f, no alert",
			decision.Summary.NegativeRatio, decision.Threshold)
	}

	report.Outcome = outcome(enabledSources, usableSources)
	report.Duration = time.Since(start).String()

	s.updateMetrics(enriched, report)

	logrus.Infof("Listening run completed in %s with outcome %s", report.Duration, report.Outcome)
	return report
}

// filterByRelevance keeps mentions whose text or author contains at least
// one keyword, case-insensitively.
func filterByRelevance(mentions []models.Mention, keywords []string) []models.Mention {
	lowered := make([]string, len(keywords))
	for i, keyword := range keywords {
		lowered[i] = strings.ToLower(strings.TrimSpace(keyword))
	}

	filtered := make([]models.Mention, 0, len(mentions))
	for _, mention := range mentions {
		text := strings.ToLower(mention.Text + " " + mention.Author)
		for _, keyword := range lowered {
			if keyword != "" && strings.Contains(text, keyword) {
				filtered = append(filtered, mention)
				break
			}
		}
	}

	return filtered
}

// outcome classifies the run: failure when no source produced usable data,
// including an all-disabled run, degraded when only some did.
func outcome(enabled, usable int) models.Outcome {
	switch {
	case usable == 0:
		return models.OutcomeFailure
	case usable < enabled:
		return models.OutcomeDegraded
	default:
		return models.OutcomeSuccess
	}
}

func (s *Service) updateMetrics(enriched []models.EnrichedMention, report *models.RunReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.TotalMentions = len(enriched)
	s.metrics.LastRun = report.StartedAt
	s.metrics.LastRunDuration = report.Duration
	s.metrics.LastOutcome = report.Outcome
	s.metrics.ErrorCount = len(report.SourceErrors) + report.ClassificationErrors

	s.metrics.SourceMetrics = make(map[string]int)
	s.metrics.SentimentBreakdown = make(map[string]int)

	for _, mention := range enriched {
		s.metrics.SourceMetrics[string(mention.Source)]++
		s.metrics.SentimentBreakdown[mention.Sentiment.Label]++
	}
}

// GetMetrics returns the current metrics as JSON.
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
