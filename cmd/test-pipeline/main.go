// Command test-pipeline exercises the full pipeline against simulated
// collectors, a temporary sink, and a terminal notifier. Useful for
// checking the wiring without credentials.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/branchwatch/social-listening-bot/internal/config"
	"github.com/branchwatch/social-listening-bot/internal/models"
	"github.com/branchwatch/social-listening-bot/internal/pipeline"
	"github.com/branchwatch/social-listening-bot/internal/sentiment"
	"github.com/branchwatch/social-listening-bot/internal/sources"
	"github.com/branchwatch/social-listening-bot/internal/storage"
	"github.com/sirupsen/logrus"
)

var sampleTweets = []string{
	"Just tried the new Branch app features - really impressed with the user experience!",
	"Having issues with Branch deep linking, anyone else experiencing this?",
	"Branch attribution is working great for our mobile campaigns",
	"The Branch dashboard analytics are so helpful for understanding user behavior",
	"Struggling with Branch configuration for our web app, any tips?",
	"Love how Branch handles cross-platform linking seamlessly",
	"Branch support team was super helpful with our implementation",
	"Branch deep links keep failing on Android, this bug is terrible",
}

// fakeCollector hands back canned records for one source.
type fakeCollector struct {
	source  models.Source
	records []sources.RawRecord
}

func (f *fakeCollector) Name() string  { return string(f.source) }
func (f *fakeCollector) Enabled() bool { return true }
func (f *fakeCollector) Collect(ctx context.Context) ([]sources.RawRecord, error) {
	return f.records, nil
}

// terminalNotifier prints the alert instead of delivering it.
type terminalNotifier struct{}

func (t *terminalNotifier) SendAlert(decision *models.AlertDecision) error {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("NEGATIVE SENTIMENT ALERT")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Negative ratio: %.1f%% (threshold %.0f%%)\n",
		decision.Summary.NegativeRatio*100, decision.Threshold*100)
	fmt.Printf("Total mentions: %d\n", decision.Summary.Total)
	fmt.Println("\nTop negative mentions:")
	for i, mention := range decision.Summary.TopNegative {
		fmt.Printf("  %d. [%s] %s (score %.2f)\n", i+1, mention.Source, mention.Text, mention.Sentiment.Score)
	}
	fmt.Println(strings.Repeat("=", 70))
	return nil
}

func main() {
	logrus.SetLevel(logrus.InfoLevel)

	cfg := &config.Config{
		BrandName:          "Branch",
		AlertThreshold:     0.20,
		SentimentBatchSize: 8,
	}

	sinkPath := filepath.Join(os.TempDir(), fmt.Sprintf("test-pipeline-%d.db", time.Now().UnixNano()))
	writer, err := storage.NewSQLiteWriter(sinkPath, false)
	if err != nil {
		logrus.Fatalf("Failed to open temp sink: %v", err)
	}
	defer os.Remove(sinkPath)
	defer writer.Close()

	classifier := sentiment.NewClassifier("", "", cfg.SentimentBatchSize)
	defer classifier.Close()

	collectors := []sources.Collector{
		&fakeCollector{source: models.SourceTwitter, records: simulatedTweets()},
		&fakeCollector{source: models.SourceGooglePlay, records: simulatedReviews()},
	}

	service := pipeline.NewService(cfg, collectors, classifier, writer, &terminalNotifier{})
	report := service.Run(context.Background())

	fmt.Printf("\nOutcome: %s\n", report.Outcome)
	fmt.Printf("Collected: %v, duplicates removed: %d, dropped: %d\n",
		report.Collected, report.Duplicates, report.DroppedOnNormalize)
	fmt.Printf("Negative ratio: %.2f, alert sent: %v\n",
		report.Summary.NegativeRatio, report.AlertSent)

	rows, err := writer.ReadAll(context.Background())
	if err != nil {
		logrus.Fatalf("Failed to read sink back: %v", err)
	}
	fmt.Printf("Sink rows: %d\n", len(rows))
}

func simulatedTweets() []sources.RawRecord {
	records := make([]sources.RawRecord, 0, len(sampleTweets))
	for i, text := range sampleTweets {
		records = append(records, sources.RawRecord{
			Source: models.SourceTwitter,
			Tweet: &sources.Tweet{
				ID:        fmt.Sprintf("sim_%d", i+1),
				Text:      text,
				AuthorID:  fmt.Sprintf("user_%d", i%4),
				CreatedAt: time.Now().Add(-time.Duration(i) * time.Hour).Format(time.RFC3339),
			},
		})
	}
	// A duplicate, so dedup has something to do.
	records = append(records, records[0])
	return records
}

func simulatedReviews() []sources.RawRecord {
	return []sources.RawRecord{
		{
			Source: models.SourceGooglePlay,
			GooglePlay: &sources.PlayReview{
				ReviewID:  "gp_sim_1",
				Author:    "mobile_dev",
				Body:      "The app crashes on startup, awful experience",
				Rating:    1,
				Submitted: time.Now().Format(time.RFC3339),
			},
		},
		{
			Source: models.SourceGooglePlay,
			GooglePlay: &sources.PlayReview{
				ReviewID:  "gp_sim_2",
				Author:    "growth_hacker",
				Body:      "Excellent attribution tooling, works great",
				Rating:    5,
				Submitted: time.Now().Format(time.RFC3339),
			},
		},
	}
}
