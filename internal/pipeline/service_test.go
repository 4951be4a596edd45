package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/branchwatch/social-listening-bot/internal/config"
	"github.com/branchwatch/social-listening-bot/internal/models"
	"github.com/branchwatch/social-listening-bot/internal/sentiment"
	"github.com/branchwatch/social-listening-bot/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockWriter is a mock implementation of the storage writer
type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) Append(ctx context.Context, rows []models.Row) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *MockWriter) ReadAll(ctx context.Context) ([]models.Row, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Row), args.Error(1)
}

func (m *MockWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockNotifier is a mock implementation of the notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendAlert(decision *models.AlertDecision) error {
	args := m.Called(decision)
	return args.Error(0)
}

// stubCollector hands back canned records or a canned error.
type stubCollector struct {
	name    string
	records []sources.RawRecord
	err     error
	enabled bool
}

func (s *stubCollector) Name() string  { return s.name }
func (s *stubCollector) Enabled() bool { return s.enabled }
func (s *stubCollector) Collect(ctx context.Context) ([]sources.RawRecord, error) {
	return s.records, s.err
}

func tweetRecords(count int, negative int) []sources.RawRecord {
	var records []sources.RawRecord
	for i := 0; i < count; i++ {
		text := "works great, love it"
		if i < negative {
			text = "terrible broken bug, hate it"
		}
		records = append(records, sources.RawRecord{
			Source: models.SourceTwitter,
			Tweet: &sources.Tweet{
				ID:        fmt.Sprintf("t%d", i),
				Text:      text,
				AuthorID:  "author",
				CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
			},
		})
	}
	return records
}

func newTestService(collectors []sources.Collector, writer *MockWriter, notifier *MockNotifier) *Service {
	cfg := &config.Config{
		BrandName:          "Branch",
		AlertThreshold:     0.20,
		SentimentBatchSize: 8,
	}
	classifier := sentiment.NewClassifier("", "", cfg.SentimentBatchSize)
	return NewService(cfg, collectors, classifier, writer, notifier)
}

func TestRun_AlertSentWhenThresholdCrossed(t *testing.T) {
	writer := &MockWriter{}
	notifier := &MockNotifier{}
	writer.On("Append", mock.Anything, mock.Anything).Return(nil)
	notifier.On("SendAlert", mock.Anything).Return(nil)

	collectors := []sources.Collector{
		&stubCollector{name: "twitter", enabled: true, records: tweetRecords(10, 3)},
	}

	report := newTestService(collectors, writer, notifier).Run(context.Background())

	assert.Equal(t, models.OutcomeSuccess, report.Outcome)
	assert.Equal(t, 10, report.Summary.Total)
	assert.InDelta(t, 0.30, report.Summary.NegativeRatio, 1e-9)
	assert.True(t, report.AlertSent)
	assert.Len(t, report.Summary.TopNegative, 3)

	notifier.AssertNumberOfCalls(t, "SendAlert", 1)
	writer.AssertNumberOfCalls(t, "Append", 1)
}

func TestRun_NoAlertBelowThreshold(t *testing.T) {
	writer := &MockWriter{}
	notifier := &MockNotifier{}
	writer.On("Append", mock.Anything, mock.Anything).Return(nil)

	collectors := []sources.Collector{
		&stubCollector{name: "twitter", enabled: true, records: tweetRecords(10, 1)},
	}

	report := newTestService(collectors, writer, notifier).Run(context.Background())

	assert.InDelta(t, 0.10, report.Summary.NegativeRatio, 1e-9)
	assert.False(t, report.AlertSent)
	notifier.AssertNotCalled(t, "SendAlert", mock.Anything)
}

func TestRun_OneFailingSourceDegradesButProcessesOthers(t *testing.T) {
	writer := &MockWriter{}
	notifier := &MockNotifier{}
	writer.On("Append", mock.Anything, mock.Anything).Return(nil)
	notifier.On("SendAlert", mock.Anything).Return(nil)

	collectors := []sources.Collector{
		&stubCollector{name: "twitter", enabled: true, records: tweetRecords(4, 4)},
		&stubCollector{name: "facebook", enabled: true, err: errors.New("page unreachable")},
	}

	report := newTestService(collectors, writer, notifier).Run(context.Background())

	assert.Equal(t, models.OutcomeDegraded, report.Outcome)
	assert.Equal(t, 4, report.Summary.Total, "surviving source data must still flow")
	assert.Contains(t, report.SourceErrors, "facebook")
	assert.True(t, report.AlertSent)
}

func TestRun_AllSourcesFailingIsFailure(t *testing.T) {
	writer := &MockWriter{}
	notifier := &MockNotifier{}
	writer.On("Append", mock.Anything, mock.Anything).Return(nil)

	collectors := []sources.Collector{
		&stubCollector{name: "twitter", enabled: true, err: errors.New("rate limited hard")},
		&stubCollector{name: "facebook", enabled: true, err: errors.New("page unreachable")},
	}

	report := newTestService(collectors, writer, notifier).Run(context.Background())

	assert.Equal(t, models.OutcomeFailure, report.Outcome)
	assert.Equal(t, 0, report.Summary.Total)
	assert.False(t, report.AlertSent)
}

func TestRun_DisabledSourcesDoNotCountAsFailures(t *testing.T) {
	writer := &MockWriter{}
	notifier := &MockNotifier{}
	writer.On("Append", mock.Anything, mock.Anything).Return(nil)

	collectors := []sources.Collector{
		&stubCollector{name: "twitter", enabled: true, records: tweetRecords(2, 0)},
		&stubCollector{name: "facebook", enabled: false},
	}

	report := newTestService(collectors, writer, notifier).Run(context.Background())

	assert.Equal(t, models.OutcomeSuccess, report.Outcome)
}

func TestRun_AllSourcesDisabledIsFailure(t *testing.T) {
	writer := &MockWriter{}
	notifier := &MockNotifier{}
	writer.On("Append", mock.Anything, mock.Anything).Return(nil)

	collectors := []sources.Collector{
		&stubCollector{name: "twitter", enabled: false},
		&stubCollector{name: "facebook", enabled: false},
	}

	report := newTestService(collectors, writer, notifier).Run(context.Background())

	assert.Equal(t, models.OutcomeFailure, report.Outcome)
	assert.Equal(t, 0, report.Summary.Total)
}

func TestRun_StorageFailureStillAlerts(t *testing.T) {
	writer := &MockWriter{}
	notifier := &MockNotifier{}
	writer.On("Append", mock.Anything, mock.Anything).Return(errors.New("sink unreachable"))
	notifier.On("SendAlert", mock.Anything).Return(nil)

	collectors := []sources.Collector{
		&stubCollector{name: "twitter", enabled: true, records: tweetRecords(10, 5)},
	}

	report := newTestService(collectors, writer, notifier).Run(context.Background())

	assert.Equal(t, "sink unreachable", report.StorageError)
	assert.True(t, report.AlertSent, "alerting proceeds on in-memory results")
	assert.Equal(t, models.OutcomeSuccess, report.Outcome)
}

func TestRun_NotificationFailureIsNotFatal(t *testing.T) {
	writer := &MockWriter{}
	notifier := &MockNotifier{}
	writer.On("Append", mock.Anything, mock.Anything).Return(nil)
	notifier.On("SendAlert", mock.Anything).Return(errors.New("webhook 500"))

	collectors := []sources.Collector{
		&stubCollector{name: "twitter", enabled: true, records: tweetRecords(10, 5)},
	}

	report := newTestService(collectors, writer, notifier).Run(context.Background())

	assert.False(t, report.AlertSent)
	assert.Contains(t, report.NotificationError, "webhook 500")
	assert.Equal(t, models.OutcomeSuccess, report.Outcome)
}

func TestRun_DuplicatesRemovedBeforeClassification(t *testing.T) {
	writer := &MockWriter{}
	notifier := &MockNotifier{}
	writer.On("Append", mock.Anything, mock.Anything).Return(nil)

	records := tweetRecords(3, 0)
	records = append(records, records[0], records[1])

	collectors := []sources.Collector{
		&stubCollector{name: "twitter", enabled: true, records: records},
	}

	report := newTestService(collectors, writer, notifier).Run(context.Background())

	assert.Equal(t, 2, report.Duplicates)
	assert.Equal(t, 3, report.Summary.Total)

	require.Len(t, writer.Calls, 1)
	rows := writer.Calls[0].Arguments.Get(1).([]models.Row)
	assert.Len(t, rows, 3)
}

func TestRun_EmptyRunNeverAlerts(t *testing.T) {
	writer := &MockWriter{}
	notifier := &MockNotifier{}
	writer.On("Append", mock.Anything, mock.Anything).Return(nil)

	collectors := []sources.Collector{
		&stubCollector{name: "twitter", enabled: true, records: nil},
	}

	report := newTestService(collectors, writer, notifier).Run(context.Background())

	assert.Equal(t, models.OutcomeSuccess, report.Outcome)
	assert.Equal(t, 0, report.Summary.Total)
	assert.Equal(t, float64(0), report.Summary.NegativeRatio)
	notifier.AssertNotCalled(t, "SendAlert", mock.Anything)
}

func TestFilterByRelevance(t *testing.T) {
	mentions := []models.Mention{
		{ID: "1", Text: "Branch deep linking is great"},
		{ID: "2", Text: "tree branch fell on my car", Author: "gardener"},
		{ID: "3", Text: "attribution works", Author: "branchapp_fan"},
		{ID: "4", Text: "unrelated chatter"},
	}

	filtered := filterByRelevance(mentions, []string{"deep link", "branchapp", "attribution"})

	require.Len(t, filtered, 2)
	assert.Equal(t, "1", filtered[0].ID)
	assert.Equal(t, "3", filtered[1].ID)
}

func TestRun_KeywordFilterApplied(t *testing.T) {
	writer := &MockWriter{}
	notifier := &MockNotifier{}
	writer.On("Append", mock.Anything, mock.Anything).Return(nil)

	records := []sources.RawRecord{
		{
			Source: models.SourceTwitter,
			Tweet:  &sources.Tweet{ID: "1", Text: "Branch attribution works, love it"},
		},
		{
			Source: models.SourceTwitter,
			Tweet:  &sources.Tweet{ID: "2", Text: "a branch fell in the storm"},
		},
	}

	cfg := &config.Config{
		BrandName:          "Branch",
		AlertThreshold:     0.20,
		SentimentBatchSize: 8,
		Keywords:           []string{"attribution"},
	}
	classifier := sentiment.NewClassifier("", "", cfg.SentimentBatchSize)
	service := NewService(cfg, []sources.Collector{
		&stubCollector{name: "twitter", enabled: true, records: records},
	}, classifier, writer, notifier)

	report := service.Run(context.Background())

	assert.Equal(t, 1, report.Summary.Total)
}

func TestGetMetrics(t *testing.T) {
	writer := &MockWriter{}
	notifier := &MockNotifier{}
	writer.On("Append", mock.Anything, mock.Anything).Return(nil)
	notifier.On("SendAlert", mock.Anything).Return(nil)

	collectors := []sources.Collector{
		&stubCollector{name: "twitter", enabled: true, records: tweetRecords(4, 2)},
	}

	service := newTestService(collectors, writer, notifier)
	service.Run(context.Background())

	metrics := service.GetMetrics()
	assert.Contains(t, metrics, `"total_mentions": 4`)
	assert.Contains(t, metrics, `"last_outcome": "success"`)
}
