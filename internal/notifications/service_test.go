package notifications

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/branchwatch/social-listening-bot/internal/config"
	"github.com/branchwatch/social-listening-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDecision() *models.AlertDecision {
	return &models.AlertDecision{
		Threshold: 0.20,
		AlertDue:  true,
		Summary: models.RunSummary{
			Total:         10,
			NegativeCount: 3,
			NegativeRatio: 0.30,
			TopNegative: []models.EnrichedMention{
				{
					Mention: models.Mention{
						Source:    models.SourceGooglePlay,
						ID:        "r1",
						Author:    "sarah_mobile",
						Text:      "App keeps crashing on startup",
						Timestamp: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
					},
					Sentiment: models.SentimentResult{Label: models.LabelNegative, Score: 0.95},
				},
				{
					Mention: models.Mention{
						Source:    models.SourceTwitter,
						ID:        "t9",
						Author:    "dev_mike",
						Text:      "Deep links are broken again",
						Timestamp: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
					},
					Sentiment: models.SentimentResult{Label: models.LabelNegative, Score: 0.88},
				},
			},
		},
	}
}

func TestBuildSlackMessage(t *testing.T) {
	service := NewService(&config.Config{BrandName: "Branch"})

	message := service.buildSlackMessage(testDecision())

	assert.Contains(t, message.Text, "Branch")
	assert.Contains(t, message.Text, "30.0%")
	assert.Contains(t, message.Text, "10 mentions")
	assert.Contains(t, message.Text, "threshold 20%")

	require.Len(t, message.Attachments, 2)
	assert.Equal(t, "danger", message.Attachments[0].Color)
	assert.Contains(t, message.Attachments[0].Title, "google_play")
	assert.Contains(t, message.Attachments[0].Title, "0.95")
	assert.Equal(t, "App keeps crashing on startup", message.Attachments[0].Text)
}

func TestSendAlert_Slack(t *testing.T) {
	received := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received++
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewService(&config.Config{BrandName: "Branch", SlackWebhookURL: server.URL})

	err := service.SendAlert(testDecision())
	assert.NoError(t, err)
	assert.Equal(t, 1, received)
}

func TestSendAlert_SlackFailureIsReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no_service", http.StatusInternalServerError)
	}))
	defer server.Close()

	service := NewService(&config.Config{BrandName: "Branch", SlackWebhookURL: server.URL})

	err := service.SendAlert(testDecision())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Slack")
}

func TestSendAlert_NoChannelsConfigured(t *testing.T) {
	service := NewService(&config.Config{BrandName: "Branch"})

	// An alert that cannot reach anyone must not look delivered.
	err := service.SendAlert(testDecision())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no notification channels configured")
}
