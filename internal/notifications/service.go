package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/branchwatch/social-listening-bot/internal/config"
	"github.com/branchwatch/social-listening-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service delivers alerts over the configured channels: a Slack incoming
// webhook and, optionally, email.
type Service struct {
	config *config.Config
	client *resty.Client
}

var _ Notifier = (*Service)(nil)

// SlackMessage is the incoming-webhook payload.
type SlackMessage struct {
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

type SlackAttachment struct {
	Color  string       `json:"color,omitempty"`
	Title  string       `json:"title,omitempty"`
	Text   string       `json:"text,omitempty"`
	Fields []SlackField `json:"fields,omitempty"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewService creates a new notification service.
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendAlert delivers the negative-sentiment alert to every configured
// channel, collecting per-channel failures.
func (s *Service) SendAlert(decision *models.AlertDecision) error {
	if s.config.SlackWebhookURL == "" && s.config.NotificationEmail == "" {
		return fmt.Errorf("no notification channels configured")
	}

	var errors []string

	if s.config.SlackWebhookURL != "" {
		if err := s.sendToSlack(decision); err != nil {
			logrus.Errorf("Failed to send Slack alert: %v", err)
			errors = append(errors, fmt.Sprintf("Slack: %v", err))
		} else {
			logrus.Info("Successfully sent alert to Slack")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(decision); err != nil {
			logrus.Errorf("Failed to send email alert: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent alert via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToSlack(decision *models.AlertDecision) error {
	message := s.buildSlackMessage(decision)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.SlackWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Slack message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildSlackMessage(decision *models.AlertDecision) *SlackMessage {
	summary := decision.Summary

	message := &SlackMessage{
		Text: fmt.Sprintf("Negative sentiment alert for %s: %.1f%% of %d mentions are negative (threshold %.0f%%)",
			s.config.BrandName, summary.NegativeRatio*100, summary.Total, decision.Threshold*100),
	}

	for _, mention := range summary.TopNegative {
		message.Attachments = append(message.Attachments, SlackAttachment{
			Color: "danger",
			Title: fmt.Sprintf("%s (score %.2f)", mention.Source, mention.Sentiment.Score),
			Text:  mention.Text,
			Fields: []SlackField{
				{Title: "Author", Value: mention.Author, Short: true},
				{Title: "Posted", Value: mention.Timestamp.Format("2006-01-02 15:04 UTC"), Short: true},
			},
		})
	}

	return message
}

func (s *Service) sendEmail(decision *models.AlertDecision) error {
	summary := decision.Summary
	subject := fmt.Sprintf("%s sentiment alert: %.1f%% negative (%d mentions)",
		s.config.BrandName, summary.NegativeRatio*100, summary.Total)

	var body strings.Builder
	fmt.Fprintf(&body, "Negative sentiment crossed the %.0f%% threshold.\n\n", decision.Threshold*100)
	fmt.Fprintf(&body, "Total mentions: %d\nNegative mentions: %d (%.1f%%)\n\n",
		summary.Total, summary.NegativeCount, summary.NegativeRatio*100)

	if len(summary.TopNegative) > 0 {
		body.WriteString("Top negative mentions:\n")
		for i, mention := range summary.TopNegative {
			fmt.Fprintf(&body, "%d. [%s] %s (score %.2f, by %s)\n",
				i+1, mention.Source, mention.Text, mention.Sentiment.Score, mention.Author)
		}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body.String())

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
