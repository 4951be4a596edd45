package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/branchwatch/social-listening-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const playReviewsURL = "https://play.google.com/store/getreviews"

// GooglePlayCollector fetches the newest reviews of the brand's app from
// the Play Store reviews endpoint. The endpoint returns an anti-JSON
// prefix followed by a JSON array whose payload is an HTML fragment.
type GooglePlayCollector struct {
	appID  string
	client *resty.Client
}

var _ Collector = (*GooglePlayCollector)(nil)

// NewGooglePlayCollector creates a new Play Store reviews collector.
func NewGooglePlayCollector(appID string) *GooglePlayCollector {
	return &GooglePlayCollector{
		appID: appID,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "social-listening-bot/1.0"),
	}
}

func (g *GooglePlayCollector) Name() string {
	return string(models.SourceGooglePlay)
}

func (g *GooglePlayCollector) Enabled() bool {
	return g.appID != ""
}

func (g *GooglePlayCollector) Collect(ctx context.Context) ([]RawRecord, error) {
	if !g.Enabled() {
		logrus.Debug("Google Play collector disabled - missing app id")
		return nil, nil
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"reviewType":      "0",
			"pageNum":         "0",
			"id":              g.appID,
			"reviewSortOrder": "0", // newest first
			"xhr":             "1",
		}).
		Post(playReviewsURL)

	if err != nil {
		return nil, fmt.Errorf("play store reviews request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("play store returned status %d", resp.StatusCode())
	}

	fragment, err := reviewsFragment(resp.Body())
	if err != nil {
		return nil, err
	}

	records, err := parseReviews(fragment)
	if err != nil {
		return nil, err
	}

	logrus.Infof("Found %d Google Play reviews for app '%s'", len(records), g.appID)
	return records, nil
}

// reviewsFragment strips the )]}' anti-JSON prefix and digs the HTML
// payload out of the envelope.
func reviewsFragment(body []byte) (string, error) {
	text := strings.TrimSpace(string(body))
	text = strings.TrimPrefix(text, ")]}'")

	var envelope [][]json.RawMessage
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return "", fmt.Errorf("failed to parse reviews envelope: %w", err)
	}
	if len(envelope) == 0 || len(envelope[0]) < 3 {
		return "", fmt.Errorf("unexpected reviews envelope shape")
	}

	var fragment string
	if err := json.Unmarshal(envelope[0][2], &fragment); err != nil {
		return "", fmt.Errorf("failed to decode reviews fragment: %w", err)
	}

	return fragment, nil
}

func parseReviews(fragment string) ([]RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("failed to parse reviews fragment: %w", err)
	}

	var records []RawRecord

	doc.Find("div.single-review").Each(func(i int, sel *goquery.Selection) {
		review := PlayReview{
			ReviewID:  strings.TrimSpace(sel.Find(".review-header").AttrOr("data-reviewid", "")),
			Author:    strings.TrimSpace(sel.Find(".author-name").Text()),
			Body:      strings.TrimSpace(sel.Find(".review-body").Text()),
			Rating:    parseRating(sel.Find(".current-rating").AttrOr("style", "")),
			Submitted: strings.TrimSpace(sel.Find(".review-date").Text()),
		}

		records = append(records, RawRecord{Source: models.SourceGooglePlay, GooglePlay: &review})
	})

	return records, nil
}

// parseRating maps the star-bar width style ("width: 80%") to 1-5 stars.
func parseRating(style string) int {
	style = strings.TrimSpace(style)
	const marker = "width:"
	idx := strings.Index(style, marker)
	if idx < 0 {
		return 0
	}
	pct := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(style[idx+len(marker):]), "%"))
	var width int
	if _, err := fmt.Sscanf(pct, "%d", &width); err != nil {
		return 0
	}
	return width / 20
}
