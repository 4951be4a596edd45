package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/branchwatch/social-listening-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const twitterSearchURL = "https://api.twitter.com/2/tweets/search/recent"

// TwitterCollector fetches recent tweets matching the brand query via the
// Twitter v2 recent-search API.
type TwitterCollector struct {
	bearerToken string
	query       string
	maxResults  int
	client      *resty.Client
}

var _ Collector = (*TwitterCollector)(nil)

type twitterSearchResponse struct {
	Data []Tweet `json:"data"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

// NewTwitterCollector creates a new Twitter collector.
func NewTwitterCollector(bearerToken, query string, maxResults int) *TwitterCollector {
	if maxResults < 10 {
		maxResults = 10 // API minimum
	}
	if maxResults > 100 {
		maxResults = 100 // API maximum per page
	}
	return &TwitterCollector{
		bearerToken: bearerToken,
		query:       query,
		maxResults:  maxResults,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "social-listening-bot/1.0"),
	}
}

func (t *TwitterCollector) Name() string {
	return string(models.SourceTwitter)
}

func (t *TwitterCollector) Enabled() bool {
	return t.bearerToken != ""
}

func (t *TwitterCollector) Collect(ctx context.Context) ([]RawRecord, error) {
	if !t.Enabled() {
		logrus.Debug("Twitter collector disabled - missing bearer token")
		return nil, nil
	}

	searchURL := fmt.Sprintf("%s?query=%s&max_results=%d&tweet.fields=created_at,author_id",
		twitterSearchURL, url.QueryEscape(t.query), t.maxResults)

	return t.collectFrom(ctx, searchURL)
}

func (t *TwitterCollector) collectFrom(ctx context.Context, searchURL string) ([]RawRecord, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+t.bearerToken).
		Get(searchURL)

	if err != nil {
		return nil, fmt.Errorf("twitter search request failed: %w", err)
	}

	// Rate limiting is an expected condition: return what we have and let
	// the other collectors proceed.
	if resp.StatusCode() == 429 {
		logrus.Warnf("Twitter API rate limit hit for query '%s' - returning no records", t.query)
		return []RawRecord{}, nil
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var searchResp twitterSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse Twitter response: %w", err)
	}

	logrus.Infof("Twitter API returned %d tweets for query '%s'", len(searchResp.Data), t.query)

	records := make([]RawRecord, 0, len(searchResp.Data))
	for i := range searchResp.Data {
		tweet := searchResp.Data[i]
		records = append(records, RawRecord{Source: models.SourceTwitter, Tweet: &tweet})
	}

	return records, nil
}
