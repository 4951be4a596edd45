package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/branchwatch/social-listening-bot/internal/models"
	"github.com/sirupsen/logrus"
)

const facebookMobileBaseURL = "https://mbasic.facebook.com"

// FacebookCollector scrapes recent posts from the brand's public page via
// the mobile HTML view, which ships posts in the initial document.
type FacebookCollector struct {
	page   string
	client *http.Client
}

var _ Collector = (*FacebookCollector)(nil)

// NewFacebookCollector creates a new Facebook page collector.
func NewFacebookCollector(page string) *FacebookCollector {
	return &FacebookCollector{
		page:   page,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *FacebookCollector) Name() string {
	return string(models.SourceFacebook)
}

func (f *FacebookCollector) Enabled() bool {
	return f.page != ""
}

func (f *FacebookCollector) Collect(ctx context.Context) ([]RawRecord, error) {
	if !f.Enabled() {
		logrus.Debug("Facebook collector disabled - missing page name")
		return nil, nil
	}

	doc, err := f.fetchPage(ctx)
	if err != nil {
		return nil, err
	}

	records := f.extractPosts(doc)
	logrus.Infof("Found %d posts on Facebook page '%s'", len(records), f.page)
	return records, nil
}

func (f *FacebookCollector) fetchPage(ctx context.Context) (*goquery.Document, error) {
	pageURL := fmt.Sprintf("%s/%s", facebookMobileBaseURL, f.page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "social-listening-bot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	return doc, nil
}

// extractPosts walks the story nodes of the mobile page view. Posts without
// a data-ft story id are kept too; the normalizer decides whether a record
// lacking an id is usable.
func (f *FacebookCollector) extractPosts(doc *goquery.Document) []RawRecord {
	var records []RawRecord

	doc.Find("div[data-ft]").Each(func(i int, story *goquery.Selection) {
		post := FacebookPost{
			PostID:    postID(story),
			Author:    strings.TrimSpace(story.Find("h3 strong a").First().Text()),
			Text:      strings.TrimSpace(story.Find("p").Text()),
			Published: strings.TrimSpace(story.Find("abbr").First().Text()),
		}

		if post.Text == "" && post.PostID == "" {
			return // navigation or ad chrome, not a story
		}

		records = append(records, RawRecord{Source: models.SourceFacebook, Facebook: &post})
	})

	return records
}

func postID(story *goquery.Selection) string {
	if id, ok := story.Attr("data-ft"); ok {
		// data-ft is a JSON blob; the top_level_post_id value is enough of
		// a handle without parsing the whole structure.
		const marker = `"top_level_post_id":"`
		if idx := strings.Index(id, marker); idx >= 0 {
			rest := id[idx+len(marker):]
			if end := strings.Index(rest, `"`); end > 0 {
				return rest[:end]
			}
		}
	}
	return ""
}
