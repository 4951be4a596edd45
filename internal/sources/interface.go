package sources

import (
	"context"

	"github.com/branchwatch/social-listening-bot/internal/models"
)

// Collector is the contract for all mention feeds. Expected conditions
// (rate limiting, empty feeds) yield an empty slice, not an error; the
// caller logs and moves on.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]RawRecord, error)
	Enabled() bool
}

// RawRecord is a tagged variant over the loosely-structured record shapes
// the collectors hand back. Exactly one payload field is set, matching
// Source. The normalizer owns the exhaustive mapping per source.
type RawRecord struct {
	Source     models.Source
	Tweet      *Tweet
	Facebook   *FacebookPost
	GooglePlay *PlayReview
}

// Tweet is the subset of the Twitter v2 search payload the pipeline uses.
type Tweet struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id"`
	CreatedAt string `json:"created_at"`
}

// FacebookPost is a post or comment scraped from a public page.
type FacebookPost struct {
	PostID    string
	Author    string
	Text      string
	Published string
}

// PlayReview is one review from the Play Store reviews feed.
type PlayReview struct {
	ReviewID  string
	Author    string
	Body      string
	Rating    int
	Submitted string
}
