// Package normalize maps each source's raw record shape into the uniform
// Mention model, with one exhaustive mapping function per source.
package normalize

import (
	"strings"
	"time"
	"unicode"

	"github.com/branchwatch/social-listening-bot/internal/models"
	"github.com/branchwatch/social-listening-bot/internal/sources"
	"github.com/sirupsen/logrus"
)

// Stats reports what normalization dropped, for the run report.
type Stats struct {
	Dropped int
}

// Normalize converts raw records to mentions. Records lacking an
// identifiable id are dropped with a warning; every other defect is
// repaired in place (empty defaults, sanitized text, fallback timestamp).
// now supplies the fallback timestamp so callers can pin it in tests.
func Normalize(records []sources.RawRecord, now func() time.Time) ([]models.Mention, Stats) {
	if now == nil {
		now = time.Now
	}

	mentions := make([]models.Mention, 0, len(records))
	var stats Stats

	for _, record := range records {
		mention, ok := normalizeRecord(record, now())
		if !ok {
			logrus.Warnf("Dropping %s record without an identifiable id", record.Source)
			stats.Dropped++
			continue
		}
		mentions = append(mentions, mention)
	}

	return mentions, stats
}

func normalizeRecord(record sources.RawRecord, fallback time.Time) (models.Mention, bool) {
	switch record.Source {
	case models.SourceTwitter:
		if record.Tweet == nil {
			return models.Mention{}, false
		}
		return normalizeTweet(*record.Tweet, fallback)
	case models.SourceFacebook:
		if record.Facebook == nil {
			return models.Mention{}, false
		}
		return normalizeFacebookPost(*record.Facebook, fallback)
	case models.SourceGooglePlay:
		if record.GooglePlay == nil {
			return models.Mention{}, false
		}
		return normalizePlayReview(*record.GooglePlay, fallback)
	default:
		return models.Mention{}, false
	}
}

func normalizeTweet(t sources.Tweet, fallback time.Time) (models.Mention, bool) {
	if strings.TrimSpace(t.ID) == "" {
		return models.Mention{}, false
	}

	timestamp := fallback
	if parsed, err := time.Parse(time.RFC3339, t.CreatedAt); err == nil {
		timestamp = parsed
	}

	return models.Mention{
		Source:    models.SourceTwitter,
		ID:        strings.TrimSpace(t.ID),
		Author:    authorOrUnknown(t.AuthorID),
		Text:      SanitizeText(t.Text),
		Timestamp: timestamp,
	}, true
}

func normalizeFacebookPost(p sources.FacebookPost, fallback time.Time) (models.Mention, bool) {
	if strings.TrimSpace(p.PostID) == "" {
		return models.Mention{}, false
	}

	timestamp := fallback
	if parsed, err := time.Parse(time.RFC3339, p.Published); err == nil {
		timestamp = parsed
	}

	return models.Mention{
		Source:    models.SourceFacebook,
		ID:        strings.TrimSpace(p.PostID),
		Author:    authorOrUnknown(p.Author),
		Text:      SanitizeText(p.Text),
		Timestamp: timestamp,
	}, true
}

func normalizePlayReview(r sources.PlayReview, fallback time.Time) (models.Mention, bool) {
	if strings.TrimSpace(r.ReviewID) == "" {
		return models.Mention{}, false
	}

	timestamp := fallback
	if parsed, err := time.Parse(time.RFC3339, r.Submitted); err == nil {
		timestamp = parsed
	} else if parsed, err := time.Parse("January 2, 2006", r.Submitted); err == nil {
		timestamp = parsed
	}

	return models.Mention{
		Source:    models.SourceGooglePlay,
		ID:        strings.TrimSpace(r.ReviewID),
		Author:    authorOrUnknown(r.Author),
		Text:      SanitizeText(r.Body),
		Timestamp: timestamp,
	}, true
}

func authorOrUnknown(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return "unknown"
	}
	return author
}

// SanitizeText makes raw text safely encodable: invalid UTF-8 sequences
// are dropped, control characters removed, and whitespace collapsed.
// It never fails on malformed input.
func SanitizeText(text string) string {
	text = strings.ToValidUTF8(text, "")

	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, text)

	return strings.Join(strings.Fields(text), " ")
}
