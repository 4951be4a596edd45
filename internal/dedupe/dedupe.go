// Package dedupe removes repeated mentions within a single run.
package dedupe

import (
	"github.com/branchwatch/social-listening-bot/internal/models"
	"github.com/sirupsen/logrus"
)

type key struct {
	source models.Source
	id     string
}

// Deduplicate returns the subsequence of mentions with first-occurrence-wins
// semantics keyed by (source, id), preserving the original relative order of
// survivors. The second return value is the discard count.
func Deduplicate(mentions []models.Mention) ([]models.Mention, int) {
	seen := make(map[key]bool, len(mentions))
	unique := make([]models.Mention, 0, len(mentions))

	for _, mention := range mentions {
		k := key{source: mention.Source, id: mention.ID}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, mention)
	}

	dropped := len(mentions) - len(unique)
	if dropped > 0 {
		logrus.Infof("Deduplication removed %d of %d mentions", dropped, len(mentions))
	}

	return unique, dropped
}
