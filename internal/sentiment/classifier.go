// Package sentiment assigns a canonical three-way sentiment label and a
// confidence score to mention texts.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/branchwatch/social-listening-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// EmptyTextScore is the fixed confidence assigned to empty or
// whitespace-only texts, which never reach the model.
const EmptyTextScore = 1.0

// canonicalLabels maps the model's label vocabulary onto the three-way
// label space. Built once at package load, never per call. Covers the
// roberta-style class indexes, spelled-out labels, and star ratings.
var canonicalLabels = map[string]string{
	"label_0":  models.LabelNegative,
	"label_1":  models.LabelNeutral,
	"label_2":  models.LabelPositive,
	"negative": models.LabelNegative,
	"neutral":  models.LabelNeutral,
	"positive": models.LabelPositive,
	"neg":      models.LabelNegative,
	"neu":      models.LabelNeutral,
	"pos":      models.LabelPositive,
	"1 star":   models.LabelNegative,
	"2 stars":  models.LabelNegative,
	"3 stars":  models.LabelNeutral,
	"4 stars":  models.LabelPositive,
	"5 stars":  models.LabelPositive,
}

// Classifier holds the process-wide model handle. The handle is lazily
// initialized on first use, shared for the process lifetime, and released
// by Close; it is read-only after initialization.
type Classifier struct {
	endpoint  string
	apiKey    string
	batchSize int

	once   sync.Once
	handle *handle
}

// handle is the acquired model resource: either a client for a remote
// inference endpoint, or the built-in lexicon scorer when client is nil.
type handle struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

// NewClassifier creates a classifier. When endpoint is empty the built-in
// lexicon scorer is used instead of a remote model.
func NewClassifier(endpoint, apiKey string, batchSize int) *Classifier {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Classifier{
		endpoint:  endpoint,
		apiKey:    apiKey,
		batchSize: batchSize,
	}
}

func (c *Classifier) acquire() *handle {
	c.once.Do(func() {
		if c.endpoint == "" {
			logrus.Info("No sentiment endpoint configured, using built-in lexicon scorer")
			c.handle = &handle{}
			return
		}
		logrus.Infof("Initializing sentiment model handle for %s", c.endpoint)
		c.handle = &handle{
			client: resty.New().
				SetTimeout(60 * time.Second).
				SetHeader("User-Agent", "social-listening-bot/1.0"),
			endpoint: c.endpoint,
			apiKey:   c.apiKey,
		}
	})
	return c.handle
}

// Close releases the model handle. Classify calls after Close fail soft:
// their texts default to neutral with score 0 and count as failures.
func (c *Classifier) Close() {
	if c.handle != nil && c.handle.client != nil {
		c.handle.client.GetClient().CloseIdleConnections()
	}
	c.handle = nil
}

// Classify returns a sentiment result for each text, parallel to the
// input. Empty or whitespace-only texts receive neutral/EmptyTextScore
// without touching the model. Texts are sent to the model in batches;
// batching never changes a per-text result. The second return value
// counts texts whose classification failed and was defaulted to neutral
// with score 0.
func (c *Classifier) Classify(ctx context.Context, texts []string) ([]models.SentimentResult, int) {
	results := make([]models.SentimentResult, len(texts))

	// Partition out texts the model never sees.
	var pending []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = models.SentimentResult{Label: models.LabelNeutral, Score: EmptyTextScore}
			continue
		}
		pending = append(pending, i)
	}

	if len(pending) == 0 {
		return results, 0
	}

	h := c.acquire()
	if h == nil {
		logrus.Errorf("Sentiment classifier used after Close, defaulting %d texts to neutral", len(pending))
		for _, idx := range pending {
			results[idx] = models.SentimentResult{Label: models.LabelNeutral, Score: 0}
		}
		return results, len(pending)
	}
	failures := 0

	for start := 0; start < len(pending); start += c.batchSize {
		end := start + c.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		inputs := make([]string, len(batch))
		for j, idx := range batch {
			inputs[j] = texts[idx]
		}

		batchResults, err := h.classifyBatch(ctx, inputs)
		if err != nil {
			logrus.Errorf("Sentiment batch of %d texts failed, defaulting to neutral: %v", len(batch), err)
			for _, idx := range batch {
				results[idx] = models.SentimentResult{Label: models.LabelNeutral, Score: 0}
			}
			failures += len(batch)
			continue
		}

		for j, idx := range batch {
			results[idx] = batchResults[j]
		}
	}

	return results, failures
}

type inferenceRequest struct {
	Inputs []string `json:"inputs"`
}

type inferenceScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (h *handle) classifyBatch(ctx context.Context, texts []string) ([]models.SentimentResult, error) {
	if h.client == nil {
		results := make([]models.SentimentResult, len(texts))
		for i, text := range texts {
			results[i] = lexiconScore(text)
		}
		return results, nil
	}
	return h.remoteBatch(ctx, texts)
}

func (h *handle) remoteBatch(ctx context.Context, texts []string) ([]models.SentimentResult, error) {
	req := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(inferenceRequest{Inputs: texts})
	if h.apiKey != "" {
		req.SetHeader("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := req.Post(h.endpoint)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("inference endpoint returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	// The endpoint returns one score list per input text.
	var distributions [][]inferenceScore
	if err := json.Unmarshal(resp.Body(), &distributions); err != nil {
		return nil, fmt.Errorf("failed to parse inference response: %w", err)
	}
	if len(distributions) != len(texts) {
		return nil, fmt.Errorf("inference endpoint returned %d results for %d inputs", len(distributions), len(texts))
	}

	results := make([]models.SentimentResult, len(texts))
	for i, distribution := range distributions {
		winner, err := pickWinner(distribution)
		if err != nil {
			return nil, err
		}
		results[i] = winner
	}

	return results, nil
}

// pickWinner reduces a label distribution to the winning canonical label
// and its confidence mass.
func pickWinner(distribution []inferenceScore) (models.SentimentResult, error) {
	if len(distribution) == 0 {
		return models.SentimentResult{}, fmt.Errorf("inference endpoint returned an empty distribution")
	}

	best := distribution[0]
	for _, entry := range distribution[1:] {
		if entry.Score > best.Score {
			best = entry
		}
	}

	label, ok := canonicalLabels[strings.ToLower(strings.TrimSpace(best.Label))]
	if !ok {
		return models.SentimentResult{}, fmt.Errorf("unknown sentiment label %q", best.Label)
	}

	return models.SentimentResult{Label: label, Score: best.Score}, nil
}
