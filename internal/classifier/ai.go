package classifier

import (
	"context"
	"log/slog"

	"github.com/librariumapp/librarium-server/internal/ai"
)

// AIClassifier classifies books via the external AI endpoint.
type AIClassifier struct {
	client *ai.Client
	logger *slog.Logger
}

// NewAIClassifier creates a classifier backed by the given AI client.
func NewAIClassifier(client *ai.Client, logger *slog.Logger) *AIClassifier {
	return &AIClassifier{
		client: client,
		logger: logger,
	}
}

// Classify sends one classification request and validates the reply.
// All failure modes (disabled client, transport error, timeout, malformed
// reply, all genres invalid) converge to a nil result with a warning log;
// no error ever crosses this boundary.
func (c *AIClassifier) Classify(ctx context.Context, meta BookMetadata) *Result {
	if !c.client.Enabled() {
		return nil
	}

	reply, err := c.client.Complete(ctx, ai.Request{
		Messages: []ai.Message{
			{Role: "user", Content: buildPrompt(meta)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		c.logger.Warn("classification request failed",
			"title", meta.Title,
			"category", "transport",
			"error", err,
		)
		return nil
	}

	parsed, err := parseReply(reply)
	if err != nil {
		// Deterministic failure: a retry would return the same text.
		c.logger.Warn("classification reply unusable",
			"title", meta.Title,
			"category", "malformed_response",
			"error", err,
		)
		return nil
	}

	var subgenre string
	if parsed.Subgenre != nil {
		subgenre = *parsed.Subgenre
	}

	result := validate(parsed.Genres, subgenre)
	if result == nil {
		c.logger.Warn("classification produced no valid genres",
			"title", meta.Title,
			"category", "taxonomy_violation",
			"candidates", parsed.Genres,
		)
		return nil
	}

	return result
}
