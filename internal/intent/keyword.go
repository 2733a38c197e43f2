package intent

import (
	"context"
	"strings"

	"github.com/courierhq/dispatch/pkg/api"
)

// KeywordClassifier is the deterministic fallback classifier used when no
// external classifier endpoint is configured. It matches case-insensitive
// keywords; anything unmatched is general_info
type KeywordClassifier struct{}

var _ Classifier = (*KeywordClassifier)(nil)

var keywordIntents = []struct {
	intent   api.Intent
	keywords []string
}{
	{api.IntentBookShipment, []string{
		"book", "ship it", "place the order", "go ahead",
	}},
	{api.IntentRateRequest, []string{
		"rate", "quote", "price", "cost", "how much",
	}},
	{api.IntentServiceability, []string{
		"serviceab", "can you deliver", "do you deliver", "can you ship",
		"route available",
	}},
}

func (KeywordClassifier) Classify(
	_ context.Context, prompt string,
) (*api.Classification, error) {
	lower := strings.ToLower(prompt)
	for _, entry := range keywordIntents {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return &api.Classification{Intent: entry.intent}, nil
			}
		}
	}
	return &api.Classification{Intent: api.IntentGeneral}, nil
}
