// Package intent abstracts the external intent-extraction collaborator.
// Classifiers return the closed intent enum plus extracted parameters; the
// engine's routing is total over that enum, never over free text.
package intent

import (
	"context"

	"github.com/courierhq/dispatch/pkg/api"
)

// Classifier maps a prompt onto a recognized intent and extracted
// parameters. Implementations must return a normalized intent
type Classifier interface {
	Classify(
		ctx context.Context, prompt string,
	) (*api.Classification, error)
}
