package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/datec-bo/facturaflow/internal/invoice"
	"github.com/sirupsen/logrus"
)

// TextGenerator is the slice of GeminiClient the matcher needs. Tests swap in
// a canned implementation.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// SupplierMatcher is the last tier of the resolution cascade: it asks the
// model to pick one candidate (or none) and reports the stated confidence.
// It satisfies the matching package's SemanticMatcher interface.
type SupplierMatcher struct {
	gen TextGenerator
	log *logrus.Logger
}

// NewSupplierMatcher wraps a text generator as a supplier matcher.
func NewSupplierMatcher(gen TextGenerator, log *logrus.Logger) *SupplierMatcher {
	return &SupplierMatcher{gen: gen, log: log}
}

type matchAnswer struct {
	MatchIndex int     `json:"match_index"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// MatchSupplier returns the chosen candidate and the model's confidence, or
// (nil, 0, nil) when the model declines. Rate limiting propagates as a
// RateLimitError from the underlying client.
func (m *SupplierMatcher) MatchSupplier(ctx context.Context, name, taxNumber string, candidates []invoice.SupplierRecord) (*invoice.SupplierRecord, float64, error) {
	if len(candidates) == 0 {
		return nil, 0, nil
	}

	raw, err := m.gen.GenerateContent(ctx, buildMatchPrompt(name, taxNumber, candidates))
	if err != nil {
		return nil, 0, err
	}

	var answer matchAnswer
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &answer); err != nil {
		return nil, 0, fmt.Errorf("unparseable model answer %q: %w", raw, err)
	}

	m.log.WithFields(logrus.Fields{
		"supplier":   name,
		"index":      answer.MatchIndex,
		"confidence": answer.Confidence,
		"reasoning":  answer.Reasoning,
	}).Debug("Semantic supplier match answer")

	if answer.MatchIndex < 0 {
		return nil, 0, nil
	}
	if answer.MatchIndex >= len(candidates) {
		return nil, 0, fmt.Errorf("model picked candidate %d of %d", answer.MatchIndex, len(candidates))
	}

	chosen := candidates[answer.MatchIndex]
	return &chosen, answer.Confidence, nil
}
