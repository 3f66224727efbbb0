package matching

import (
	"context"
	"errors"
	"sort"

	"github.com/datec-bo/facturaflow/internal/invoice"
	"github.com/sirupsen/logrus"
)

// ResolverConfig holds the thresholds of the resolution cascade.
type ResolverConfig struct {
	FuzzyThreshold    float64 // minimum name similarity, default 0.60
	AIConfidenceFloor float64 // minimum stated AI confidence, default 0.70
	TieEpsilon        float64 // scores closer than this are a tie
}

// DefaultResolverConfig returns the thresholds used in production.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		FuzzyThreshold:    0.60,
		AIConfidenceFloor: 0.70,
		TieEpsilon:        1e-9,
	}
}

// Resolver runs the ordered strategy cascade against one invoice's supplier
// identity. It is stateless and safe for concurrent use across invoices.
type Resolver struct {
	strategies []Strategy
	log        *logrus.Logger
}

// NewResolver builds the cascade: exact tax, fuzzy name, keyword, AI
// fallback. A nil semantic matcher disables the last tier.
func NewResolver(cfg ResolverConfig, semantic SemanticMatcher, log *logrus.Logger) *Resolver {
	if cfg.FuzzyThreshold == 0 {
		cfg = DefaultResolverConfig()
	}
	return &Resolver{
		strategies: []Strategy{
			exactTaxStrategy{},
			fuzzyNameStrategy{threshold: cfg.FuzzyThreshold, epsilon: cfg.TieEpsilon},
			keywordStrategy{},
			aiFallbackStrategy{matcher: semantic, confidenceFloor: cfg.AIConfidenceFloor},
		},
		log: log,
	}
}

// Resolve walks the cascade and stops at the first tier that decides.
// Candidates are a transient snapshot; the resolver sorts them by code so the
// outcome is deterministic for identical inputs. An empty snapshot resolves
// to tier none without touching the AI collaborator.
func (r *Resolver) Resolve(ctx context.Context, name, taxNumber string, candidates []invoice.SupplierRecord) (invoice.MatchResult, error) {
	none := invoice.MatchResult{Tier: invoice.TierNone}

	if len(candidates) == 0 {
		return none, nil
	}

	snapshot := make([]invoice.SupplierRecord, len(candidates))
	copy(snapshot, candidates)
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Code < snapshot[j].Code })

	for _, s := range r.strategies {
		result, err := s.Attempt(ctx, name, taxNumber, snapshot)
		if err != nil {
			var rateLimited *invoice.RateLimitError
			if errors.As(err, &rateLimited) {
				// Throttled fallback degrades to none instead of blocking.
				r.log.WithFields(logrus.Fields{
					"tier":     s.Tier(),
					"supplier": name,
				}).Warn("AI fallback throttled, resolving to tier none")
				return none, nil
			}
			return none, err
		}
		if result != nil {
			r.log.WithFields(logrus.Fields{
				"tier":     result.Tier,
				"score":    result.Score,
				"supplier": result.Supplier.Code,
			}).Info("Supplier resolved")
			return *result, nil
		}
	}

	return none, nil
}
