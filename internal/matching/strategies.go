package matching

import (
	"context"
	"strings"

	"github.com/datec-bo/facturaflow/internal/invoice"
)

// SemanticMatcher is the AI collaborator consulted when every deterministic
// strategy has failed. Implemented by internal/ai.
type SemanticMatcher interface {
	MatchSupplier(ctx context.Context, name, taxNumber string, candidates []invoice.SupplierRecord) (*invoice.SupplierRecord, float64, error)
}

// Strategy is one tier of the resolution cascade. Attempt returns nil when
// the strategy cannot decide, letting the resolver move to the next tier.
type Strategy interface {
	Tier() invoice.MatchTier
	Attempt(ctx context.Context, name, taxNumber string, candidates []invoice.SupplierRecord) (*invoice.MatchResult, error)
}

// exactTaxStrategy matches on the normalized tax number (NIT). This is the
// most trusted tier: a tax match wins regardless of name dissimilarity.
type exactTaxStrategy struct{}

func (exactTaxStrategy) Tier() invoice.MatchTier { return invoice.TierExactTax }

func (exactTaxStrategy) Attempt(_ context.Context, _ string, taxNumber string, candidates []invoice.SupplierRecord) (*invoice.MatchResult, error) {
	want := NormalizeTaxNumber(taxNumber)
	if want == "" {
		return nil, nil
	}

	var hits []invoice.SupplierRecord
	for _, c := range candidates {
		if NormalizeTaxNumber(c.TaxNumber) == want {
			hits = append(hits, c)
		}
	}
	if len(hits) == 0 {
		return nil, nil
	}

	// Candidates arrive sorted by code, so hits[0] is the lexicographically
	// smallest. Shared tax numbers are a data anomaly; keep the others on the
	// result instead of averaging anything.
	result := &invoice.MatchResult{
		Supplier: &hits[0],
		Tier:     invoice.TierExactTax,
		Score:    1.0,
	}
	for _, h := range hits[1:] {
		result.RunnersUp = append(result.RunnersUp, invoice.Candidate{
			Record: h,
			Score:  1.0,
			Note:   "shares normalized tax number",
		})
	}
	return result, nil
}

// fuzzyNameStrategy matches on normalized name similarity against both the
// short and the full supplier name.
type fuzzyNameStrategy struct {
	threshold float64
	epsilon   float64
}

func (fuzzyNameStrategy) Tier() invoice.MatchTier { return invoice.TierFuzzyName }

func (s fuzzyNameStrategy) Attempt(_ context.Context, name, _ string, candidates []invoice.SupplierRecord) (*invoice.MatchResult, error) {
	if CleanName(name) == "" {
		return nil, nil
	}

	bestIdx := -1
	bestScore := 0.0
	var qualifying []invoice.Candidate

	for i, c := range candidates {
		score := Similarity(name, c.Name)
		if full := Similarity(name, c.FullName); full > score {
			score = full
		}
		if score < s.threshold {
			continue
		}
		qualifying = append(qualifying, invoice.Candidate{Record: c, Score: score})
		// Ties within epsilon keep the earlier candidate (smallest code).
		if score > bestScore+s.epsilon {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return nil, nil
	}

	winner := candidates[bestIdx]
	result := &invoice.MatchResult{
		Supplier: &winner,
		Tier:     invoice.TierFuzzyName,
		Score:    bestScore,
	}
	for _, q := range qualifying {
		if q.Record.Code != winner.Code {
			result.RunnersUp = append(result.RunnersUp, q)
		}
	}
	return result, nil
}

// keywordStrategy matches when a candidate name contains every significant
// word of the invoice name as a substring.
type keywordStrategy struct{}

func (keywordStrategy) Tier() invoice.MatchTier { return invoice.TierKeyword }

func (keywordStrategy) Attempt(_ context.Context, name, _ string, candidates []invoice.SupplierRecord) (*invoice.MatchResult, error) {
	tokens := SignificantTokens(name)
	if len(tokens) == 0 {
		return nil, nil
	}

	bestIdx := -1
	bestScore := 0.0

	for i, c := range candidates {
		combined := CleanName(c.Name + " " + c.FullName)
		if !containsAll(combined, tokens) {
			continue
		}
		score := matchedFraction(combined, tokens)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return nil, nil
	}
	winner := candidates[bestIdx]
	return &invoice.MatchResult{
		Supplier: &winner,
		Tier:     invoice.TierKeyword,
		Score:    bestScore,
	}, nil
}

func containsAll(haystack string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}

// matchedFraction is the share of candidate-name tokens covered by a
// significant invoice token.
func matchedFraction(candidateName string, tokens []string) float64 {
	candTokens := strings.Fields(candidateName)
	if len(candTokens) == 0 {
		return 0
	}
	matched := 0
	for _, ct := range candTokens {
		for _, t := range tokens {
			if strings.Contains(ct, t) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(candTokens))
}

// aiFallbackStrategy delegates to the semantic matcher. It is invoked at
// most once per resolution and only grounds against the provided roster.
type aiFallbackStrategy struct {
	matcher         SemanticMatcher
	confidenceFloor float64
}

func (aiFallbackStrategy) Tier() invoice.MatchTier { return invoice.TierAIFallback }

func (s aiFallbackStrategy) Attempt(ctx context.Context, name, taxNumber string, candidates []invoice.SupplierRecord) (*invoice.MatchResult, error) {
	if s.matcher == nil {
		return nil, nil
	}

	match, confidence, err := s.matcher.MatchSupplier(ctx, name, taxNumber, candidates)
	if err != nil {
		return nil, err
	}
	if match == nil || confidence < s.confidenceFloor {
		return nil, nil
	}
	return &invoice.MatchResult{
		Supplier: match,
		Tier:     invoice.TierAIFallback,
		Score:    confidence,
	}, nil
}
