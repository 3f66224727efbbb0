package matching

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/datec-bo/facturaflow/internal/invoice"
	"github.com/sirupsen/logrus"
)

type fakeSemanticMatcher struct {
	match      *invoice.SupplierRecord
	confidence float64
	err        error
	calls      int
}

func (f *fakeSemanticMatcher) MatchSupplier(_ context.Context, _, _ string, _ []invoice.SupplierRecord) (*invoice.SupplierRecord, float64, error) {
	f.calls++
	return f.match, f.confidence, f.err
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testCandidates() []invoice.SupplierRecord {
	return []invoice.SupplierRecord{
		{Code: "0000001000", Name: "ABC Distribuidora SA", TaxNumber: "123456789"},
		{Code: "0000001001", Name: "Ferreteria El Tornillo SRL", TaxNumber: "987654321"},
		{Code: "0000001002", Name: "Laboratorios Andinos LTDA", TaxNumber: "555000111"},
	}
}

func TestResolveExactTaxBeatsNameDissimilarity(t *testing.T) {
	r := NewResolver(DefaultResolverConfig(), nil, testLogger())

	// Name is nothing like the candidate's; the tax number decides alone.
	result, err := r.Resolve(context.Background(), "Totally Unrelated Name", "123456789", testCandidates())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Tier != invoice.TierExactTax {
		t.Fatalf("tier = %s, want exact_tax", result.Tier)
	}
	if result.Supplier.Code != "0000001000" {
		t.Errorf("supplier = %s, want 0000001000", result.Supplier.Code)
	}
	if result.Score != 1.0 {
		t.Errorf("score = %v, want 1.0", result.Score)
	}
}

func TestResolveExactTaxNormalization(t *testing.T) {
	r := NewResolver(DefaultResolverConfig(), nil, testLogger())

	result, err := r.Resolve(context.Background(), "", "12.345.678-9", testCandidates())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Tier != invoice.TierExactTax {
		t.Fatalf("tier = %s, want exact_tax (punctuation must be stripped)", result.Tier)
	}
}

func TestResolveSharedTaxNumberPicksSmallestCode(t *testing.T) {
	candidates := []invoice.SupplierRecord{
		{Code: "0000002000", Name: "Sucursal Norte", TaxNumber: "777"},
		{Code: "0000001999", Name: "Casa Matriz", TaxNumber: "777"},
	}
	r := NewResolver(DefaultResolverConfig(), nil, testLogger())

	result, err := r.Resolve(context.Background(), "", "777", candidates)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Supplier.Code != "0000001999" {
		t.Errorf("supplier = %s, want lexicographically smallest 0000001999", result.Supplier.Code)
	}
	if len(result.RunnersUp) != 1 || result.RunnersUp[0].Record.Code != "0000002000" {
		t.Errorf("ambiguity must be flagged in runners-up, got %+v", result.RunnersUp)
	}
}

func TestResolveFuzzyName(t *testing.T) {
	r := NewResolver(DefaultResolverConfig(), nil, testLogger())

	result, err := r.Resolve(context.Background(), "Distribuidora ABC S.A.", "", testCandidates())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Tier != invoice.TierFuzzyName {
		t.Fatalf("tier = %s, want fuzzy_name", result.Tier)
	}
	if result.Supplier.Code != "0000001000" {
		t.Errorf("supplier = %s, want 0000001000", result.Supplier.Code)
	}
	if result.Score < 0.60 {
		t.Errorf("score = %v, want >= 0.60", result.Score)
	}
}

func TestResolveFuzzyTieBreaksByCode(t *testing.T) {
	candidates := []invoice.SupplierRecord{
		{Code: "0000003001", Name: "Quimica Central SA"},
		{Code: "0000003000", Name: "Quimica Central SA"},
	}
	r := NewResolver(DefaultResolverConfig(), nil, testLogger())

	result, err := r.Resolve(context.Background(), "Quimica Central S.A.", "", candidates)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Tier != invoice.TierFuzzyName {
		t.Fatalf("tier = %s, want fuzzy_name", result.Tier)
	}
	if result.Supplier.Code != "0000003000" {
		t.Errorf("tie must break to the smaller code, got %s", result.Supplier.Code)
	}
}

func TestResolveKeywordTier(t *testing.T) {
	candidates := []invoice.SupplierRecord{
		// Dissimilar enough overall that the fuzzy tier stays silent, yet it
		// contains every significant token of the invoice name.
		{Code: "0000004000", Name: "IMPORTADORA Y DISTRIBUIDORA TORNIMAX BOLIVIA SOCIEDAD ANONIMA"},
	}
	r := NewResolver(DefaultResolverConfig(), nil, testLogger())

	result, err := r.Resolve(context.Background(), "Tornimax", "", candidates)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Tier != invoice.TierKeyword {
		t.Fatalf("tier = %s, want keyword", result.Tier)
	}
	if result.Score <= 0 || result.Score > 1 {
		t.Errorf("keyword score out of range: %v", result.Score)
	}
}

func TestResolveEmptyCandidatesSkipsFallback(t *testing.T) {
	fake := &fakeSemanticMatcher{match: &invoice.SupplierRecord{Code: "X"}, confidence: 0.99}
	r := NewResolver(DefaultResolverConfig(), fake, testLogger())

	result, err := r.Resolve(context.Background(), "Anything", "123", nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Tier != invoice.TierNone {
		t.Errorf("tier = %s, want none", result.Tier)
	}
	if fake.calls != 0 {
		t.Errorf("AI fallback must not run on an empty candidate set, got %d calls", fake.calls)
	}
}

func TestResolveAIFallback(t *testing.T) {
	match := invoice.SupplierRecord{Code: "0000001002", Name: "Laboratorios Andinos LTDA"}
	fake := &fakeSemanticMatcher{match: &match, confidence: 0.85}
	r := NewResolver(DefaultResolverConfig(), fake, testLogger())

	result, err := r.Resolve(context.Background(), "Andean Labs Intl", "", testCandidates())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Tier != invoice.TierAIFallback {
		t.Fatalf("tier = %s, want ai_fallback", result.Tier)
	}
	if fake.calls != 1 {
		t.Errorf("AI fallback must be invoked exactly once, got %d", fake.calls)
	}
}

func TestResolveAIBelowFloorIsNone(t *testing.T) {
	fake := &fakeSemanticMatcher{match: &invoice.SupplierRecord{Code: "X"}, confidence: 0.40}
	r := NewResolver(DefaultResolverConfig(), fake, testLogger())

	result, err := r.Resolve(context.Background(), "Unknown Vendor Intl", "", testCandidates())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Tier != invoice.TierNone {
		t.Errorf("tier = %s, want none when confidence is under the floor", result.Tier)
	}
}

func TestResolveRateLimitDegradesToNone(t *testing.T) {
	fake := &fakeSemanticMatcher{err: &invoice.RateLimitError{Reason: "quota exhausted"}}
	r := NewResolver(DefaultResolverConfig(), fake, testLogger())

	result, err := r.Resolve(context.Background(), "Unknown Vendor Intl", "", testCandidates())
	if err != nil {
		t.Fatalf("throttling must not surface as a resolver error: %v", err)
	}
	if result.Tier != invoice.TierNone {
		t.Errorf("tier = %s, want none", result.Tier)
	}
}

func TestResolveAIErrorSurfaces(t *testing.T) {
	fake := &fakeSemanticMatcher{err: errors.New("boom")}
	r := NewResolver(DefaultResolverConfig(), fake, testLogger())

	if _, err := r.Resolve(context.Background(), "Unknown Vendor Intl", "", testCandidates()); err == nil {
		t.Fatal("non-throttling AI errors must surface")
	}
}
