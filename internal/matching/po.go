package matching

import (
	"math"
	"sort"

	"github.com/datec-bo/facturaflow/internal/invoice"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// POMatcherConfig holds the reconciliation thresholds. Description matching
// runs at a higher bar than supplier names because misassigning a line item
// is costlier than misassigning a supplier.
type POMatcherConfig struct {
	DescriptionThreshold float64 // minimum description similarity, default 0.75
	PriceTolerance       float64 // relative unit-price tolerance, default 0.02
	QuantityTolerance    float64 // absolute quantity tolerance
	ReviewEpsilon        float64 // two fuzzy candidates this close flag the pair for review
}

// DefaultPOMatcherConfig returns the production thresholds.
func DefaultPOMatcherConfig() POMatcherConfig {
	return POMatcherConfig{
		DescriptionThreshold: 0.75,
		PriceTolerance:       0.02,
		QuantityTolerance:    1e-6,
		ReviewEpsilon:        0.05,
	}
}

// POMatcher reconciles invoice line items against a supplier's open purchase
// orders. The open-quantity bookkeeping is scoped to a single Match call and
// is never written back to the source of truth.
type POMatcher struct {
	cfg POMatcherConfig
	log *logrus.Logger
}

// NewPOMatcher creates a matcher with the given thresholds.
func NewPOMatcher(cfg POMatcherConfig, log *logrus.Logger) *POMatcher {
	if cfg.DescriptionThreshold == 0 {
		cfg = DefaultPOMatcherConfig()
	}
	return &POMatcher{cfg: cfg, log: log}
}

// poLine is the in-call working state of one PO line.
type poLine struct {
	poNumber  string
	item      invoice.POItem
	remaining float64
}

// FilterPOHeaders applies the header-level pre-filter: only released POs
// (processing status "05", or blank when the field is not exposed), ordered
// no later than the invoice date and in the invoice currency, participate in
// reconciliation.
func FilterPOHeaders(pos []invoice.PurchaseOrder, invoiceDate, currency string) []invoice.PurchaseOrder {
	var kept []invoice.PurchaseOrder
	for _, po := range pos {
		if po.Status != "" && po.Status != "05" {
			continue
		}
		if invoiceDate != "" && po.OrderDate != "" && po.OrderDate > invoiceDate {
			continue
		}
		if currency != "" && po.Currency != "" && po.Currency != currency {
			continue
		}
		kept = append(kept, po)
	}
	return kept
}

// Match pairs every invoice line with exactly one outcome: paired-exact,
// paired-fuzzy or unmatched. Exact product-code matches run first-fit across
// POs ordered by number ascending, decrementing the line's open balance;
// leftovers try description similarity against the remaining open lines.
func (m *POMatcher) Match(supplierCode string, items []invoice.LineItem, openPOs []invoice.PurchaseOrder) invoice.ReconciledItems {
	lines := m.openLines(openPOs)

	result := invoice.ReconciledItems{
		SupplierCode: supplierCode,
		Pairs:        make([]invoice.ItemPair, 0, len(items)),
	}

	for idx, item := range items {
		pair := invoice.ItemPair{
			InvoiceIndex: idx,
			Item:         item,
			Outcome:      invoice.Unmatched,
		}

		if line := m.matchExact(item, lines); line != nil {
			pair.Outcome = invoice.PairedExact
			pair.PONumber = line.poNumber
			pair.POItem = line.item.ItemNumber
			pair.Similarity = 1.0
			m.annotate(&pair, item, line)
			m.consume(line, item.Quantity)
		} else if line, score, ambiguous := m.matchFuzzy(item, lines); line != nil {
			pair.Outcome = invoice.PairedFuzzy
			pair.PONumber = line.poNumber
			pair.POItem = line.item.ItemNumber
			pair.Similarity = score
			pair.NeedsReview = ambiguous
			m.annotate(&pair, item, line)
			m.consume(line, item.Quantity)
		}

		if pair.Outcome == invoice.Unmatched {
			m.log.WithFields(logrus.Fields{
				"supplier":    supplierCode,
				"description": item.Description,
			}).Warn("Invoice line has no PO counterpart")
		}

		result.Pairs = append(result.Pairs, pair)
	}

	return result
}

// openLines flattens the POs into open lines, PO number ascending (oldest
// first), skipping lines already invoiced completely.
func (m *POMatcher) openLines(pos []invoice.PurchaseOrder) []*poLine {
	sorted := make([]invoice.PurchaseOrder, len(pos))
	copy(sorted, pos)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	var lines []*poLine
	for _, po := range sorted {
		for _, item := range po.Items {
			if item.FinallyInvoiced {
				continue
			}
			lines = append(lines, &poLine{
				poNumber:  po.Number,
				item:      item,
				remaining: item.OpenQuantity,
			})
		}
	}
	return lines
}

// matchExact walks the open lines in PO-number order and takes the first one
// whose remaining balance covers the invoiced quantity. When no line can
// absorb the full quantity, the first partially-open line wins and the
// shortfall is annotated as a quantity delta.
func (m *POMatcher) matchExact(item invoice.LineItem, lines []*poLine) *poLine {
	if item.ProductCode == "" {
		return nil
	}
	var partial *poLine
	for _, line := range lines {
		if line.remaining <= 0 {
			continue
		}
		if line.item.ProductCode == "" || line.item.ProductCode != item.ProductCode {
			continue
		}
		if line.remaining+m.cfg.QuantityTolerance >= item.Quantity {
			return line
		}
		if partial == nil {
			partial = line
		}
	}
	return partial
}

func (m *POMatcher) matchFuzzy(item invoice.LineItem, lines []*poLine) (*poLine, float64, bool) {
	var best *poLine
	bestScore, secondScore := 0.0, 0.0

	for _, line := range lines {
		if line.remaining <= 0 {
			continue
		}
		score := Similarity(item.Description, line.item.Description)
		if score > bestScore {
			secondScore = bestScore
			bestScore = score
			best = line
		} else if score > secondScore {
			secondScore = score
		}
	}

	if best == nil || bestScore < m.cfg.DescriptionThreshold {
		return nil, 0, false
	}
	// Two near-identical candidates mean the pairing needs a human eye.
	ambiguous := secondScore >= m.cfg.DescriptionThreshold && bestScore-secondScore < m.cfg.ReviewEpsilon
	return best, bestScore, ambiguous
}

// annotate records quantity and price discrepancies beyond tolerance.
func (m *POMatcher) annotate(pair *invoice.ItemPair, item invoice.LineItem, line *poLine) {
	if item.Quantity > line.remaining+m.cfg.QuantityTolerance {
		pair.QuantityDelta = item.Quantity - line.remaining
	}

	if line.item.UnitPrice > 0 {
		invPrice := decimal.NewFromFloat(item.UnitPrice)
		poPrice := decimal.NewFromFloat(line.item.UnitPrice)
		diff := invPrice.Sub(poPrice).Abs()
		limit := poPrice.Mul(decimal.NewFromFloat(m.cfg.PriceTolerance))
		if diff.GreaterThan(limit) {
			delta, _ := invPrice.Sub(poPrice).Float64()
			pair.PriceDelta = delta
		}
	} else if item.UnitPrice > 0 && math.Abs(item.UnitPrice-line.item.UnitPrice) > 0 {
		pair.PriceDelta = item.UnitPrice
	}
}

func (m *POMatcher) consume(line *poLine, quantity float64) {
	line.remaining -= quantity
	if line.remaining < 0 {
		line.remaining = 0
	}
}
