package invoice

// MatchTier identifies the resolution strategy that produced a supplier match.
// Tiers are ordered by decreasing trust; a score is only comparable to other
// scores from the same tier.
type MatchTier string

const (
	TierExactTax   MatchTier = "exact_tax"
	TierFuzzyName  MatchTier = "fuzzy_name"
	TierKeyword    MatchTier = "keyword"
	TierAIFallback MatchTier = "ai_fallback"
	TierNone       MatchTier = "none"
)

// LineItem is one invoice position as extracted by the upstream OCR/LLM step.
type LineItem struct {
	ProductCode string  `json:"ProductCode"`
	Quantity    float64 `json:"Quantity"`
	Description string  `json:"Description"`
	UnitPrice   float64 `json:"UnitPrice"`
	Discount    float64 `json:"Discount"`
	Subtotal    float64 `json:"Subtotal"`
}

// Invoice holds the extracted fields of one supplier invoice. It is immutable
// once handed to the pipeline; field names follow the SAP supplier invoice
// vocabulary used by the extraction prompt.
type Invoice struct {
	SupplierInvoiceID string     `json:"SupplierInvoiceIDByInvcgParty"`
	SupplierName      string     `json:"SupplierName"`
	SupplierTaxNumber string     `json:"SupplierTaxNumber"`
	AuthorizationCode string     `json:"AssignmentReference"`
	DocumentDate      string     `json:"DocumentDate"`
	DocumentCurrency  string     `json:"DocumentCurrency"`
	GrossAmount       float64    `json:"InvoiceGrossAmount"`
	CustomerName      string     `json:"CustomerName"`
	CustomerCode      string     `json:"CustomerCode"`
	TaxCode           string     `json:"TaxCode"`
	Items             []LineItem `json:"Items"`
}

// SupplierRecord is a read-only copy of one master-data supplier, fetched
// fresh per resolution call and never cached across invocations.
type SupplierRecord struct {
	Code         string `json:"Supplier"`
	Name         string `json:"SupplierName"`
	FullName     string `json:"SupplierFullName"`
	TaxNumber    string `json:"TaxNumber1"`
	AccountGroup string `json:"SupplierAccountGroup"`
	Blocked      bool   `json:"PostingIsBlocked"`
}

// Candidate is a runner-up kept on the match result for auditing.
type Candidate struct {
	Record SupplierRecord `json:"record"`
	Score  float64        `json:"score"`
	Note   string         `json:"note,omitempty"`
}

// MatchResult is the outcome of the supplier resolution cascade.
type MatchResult struct {
	Supplier  *SupplierRecord `json:"supplier,omitempty"`
	Tier      MatchTier       `json:"tier"`
	Score     float64         `json:"score"`
	RunnersUp []Candidate     `json:"runners_up,omitempty"`
}

// Found reports whether the cascade produced a usable supplier.
func (m MatchResult) Found() bool {
	return m.Tier != TierNone && m.Supplier != nil
}

// POItem is one open purchase order line.
type POItem struct {
	ItemNumber        string  `json:"PurchaseOrderItem"`
	ProductCode       string  `json:"Material"`
	Description       string  `json:"PurchaseOrderItemText"`
	OpenQuantity      float64 `json:"OrderQuantity"`
	UnitPrice         float64 `json:"NetPriceAmount"`
	QuantityUnit      string  `json:"PurchaseOrderQuantityUnit"`
	TaxCode           string  `json:"TaxCode"`
	FinallyInvoiced   bool    `json:"IsFinallyInvoiced"`
	GoodsReceiptBased bool    `json:"InvoiceIsGoodsReceiptBased"`
}

// PurchaseOrder is one open PO fetched for a resolved supplier.
type PurchaseOrder struct {
	Number       string   `json:"PurchaseOrder"`
	SupplierCode string   `json:"Supplier"`
	Status       string   `json:"PurchasingProcessingStatus"`
	OrderDate    string   `json:"PurchaseOrderDate"`
	Currency     string   `json:"DocumentCurrency"`
	Items        []POItem `json:"items"`
}

// PairOutcome classifies how one invoice line was reconciled.
type PairOutcome string

const (
	PairedExact PairOutcome = "paired_exact"
	PairedFuzzy PairOutcome = "paired_fuzzy"
	Unmatched   PairOutcome = "unmatched"
)

// ItemPair maps one invoice line to a PO line (or marks it unmatched) with
// the discrepancies observed against the paired line.
type ItemPair struct {
	InvoiceIndex  int         `json:"invoice_index"`
	Item          LineItem    `json:"item"`
	Outcome       PairOutcome `json:"outcome"`
	PONumber      string      `json:"purchase_order,omitempty"`
	POItem        string      `json:"purchase_order_item,omitempty"`
	Similarity    float64     `json:"similarity,omitempty"`
	QuantityDelta float64     `json:"quantity_delta,omitempty"`
	PriceDelta    float64     `json:"price_delta,omitempty"`
	NeedsReview   bool        `json:"needs_review,omitempty"`
}

// ReconciledItems holds the reconciliation of all invoice lines against the
// supplier's open POs. Every invoice line appears exactly once.
type ReconciledItems struct {
	SupplierCode string     `json:"supplier_code"`
	Pairs        []ItemPair `json:"pairs"`
}

// UnmatchedAmount sums the subtotals of the lines no PO line could absorb.
func (r ReconciledItems) UnmatchedAmount() float64 {
	var total float64
	for _, p := range r.Pairs {
		if p.Outcome == Unmatched {
			total += p.Item.Subtotal
		}
	}
	return total
}

// MaterialDocument is one goods-receipt (MIGO) entry referenced by
// goods-receipt based invoice items.
type MaterialDocument struct {
	Document          string `json:"MaterialDocument"`
	FiscalYear        string `json:"MaterialDocumentYear"`
	Item              string `json:"MaterialDocumentItem"`
	PurchaseOrder     string `json:"PurchaseOrder"`
	PurchaseOrderItem string `json:"PurchaseOrderItem"`
	MovementType      string `json:"GoodsMovementType"`
	Cancelled         bool   `json:"GoodsMovementIsCancelled"`
}
