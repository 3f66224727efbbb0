package payload

import (
	"fmt"

	"github.com/datec-bo/facturaflow/internal/invoice"
	"github.com/datec-bo/facturaflow/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const assignmentReferenceMax = 14

// BuilderConfig carries the company-level posting defaults.
type BuilderConfig struct {
	CompanyCode        string  // default "1000"
	DefaultCurrency    string  // default "BOB"
	InvoiceStatus      string  // SupplierInvoiceStatus, default "5" (posted)
	AmountTolerance    float64 // gross vs. line-sum tolerance, default 0.01
	UnmatchedTolerance float64 // max currency amount of unmatched lines, default 0.01
}

// DefaultBuilderConfig returns the posting defaults for the Bolivian company
// code.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		CompanyCode:        "1000",
		DefaultCurrency:    "BOB",
		InvoiceStatus:      "5",
		AmountTolerance:    0.01,
		UnmatchedTolerance: 0.01,
	}
}

// Builder assembles the SAP supplier invoice document from a resolved
// supplier and reconciled line items. It rejects documents that would bounce
// at the SAP side before any network round trip happens.
type Builder struct {
	cfg      BuilderConfig
	validate *validator.Validate
	log      *logrus.Logger
}

// NewBuilder creates a builder with the given posting defaults.
func NewBuilder(cfg BuilderConfig, log *logrus.Logger) *Builder {
	if cfg.CompanyCode == "" {
		cfg = DefaultBuilderConfig()
	}
	return &Builder{
		cfg:      cfg,
		validate: validator.New(),
		log:      log,
	}
}

// Build produces the posting-ready payload. openPOs supplies the unit, tax
// code and goods-receipt flag of each paired line; materialDocs supplies the
// goods-receipt references for goods-receipt based lines. Unmatched lines
// block the document when their amount exceeds the configured tolerance.
func (b *Builder) Build(inv invoice.Invoice, match invoice.MatchResult, recon invoice.ReconciledItems, openPOs []invoice.PurchaseOrder, materialDocs []invoice.MaterialDocument) (*invoice.SapPayload, error) {
	if !match.Found() {
		return nil, &invoice.ValidationError{Field: "InvoicingParty", Reason: "supplier was not resolved"}
	}
	if inv.SupplierInvoiceID == "" {
		return nil, &invoice.ValidationError{Field: "SupplierInvoiceIDByInvcgParty", Reason: "missing invoice number"}
	}
	if inv.GrossAmount <= 0 {
		return nil, &invoice.ValidationError{Field: "InvoiceGrossAmount", Reason: "gross amount must be positive"}
	}

	docDate, err := utils.NormalizeDate(inv.DocumentDate)
	if err != nil {
		return nil, &invoice.ValidationError{Field: "DocumentDate", Reason: err.Error()}
	}

	currency := inv.DocumentCurrency
	if currency == "" {
		currency = b.cfg.DefaultCurrency
	}

	items, err := b.buildItems(inv, recon, currency, openPOs, materialDocs)
	if err != nil {
		return nil, err
	}

	if err := b.checkAmounts(inv, recon); err != nil {
		return nil, err
	}

	assignment := inv.AuthorizationCode
	if len(assignment) > assignmentReferenceMax {
		assignment = assignment[:assignmentReferenceMax]
	}

	p := &invoice.SapPayload{
		CompanyCode:                   b.cfg.CompanyCode,
		DocumentDate:                  docDate,
		PostingDate:                   docDate,
		SupplierInvoiceIDByInvcgParty: inv.SupplierInvoiceID,
		InvoicingParty:                match.Supplier.Code,
		AssignmentReference:           assignment,
		DocumentCurrency:              currency,
		InvoiceGrossAmount:            inv.GrossAmount,
		DueCalculationBaseDate:        docDate,
		TaxIsCalculatedAutomatically:  true,
		TaxDeterminationDate:          docDate,
		SupplierInvoiceStatus:         b.cfg.InvoiceStatus,
		Items:                         invoice.PayloadItems{Results: items},
	}

	if err := b.validate.Struct(p); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return nil, &invoice.ValidationError{
				Field:  fe.Field(),
				Reason: fmt.Sprintf("failed %q check", fe.Tag()),
			}
		}
		return nil, &invoice.ValidationError{Reason: err.Error()}
	}

	return p, nil
}

// buildItems turns the paired lines into deep-insert items. Item numbers are
// sequential, zero padded to five digits the way SAP expects them.
func (b *Builder) buildItems(inv invoice.Invoice, recon invoice.ReconciledItems, currency string, openPOs []invoice.PurchaseOrder, materialDocs []invoice.MaterialDocument) ([]invoice.PayloadItem, error) {
	var items []invoice.PayloadItem

	for _, pair := range recon.Pairs {
		if pair.Outcome == invoice.Unmatched {
			continue
		}

		poItem := findPOItem(openPOs, pair.PONumber, pair.POItem)
		if poItem == nil {
			return nil, &invoice.ValidationError{
				Field:  "PurchaseOrderItem",
				Reason: fmt.Sprintf("paired line %s/%s is missing from the purchase order set", pair.PONumber, pair.POItem),
			}
		}

		amount := pair.Item.Subtotal
		if amount == 0 {
			amount = pair.Item.Quantity * pair.Item.UnitPrice
		}

		taxCode := poItem.TaxCode
		if taxCode == "" {
			taxCode = inv.TaxCode
		}

		item := invoice.PayloadItem{
			SupplierInvoiceItem:         fmt.Sprintf("%05d", len(items)+1),
			PurchaseOrder:               pair.PONumber,
			PurchaseOrderItem:           pair.POItem,
			DocumentCurrency:            currency,
			QuantityInPurchaseOrderUnit: pair.Item.Quantity,
			PurchaseOrderQuantityUnit:   poItem.QuantityUnit,
			SupplierInvoiceItemAmount:   amount,
			TaxCode:                     taxCode,
		}

		if poItem.GoodsReceiptBased {
			if doc := findMaterialDoc(materialDocs, pair.PONumber, pair.POItem); doc != nil {
				item.ReferenceDocument = doc.Document
				item.ReferenceDocumentFiscalYear = doc.FiscalYear
				item.ReferenceDocumentItem = doc.Item
			} else {
				b.log.WithFields(logrus.Fields{
					"purchase_order": pair.PONumber,
					"po_item":        pair.POItem,
				}).Warn("Goods-receipt based line has no material document")
			}
		}

		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, &invoice.ValidationError{
			Field:  "to_SuplrInvcItemPurOrdRef",
			Reason: "no invoice line could be paired with a purchase order line",
		}
	}

	return items, nil
}

// checkAmounts verifies the gross amount against the sum of all line
// subtotals and enforces the unmatched-amount policy.
func (b *Builder) checkAmounts(inv invoice.Invoice, recon invoice.ReconciledItems) error {
	sum := decimal.Zero
	for _, item := range inv.Items {
		sub := item.Subtotal
		if sub == 0 {
			sub = item.Quantity * item.UnitPrice
		}
		sum = sum.Add(decimal.NewFromFloat(sub))
	}

	gross := decimal.NewFromFloat(inv.GrossAmount)
	tolerance := decimal.NewFromFloat(b.cfg.AmountTolerance)
	if gross.Sub(sum).Abs().GreaterThan(tolerance) {
		return &invoice.ValidationError{
			Field:  "InvoiceGrossAmount",
			Reason: fmt.Sprintf("gross amount %s does not equal the line sum %s", gross, sum),
		}
	}

	if unmatched := recon.UnmatchedAmount(); unmatched > b.cfg.UnmatchedTolerance {
		return &invoice.ValidationError{
			Field:  "Items",
			Reason: fmt.Sprintf("unmatched lines amount to %.2f, above the %.2f tolerance", unmatched, b.cfg.UnmatchedTolerance),
		}
	} else if unmatched > 0 {
		b.log.WithFields(logrus.Fields{
			"invoice":          inv.SupplierInvoiceID,
			"unmatched_amount": unmatched,
		}).Warn("Payload excludes unmatched invoice lines")
	}

	return nil
}

func findPOItem(pos []invoice.PurchaseOrder, poNumber, itemNumber string) *invoice.POItem {
	for i := range pos {
		if pos[i].Number != poNumber {
			continue
		}
		for j := range pos[i].Items {
			if pos[i].Items[j].ItemNumber == itemNumber {
				return &pos[i].Items[j]
			}
		}
	}
	return nil
}

// findMaterialDoc picks the goods receipt for one PO line: movement type 101
// and not cancelled wins, any matching document is the fallback.
func findMaterialDoc(docs []invoice.MaterialDocument, poNumber, itemNumber string) *invoice.MaterialDocument {
	var fallback *invoice.MaterialDocument
	for i := range docs {
		d := &docs[i]
		if d.PurchaseOrder != poNumber || d.PurchaseOrderItem != itemNumber {
			continue
		}
		if d.MovementType == "101" && !d.Cancelled {
			return d
		}
		if fallback == nil {
			fallback = d
		}
	}
	return fallback
}
