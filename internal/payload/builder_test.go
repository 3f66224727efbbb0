package payload

import (
	"errors"
	"io"
	"testing"

	"github.com/datec-bo/facturaflow/internal/invoice"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testSupplier() invoice.MatchResult {
	return invoice.MatchResult{
		Supplier: &invoice.SupplierRecord{Code: "0000001000", Name: "ABC Distribuidora SA"},
		Tier:     invoice.TierExactTax,
		Score:    1.0,
	}
}

func testInvoice() invoice.Invoice {
	return invoice.Invoice{
		SupplierInvoiceID: "FAC-2025-0042",
		SupplierName:      "ABC Distribuidora SA",
		AuthorizationCode: "29040011007TESTLONGCODE",
		DocumentDate:      "19/03/2025",
		DocumentCurrency:  "BOB",
		GrossAmount:       550,
		TaxCode:           "V0",
		Items: []invoice.LineItem{
			{ProductCode: "MAT-100", Quantity: 10, Description: "Cemento Portland 50kg", UnitPrice: 55, Subtotal: 550},
		},
	}
}

func testPOSet() []invoice.PurchaseOrder {
	return []invoice.PurchaseOrder{
		{
			Number: "4500000001",
			Items: []invoice.POItem{
				{ItemNumber: "00010", ProductCode: "MAT-100", OpenQuantity: 20, UnitPrice: 55, QuantityUnit: "EA", TaxCode: "V1"},
			},
		},
	}
}

func testRecon() invoice.ReconciledItems {
	inv := testInvoice()
	return invoice.ReconciledItems{
		SupplierCode: "0000001000",
		Pairs: []invoice.ItemPair{
			{InvoiceIndex: 0, Item: inv.Items[0], Outcome: invoice.PairedExact, PONumber: "4500000001", POItem: "00010", Similarity: 1.0},
		},
	}
}

func TestBuildHappyPath(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig(), testLogger())

	p, err := b.Build(testInvoice(), testSupplier(), testRecon(), testPOSet(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if p.CompanyCode != "1000" {
		t.Errorf("CompanyCode = %s, want 1000", p.CompanyCode)
	}
	if p.DocumentDate != "2025-03-19" {
		t.Errorf("DocumentDate = %s, want normalized 2025-03-19", p.DocumentDate)
	}
	if p.PostingDate != p.DocumentDate || p.DueCalculationBaseDate != p.DocumentDate {
		t.Error("posting and due dates must mirror the document date")
	}
	if p.InvoicingParty != "0000001000" {
		t.Errorf("InvoicingParty = %s, want 0000001000", p.InvoicingParty)
	}
	if len(p.AssignmentReference) != 14 {
		t.Errorf("AssignmentReference = %q, want 14 characters", p.AssignmentReference)
	}
	if p.SupplierInvoiceStatus != "5" {
		t.Errorf("SupplierInvoiceStatus = %s, want 5", p.SupplierInvoiceStatus)
	}

	if len(p.Items.Results) != 1 {
		t.Fatalf("got %d payload items, want 1", len(p.Items.Results))
	}
	item := p.Items.Results[0]
	if item.SupplierInvoiceItem != "00001" {
		t.Errorf("item number = %s, want zero-padded 00001", item.SupplierInvoiceItem)
	}
	if item.SupplierInvoiceItemAmount != 550 {
		t.Errorf("item amount = %v, want 550", item.SupplierInvoiceItemAmount)
	}
	if item.TaxCode != "V1" {
		t.Errorf("tax code = %s, want the PO line's V1", item.TaxCode)
	}
	if item.PurchaseOrderQuantityUnit != "EA" {
		t.Errorf("quantity unit = %s, want EA", item.PurchaseOrderQuantityUnit)
	}
}

func TestBuildRejectsUnresolvedSupplier(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig(), testLogger())

	_, err := b.Build(testInvoice(), invoice.MatchResult{Tier: invoice.TierNone}, testRecon(), testPOSet(), nil)

	var verr *invoice.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if verr.Field != "InvoicingParty" {
		t.Errorf("field = %s, want InvoicingParty", verr.Field)
	}
}

func TestBuildRejectsMissingInvoiceNumber(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig(), testLogger())
	inv := testInvoice()
	inv.SupplierInvoiceID = ""

	var verr *invoice.ValidationError
	if _, err := b.Build(inv, testSupplier(), testRecon(), testPOSet(), nil); !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestBuildRejectsBadDate(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig(), testLogger())
	inv := testInvoice()
	inv.DocumentDate = "next tuesday"

	var verr *invoice.ValidationError
	if _, err := b.Build(inv, testSupplier(), testRecon(), testPOSet(), nil); !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if verr.Field != "DocumentDate" {
		t.Errorf("field = %s, want DocumentDate", verr.Field)
	}
}

func TestBuildRejectsGrossLineSumMismatch(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig(), testLogger())
	inv := testInvoice()
	inv.GrossAmount = 600 // lines sum to 550

	var verr *invoice.ValidationError
	if _, err := b.Build(inv, testSupplier(), testRecon(), testPOSet(), nil); !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if verr.Field != "InvoiceGrossAmount" {
		t.Errorf("field = %s, want InvoiceGrossAmount", verr.Field)
	}
}

func TestBuildToleratesSubCentRounding(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig(), testLogger())
	inv := testInvoice()
	inv.GrossAmount = 550.009

	if _, err := b.Build(inv, testSupplier(), testRecon(), testPOSet(), nil); err != nil {
		t.Fatalf("sub-cent rounding must pass, got %v", err)
	}
}

func TestBuildRejectsAllLinesUnmatched(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig(), testLogger())
	inv := testInvoice()
	recon := invoice.ReconciledItems{
		SupplierCode: "0000001000",
		Pairs: []invoice.ItemPair{
			{InvoiceIndex: 0, Item: inv.Items[0], Outcome: invoice.Unmatched},
		},
	}

	var verr *invoice.ValidationError
	if _, err := b.Build(inv, testSupplier(), recon, testPOSet(), nil); !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func partiallyUnmatched() (invoice.Invoice, invoice.ReconciledItems) {
	inv := testInvoice()
	inv.Items = append(inv.Items, invoice.LineItem{Description: "Servicio no pactado", Quantity: 1, UnitPrice: 300, Subtotal: 300})
	inv.GrossAmount = 850

	recon := testRecon()
	recon.Pairs = append(recon.Pairs, invoice.ItemPair{InvoiceIndex: 1, Item: inv.Items[1], Outcome: invoice.Unmatched})
	return inv, recon
}

func TestBuildBlocksUnmatchedAboveTolerance(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig(), testLogger())
	inv, recon := partiallyUnmatched()

	var verr *invoice.ValidationError
	if _, err := b.Build(inv, testSupplier(), recon, testPOSet(), nil); !errors.As(err, &verr) {
		t.Fatalf("want ValidationError for unmatched amount, got %v", err)
	}
}

func TestBuildAllowsUnmatchedWithinTolerance(t *testing.T) {
	cfg := DefaultBuilderConfig()
	cfg.UnmatchedTolerance = 500
	b := NewBuilder(cfg, testLogger())
	inv, recon := partiallyUnmatched()

	p, err := b.Build(inv, testSupplier(), recon, testPOSet(), nil)
	if err != nil {
		t.Fatalf("unmatched amount within tolerance must pass: %v", err)
	}
	// The unmatched line stays out of the document either way.
	if len(p.Items.Results) != 1 {
		t.Errorf("got %d payload items, want 1", len(p.Items.Results))
	}
}

func TestBuildGoodsReceiptReferences(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig(), testLogger())

	pos := testPOSet()
	pos[0].Items[0].GoodsReceiptBased = true
	docs := []invoice.MaterialDocument{
		// Cancelled receipt first to prove the 101/not-cancelled preference.
		{Document: "5000000009", FiscalYear: "2025", Item: "0001", PurchaseOrder: "4500000001", PurchaseOrderItem: "00010", MovementType: "101", Cancelled: true},
		{Document: "5000000010", FiscalYear: "2025", Item: "0002", PurchaseOrder: "4500000001", PurchaseOrderItem: "00010", MovementType: "101"},
	}

	p, err := b.Build(testInvoice(), testSupplier(), testRecon(), pos, docs)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	item := p.Items.Results[0]
	if item.ReferenceDocument != "5000000010" {
		t.Errorf("ReferenceDocument = %s, want the uncancelled 5000000010", item.ReferenceDocument)
	}
	if item.ReferenceDocumentFiscalYear != "2025" || item.ReferenceDocumentItem != "0002" {
		t.Errorf("receipt reference incomplete: %+v", item)
	}
}

func TestBuildGoodsReceiptFallbackToAnyDocument(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig(), testLogger())

	pos := testPOSet()
	pos[0].Items[0].GoodsReceiptBased = true
	docs := []invoice.MaterialDocument{
		{Document: "5000000011", FiscalYear: "2025", Item: "0001", PurchaseOrder: "4500000001", PurchaseOrderItem: "00010", MovementType: "102"},
	}

	p, err := b.Build(testInvoice(), testSupplier(), testRecon(), pos, docs)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if p.Items.Results[0].ReferenceDocument != "5000000011" {
		t.Errorf("ReferenceDocument = %s, want fallback 5000000011", p.Items.Results[0].ReferenceDocument)
	}
}

func TestBuildDefaultsCurrency(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig(), testLogger())
	inv := testInvoice()
	inv.DocumentCurrency = ""

	p, err := b.Build(inv, testSupplier(), testRecon(), testPOSet(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if p.DocumentCurrency != "BOB" {
		t.Errorf("currency = %s, want default BOB", p.DocumentCurrency)
	}
	if p.Items.Results[0].DocumentCurrency != "BOB" {
		t.Errorf("item currency = %s, want BOB", p.Items.Results[0].DocumentCurrency)
	}
}
