package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/datec-bo/facturaflow/internal/database"
	"github.com/datec-bo/facturaflow/internal/invoice"
	"github.com/datec-bo/facturaflow/internal/matching"
	"github.com/datec-bo/facturaflow/internal/models"
	"github.com/datec-bo/facturaflow/internal/payload"
	"github.com/datec-bo/facturaflow/internal/services/sap"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// SupplierSource provides the supplier master data, fetched fresh per call.
type SupplierSource interface {
	FetchSuppliers(ctx context.Context) ([]invoice.SupplierRecord, error)
}

// PurchaseOrderSource provides a supplier's purchase orders with items.
type PurchaseOrderSource interface {
	FetchOpenPurchaseOrders(ctx context.Context, supplierCode string) ([]invoice.PurchaseOrder, error)
}

// MaterialDocumentSource provides the goods receipts of one purchase order.
type MaterialDocumentSource interface {
	FetchMaterialDocuments(ctx context.Context, poNumber string) ([]invoice.MaterialDocument, error)
}

// Submitter posts a finished payload to the gateway.
type Submitter interface {
	Submit(ctx context.Context, p *invoice.SapPayload) (sap.SubmissionResult, error)
}

// ProcessResult is the combined outcome of one full pipeline run.
type ProcessResult struct {
	Resolution invoice.MatchResult     `json:"resolution"`
	Items      invoice.ReconciledItems `json:"items"`
	Payload    *invoice.SapPayload     `json:"payload,omitempty"`
	Submission *sap.SubmissionResult   `json:"submission,omitempty"`
}

// Orchestrator chains the pipeline steps: resolve the supplier, reconcile
// the line items, build the payload, submit. Each step is also exposed on
// its own so the tool surface can run them independently. The orchestrator
// holds no per-invoice state and is safe for concurrent invoices.
type Orchestrator struct {
	suppliers SupplierSource
	pos       PurchaseOrderSource
	receipts  MaterialDocumentSource
	submitter Submitter
	resolver  *matching.Resolver
	matcher   *matching.POMatcher
	builder   *payload.Builder
	db        *database.DB // nil disables audit persistence
	log       *logrus.Logger
}

// NewOrchestrator wires the pipeline together.
func NewOrchestrator(
	suppliers SupplierSource,
	pos PurchaseOrderSource,
	receipts MaterialDocumentSource,
	submitter Submitter,
	resolver *matching.Resolver,
	matcher *matching.POMatcher,
	builder *payload.Builder,
	db *database.DB,
	log *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		suppliers: suppliers,
		pos:       pos,
		receipts:  receipts,
		submitter: submitter,
		resolver:  resolver,
		matcher:   matcher,
		builder:   builder,
		db:        db,
		log:       log,
	}
}

// ResolveSupplier runs the resolution cascade against a fresh master-data
// snapshot and persists the decision.
func (o *Orchestrator) ResolveSupplier(ctx context.Context, inv invoice.Invoice) (invoice.MatchResult, error) {
	candidates, err := o.suppliers.FetchSuppliers(ctx)
	if err != nil {
		return invoice.MatchResult{Tier: invoice.TierNone}, fmt.Errorf("supplier master data: %w", err)
	}

	result, err := o.resolver.Resolve(ctx, inv.SupplierName, inv.SupplierTaxNumber, candidates)
	if err != nil {
		return result, err
	}

	o.logResolution(inv, result)
	return result, nil
}

// MatchPurchaseOrders reconciles the invoice lines against the supplier's
// open purchase orders. The returned PO slice is the filtered set the pairs
// refer to; the payload builder needs it for units and tax codes.
func (o *Orchestrator) MatchPurchaseOrders(ctx context.Context, supplierCode string, inv invoice.Invoice) (invoice.ReconciledItems, []invoice.PurchaseOrder, error) {
	open, err := o.openPurchaseOrders(ctx, supplierCode, inv)
	if err != nil {
		return invoice.ReconciledItems{}, nil, err
	}

	recon := o.matcher.Match(supplierCode, inv.Items, open)
	return recon, open, nil
}

// BuildPayload resolves, reconciles and assembles the document without
// submitting it.
func (o *Orchestrator) BuildPayload(ctx context.Context, inv invoice.Invoice) (*ProcessResult, error) {
	return o.BuildPayloadFrom(ctx, inv, nil, nil)
}

// BuildPayloadFrom assembles the document from earlier stage outputs. A nil
// match or reconciliation is derived on the spot; a non-nil one is taken as
// is, so a caller holding resolve_supplier/match_purchase_orders results does
// not pay for (or race against) a second resolution.
func (o *Orchestrator) BuildPayloadFrom(ctx context.Context, inv invoice.Invoice, match *invoice.MatchResult, recon *invoice.ReconciledItems) (*ProcessResult, error) {
	if match == nil {
		resolved, err := o.ResolveSupplier(ctx, inv)
		if err != nil {
			return nil, err
		}
		match = &resolved
	}
	result := &ProcessResult{Resolution: *match}
	if !match.Found() {
		return result, nil
	}

	open, err := o.openPurchaseOrders(ctx, match.Supplier.Code, inv)
	if err != nil {
		return result, err
	}
	if recon == nil {
		r := o.matcher.Match(match.Supplier.Code, inv.Items, open)
		recon = &r
	}
	result.Items = *recon

	receipts, err := o.fetchReceipts(ctx, *recon, open)
	if err != nil {
		return result, err
	}

	p, err := o.builder.Build(inv, *match, *recon, open, receipts)
	if err != nil {
		return result, err
	}
	result.Payload = p
	return result, nil
}

// openPurchaseOrders fetches the supplier's POs and applies the header
// pre-filter against the invoice.
func (o *Orchestrator) openPurchaseOrders(ctx context.Context, supplierCode string, inv invoice.Invoice) ([]invoice.PurchaseOrder, error) {
	pos, err := o.pos.FetchOpenPurchaseOrders(ctx, supplierCode)
	if err != nil {
		return nil, fmt.Errorf("purchase orders: %w", err)
	}
	return matching.FilterPOHeaders(pos, inv.DocumentDate, inv.DocumentCurrency), nil
}

// ProcessInvoice runs the full pipeline. A resolution to tier none stops the
// run before any write; the caller decides what to do with the orphan.
func (o *Orchestrator) ProcessInvoice(ctx context.Context, inv invoice.Invoice) (*ProcessResult, error) {
	result, err := o.BuildPayload(ctx, inv)
	if err != nil || result.Payload == nil {
		return result, err
	}

	submission, err := o.submitter.Submit(ctx, result.Payload)
	result.Submission = &submission
	o.logSubmission(inv, result.Payload, submission, err)
	if err != nil {
		return result, err
	}
	return result, nil
}

// fetchReceipts pulls the material documents of every PO that carries a
// goods-receipt based paired line. POs without such lines cost no round trip.
func (o *Orchestrator) fetchReceipts(ctx context.Context, recon invoice.ReconciledItems, open []invoice.PurchaseOrder) ([]invoice.MaterialDocument, error) {
	needed := make(map[string]bool)
	for _, pair := range recon.Pairs {
		if pair.Outcome == invoice.Unmatched {
			continue
		}
		for _, po := range open {
			if po.Number != pair.PONumber {
				continue
			}
			for _, item := range po.Items {
				if item.ItemNumber == pair.POItem && item.GoodsReceiptBased {
					needed[po.Number] = true
				}
			}
		}
	}

	var docs []invoice.MaterialDocument
	for poNumber := range needed {
		batch, err := o.receipts.FetchMaterialDocuments(ctx, poNumber)
		if err != nil {
			return nil, fmt.Errorf("material documents for %s: %w", poNumber, err)
		}
		docs = append(docs, batch...)
	}
	return docs, nil
}

func (o *Orchestrator) logResolution(inv invoice.Invoice, result invoice.MatchResult) {
	if o.db == nil {
		return
	}

	entry := models.ResolutionLog{
		InvoiceID:    inv.SupplierInvoiceID,
		SupplierName: inv.SupplierName,
		TaxNumber:    inv.SupplierTaxNumber,
		Tier:         string(result.Tier),
		Score:        result.Score,
	}
	if result.Supplier != nil {
		entry.SupplierCode = result.Supplier.Code
	}
	if len(result.RunnersUp) > 0 {
		if raw, err := json.Marshal(result.RunnersUp); err == nil {
			entry.RunnersUp = datatypes.JSON(raw)
		}
	}

	if err := o.db.Create(&entry).Error; err != nil {
		o.log.WithError(err).Warn("Failed to persist resolution log")
	}
}

func (o *Orchestrator) logSubmission(inv invoice.Invoice, p *invoice.SapPayload, result sap.SubmissionResult, submitErr error) {
	if o.db == nil {
		return
	}

	entry := models.SubmissionLog{
		InvoiceID:       inv.SupplierInvoiceID,
		InvoicingParty:  p.InvoicingParty,
		GrossAmount:     p.InvoiceGrossAmount,
		Currency:        p.DocumentCurrency,
		Status:          string(result.Status),
		SupplierInvoice: result.SupplierInvoice,
		FiscalYear:      result.FiscalYear,
	}
	if raw, err := json.Marshal(p); err == nil {
		entry.Payload = datatypes.JSON(raw)
	}
	if submitErr != nil {
		entry.ErrorMessage = submitErr.Error()
	}

	if err := o.db.Create(&entry).Error; err != nil {
		o.log.WithError(err).Warn("Failed to persist submission log")
	}
}
