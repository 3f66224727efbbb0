package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/datec-bo/facturaflow/internal/invoice"
	"github.com/datec-bo/facturaflow/internal/pipeline"
)

type resolveParams struct {
	SupplierName string `json:"supplier_name"`
	TaxNumber    string `json:"supplier_tax_number"`
	InvoiceID    string `json:"invoice_id"`
}

type matchParams struct {
	SupplierCode string          `json:"supplier_code"`
	Invoice      invoice.Invoice `json:"invoice"`
}

type invoiceParams struct {
	Invoice invoice.Invoice `json:"invoice"`
}

type buildParams struct {
	Invoice invoice.Invoice          `json:"invoice"`
	Match   *invoice.MatchResult     `json:"match_result,omitempty"`
	Items   *invoice.ReconciledItems `json:"reconciled_items,omitempty"`
}

type submitParams struct {
	Payload invoice.SapPayload `json:"payload"`
}

// RegisterPipelineTools binds the pipeline operations to their tool names.
func RegisterPipelineTools(r *Registry, o *pipeline.Orchestrator, submitter pipeline.Submitter) error {
	bindings := []*Tool{
		{
			Name:        "resolve_supplier",
			Description: "Resolve an invoice supplier against SAP master data (tax number, fuzzy name, keyword, AI fallback)",
			Handler: func(ctx context.Context, params json.RawMessage) (interface{}, error) {
				var p resolveParams
				if err := decode(params, &p); err != nil {
					return nil, err
				}
				if p.SupplierName == "" && p.TaxNumber == "" {
					return nil, &invoice.ValidationError{Field: "supplier_name", Reason: "supplier name or tax number is required"}
				}
				result, err := o.ResolveSupplier(ctx, invoice.Invoice{
					SupplierInvoiceID: p.InvoiceID,
					SupplierName:      p.SupplierName,
					SupplierTaxNumber: p.TaxNumber,
				})
				if err != nil {
					return nil, err
				}
				if !result.Found() {
					return nil, &NotFoundError{Reason: fmt.Sprintf("no supplier matches %q", p.SupplierName)}
				}
				return result, nil
			},
		},
		{
			Name:        "match_purchase_orders",
			Description: "Reconcile invoice line items against a supplier's open purchase orders",
			Handler: func(ctx context.Context, params json.RawMessage) (interface{}, error) {
				var p matchParams
				if err := decode(params, &p); err != nil {
					return nil, err
				}
				if p.SupplierCode == "" {
					return nil, &invoice.ValidationError{Field: "supplier_code", Reason: "supplier code is required"}
				}
				recon, _, err := o.MatchPurchaseOrders(ctx, p.SupplierCode, p.Invoice)
				if err != nil {
					return nil, err
				}
				return recon, nil
			},
		},
		{
			Name:        "build_payload",
			Description: "Assemble the SAP supplier invoice document without submitting it; accepts prior resolve_supplier/match_purchase_orders results and derives whatever is missing",
			Handler: func(ctx context.Context, params json.RawMessage) (interface{}, error) {
				var p buildParams
				if err := decode(params, &p); err != nil {
					return nil, err
				}
				result, err := o.BuildPayloadFrom(ctx, p.Invoice, p.Match, p.Items)
				if err != nil {
					return nil, err
				}
				if result.Payload == nil {
					return nil, &NotFoundError{Reason: fmt.Sprintf("no supplier matches %q", p.Invoice.SupplierName)}
				}
				return result, nil
			},
		},
		{
			Name:        "submit_invoice",
			Description: "Submit a prebuilt supplier invoice payload through the CSRF-protected gateway",
			Handler: func(ctx context.Context, params json.RawMessage) (interface{}, error) {
				var p submitParams
				if err := decode(params, &p); err != nil {
					return nil, err
				}
				result, err := submitter.Submit(ctx, &p.Payload)
				if err != nil {
					return nil, err
				}
				return result, nil
			},
		},
		{
			Name:        "process_invoice",
			Description: "Run the full pipeline: resolve supplier, match purchase orders, build and submit the document",
			Handler: func(ctx context.Context, params json.RawMessage) (interface{}, error) {
				var p invoiceParams
				if err := decode(params, &p); err != nil {
					return nil, err
				}
				result, err := o.ProcessInvoice(ctx, p.Invoice)
				if err != nil {
					return nil, err
				}
				if result.Payload == nil {
					return nil, &NotFoundError{Reason: fmt.Sprintf("no supplier matches %q", p.Invoice.SupplierName)}
				}
				return result, nil
			},
		},
	}

	for _, t := range bindings {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func decode(params json.RawMessage, out interface{}) error {
	if len(params) == 0 {
		return &invoice.ValidationError{Reason: "missing parameters"}
	}
	if err := json.Unmarshal(params, out); err != nil {
		return &invoice.ValidationError{Reason: fmt.Sprintf("malformed parameters: %v", err)}
	}
	return nil
}
