package invoice

// SapPayload is the supplier invoice document in the shape the SAP
// A_SupplierInvoice service accepts. Numeric fields stay numeric and dates
// are normalized to YYYY-MM-DD before the payload is considered valid.
type SapPayload struct {
	CompanyCode                   string       `json:"CompanyCode" validate:"required"`
	DocumentDate                  string       `json:"DocumentDate" validate:"required,datetime=2006-01-02"`
	PostingDate                   string       `json:"PostingDate" validate:"required,datetime=2006-01-02"`
	SupplierInvoiceIDByInvcgParty string       `json:"SupplierInvoiceIDByInvcgParty" validate:"required"`
	InvoicingParty                string       `json:"InvoicingParty" validate:"required"`
	AssignmentReference           string       `json:"AssignmentReference" validate:"max=14"`
	DocumentCurrency              string       `json:"DocumentCurrency" validate:"required,len=3"`
	InvoiceGrossAmount            float64      `json:"InvoiceGrossAmount" validate:"required,gt=0"`
	DueCalculationBaseDate        string       `json:"DueCalculationBaseDate" validate:"required,datetime=2006-01-02"`
	TaxIsCalculatedAutomatically  bool         `json:"TaxIsCalculatedAutomatically"`
	TaxDeterminationDate          string       `json:"TaxDeterminationDate" validate:"required,datetime=2006-01-02"`
	SupplierInvoiceStatus         string       `json:"SupplierInvoiceStatus" validate:"required"`
	Items                         PayloadItems `json:"to_SuplrInvcItemPurOrdRef"`
}

// PayloadItems wraps the item list in the OData deep-insert envelope.
type PayloadItems struct {
	Results []PayloadItem `json:"results" validate:"min=1,dive"`
}

// PayloadItem is one invoice item referencing a purchase order line. The
// ReferenceDocument fields are present only for goods-receipt based lines.
type PayloadItem struct {
	SupplierInvoiceItem         string  `json:"SupplierInvoiceItem" validate:"required"`
	PurchaseOrder               string  `json:"PurchaseOrder" validate:"required"`
	PurchaseOrderItem           string  `json:"PurchaseOrderItem" validate:"required"`
	DocumentCurrency            string  `json:"DocumentCurrency" validate:"required"`
	QuantityInPurchaseOrderUnit float64 `json:"QuantityInPurchaseOrderUnit" validate:"gt=0"`
	PurchaseOrderQuantityUnit   string  `json:"PurchaseOrderQuantityUnit"`
	SupplierInvoiceItemAmount   float64 `json:"SupplierInvoiceItemAmount" validate:"gt=0"`
	TaxCode                     string  `json:"TaxCode"`
	ReferenceDocument           string  `json:"ReferenceDocument,omitempty"`
	ReferenceDocumentFiscalYear string  `json:"ReferenceDocumentFiscalYear,omitempty"`
	ReferenceDocumentItem       string  `json:"ReferenceDocumentItem,omitempty"`
}
