package sap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/datec-bo/facturaflow/internal/invoice"
	"github.com/datec-bo/facturaflow/internal/utils"
	"github.com/sirupsen/logrus"
)

// Service paths on the S/4HANA gateway.
const (
	supplierPath         = "/sap/opu/odata/sap/API_BUSINESS_PARTNER/A_Supplier"
	purchaseOrderPath    = "/sap/opu/odata/sap/API_PURCHASEORDER_PROCESS_SRV/A_PurchaseOrder"
	supplierInvoicePath  = "/sap/opu/odata/sap/API_SUPPLIERINVOICE_PROCESS_SRV/A_SupplierInvoice"
	materialDocumentPath = "/sap/opu/odata/sap/API_MATERIAL_DOCUMENT_SRV/A_MaterialDocumentItem"
)

// Client talks to the SAP OData V2 services with basic auth. Read calls are
// stateless; document submission goes through Session, which layers the CSRF
// handshake on top of this client.
type Client struct {
	BaseURL    string
	Username   string
	Password   string
	HTTPClient *http.Client
	Log        *logrus.Logger
}

// NewClient creates a SAP client for the given gateway host.
func NewClient(baseURL, username, password string, log *logrus.Logger) *Client {
	return &Client{
		BaseURL:    baseURL,
		Username:   username,
		Password:   password,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Log:        log,
	}
}

// envelope is the OData V2 response wrapper: {"d": {"results": [...]}}.
type envelope struct {
	D struct {
		Results json.RawMessage `json:"results"`
	} `json:"d"`
}

type supplierRow struct {
	Supplier             string `json:"Supplier"`
	SupplierName         string `json:"SupplierName"`
	SupplierFullName     string `json:"SupplierFullName"`
	TaxNumber1           string `json:"TaxNumber1"`
	SupplierAccountGroup string `json:"SupplierAccountGroup"`
	PostingIsBlocked     bool   `json:"PostingIsBlocked"`
}

type poItemRow struct {
	PurchaseOrderItem          string `json:"PurchaseOrderItem"`
	Material                   string `json:"Material"`
	PurchaseOrderItemText      string `json:"PurchaseOrderItemText"`
	OrderQuantity              string `json:"OrderQuantity"`
	NetPriceAmount             string `json:"NetPriceAmount"`
	PurchaseOrderQuantityUnit  string `json:"PurchaseOrderQuantityUnit"`
	TaxCode                    string `json:"TaxCode"`
	IsFinallyInvoiced          bool   `json:"IsFinallyInvoiced"`
	InvoiceIsGoodsReceiptBased bool   `json:"InvoiceIsGoodsReceiptBased"`
}

type poRow struct {
	PurchaseOrder              string `json:"PurchaseOrder"`
	Supplier                   string `json:"Supplier"`
	PurchasingProcessingStatus string `json:"PurchasingProcessingStatus"`
	PurchaseOrderDate          string `json:"PurchaseOrderDate"`
	DocumentCurrency           string `json:"DocumentCurrency"`
	ToItems                    struct {
		Results []poItemRow `json:"results"`
	} `json:"to_PurchaseOrderItem"`
}

type materialDocRow struct {
	MaterialDocument         string `json:"MaterialDocument"`
	MaterialDocumentYear     string `json:"MaterialDocumentYear"`
	MaterialDocumentItem     string `json:"MaterialDocumentItem"`
	PurchaseOrder            string `json:"PurchaseOrder"`
	PurchaseOrderItem        string `json:"PurchaseOrderItem"`
	GoodsMovementType        string `json:"GoodsMovementType"`
	GoodsMovementIsCancelled bool   `json:"GoodsMovementIsCancelled"`
}

// FetchSuppliers pulls the supplier master data. Blocked suppliers are kept;
// the resolver reports them and the accountant decides.
func (c *Client) FetchSuppliers(ctx context.Context) ([]invoice.SupplierRecord, error) {
	query := url.Values{}
	query.Set("$format", "json")
	query.Set("$select", "Supplier,SupplierName,SupplierFullName,TaxNumber1,SupplierAccountGroup,PostingIsBlocked")

	var rows []supplierRow
	if err := c.get(ctx, supplierPath, query, &rows); err != nil {
		return nil, fmt.Errorf("fetch suppliers: %w", err)
	}

	suppliers := make([]invoice.SupplierRecord, 0, len(rows))
	for _, r := range rows {
		suppliers = append(suppliers, invoice.SupplierRecord{
			Code:         r.Supplier,
			Name:         r.SupplierName,
			FullName:     r.SupplierFullName,
			TaxNumber:    r.TaxNumber1,
			AccountGroup: r.SupplierAccountGroup,
			Blocked:      r.PostingIsBlocked,
		})
	}
	return suppliers, nil
}

// FetchOpenPurchaseOrders pulls the supplier's purchase orders with their
// items expanded in a single round trip.
func (c *Client) FetchOpenPurchaseOrders(ctx context.Context, supplierCode string) ([]invoice.PurchaseOrder, error) {
	query := url.Values{}
	query.Set("$format", "json")
	query.Set("$filter", fmt.Sprintf("Supplier eq '%s'", supplierCode))
	query.Set("$expand", "to_PurchaseOrderItem")

	var rows []poRow
	if err := c.get(ctx, purchaseOrderPath, query, &rows); err != nil {
		return nil, fmt.Errorf("fetch purchase orders: %w", err)
	}

	pos := make([]invoice.PurchaseOrder, 0, len(rows))
	for _, r := range rows {
		po := invoice.PurchaseOrder{
			Number:       r.PurchaseOrder,
			SupplierCode: r.Supplier,
			Status:       r.PurchasingProcessingStatus,
			Currency:     r.DocumentCurrency,
		}
		if r.PurchaseOrderDate != "" {
			date, err := utils.ParseODataDate(r.PurchaseOrderDate)
			if err != nil {
				return nil, fmt.Errorf("purchase order %s: %w", r.PurchaseOrder, err)
			}
			po.OrderDate = date
		}
		for _, ir := range r.ToItems.Results {
			qty, err := parseDecimal(ir.OrderQuantity)
			if err != nil {
				return nil, fmt.Errorf("purchase order %s item %s quantity: %w", r.PurchaseOrder, ir.PurchaseOrderItem, err)
			}
			price, err := parseDecimal(ir.NetPriceAmount)
			if err != nil {
				return nil, fmt.Errorf("purchase order %s item %s price: %w", r.PurchaseOrder, ir.PurchaseOrderItem, err)
			}
			po.Items = append(po.Items, invoice.POItem{
				ItemNumber:        ir.PurchaseOrderItem,
				ProductCode:       ir.Material,
				Description:       ir.PurchaseOrderItemText,
				OpenQuantity:      qty,
				UnitPrice:         price,
				QuantityUnit:      ir.PurchaseOrderQuantityUnit,
				TaxCode:           ir.TaxCode,
				FinallyInvoiced:   ir.IsFinallyInvoiced,
				GoodsReceiptBased: ir.InvoiceIsGoodsReceiptBased,
			})
		}
		pos = append(pos, po)
	}
	return pos, nil
}

// FetchMaterialDocuments pulls the goods receipts booked against one
// purchase order.
func (c *Client) FetchMaterialDocuments(ctx context.Context, poNumber string) ([]invoice.MaterialDocument, error) {
	query := url.Values{}
	query.Set("$format", "json")
	query.Set("$filter", fmt.Sprintf("PurchaseOrder eq '%s'", poNumber))

	var rows []materialDocRow
	if err := c.get(ctx, materialDocumentPath, query, &rows); err != nil {
		return nil, fmt.Errorf("fetch material documents: %w", err)
	}

	docs := make([]invoice.MaterialDocument, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, invoice.MaterialDocument{
			Document:          r.MaterialDocument,
			FiscalYear:        r.MaterialDocumentYear,
			Item:              r.MaterialDocumentItem,
			PurchaseOrder:     r.PurchaseOrder,
			PurchaseOrderItem: r.PurchaseOrderItem,
			MovementType:      r.GoodsMovementType,
			Cancelled:         r.GoodsMovementIsCancelled,
		})
	}
	return docs, nil
}

// get performs one authenticated OData read and unmarshals d.results.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.Username, c.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &invoice.AuthError{Status: resp.StatusCode, Reason: "credentials rejected"}
	case resp.StatusCode != http.StatusOK:
		return &invoice.UpstreamError{Op: path, Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("malformed OData response: %w", err)
	}
	if len(env.D.Results) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.D.Results, out); err != nil {
		return fmt.Errorf("malformed OData results: %w", err)
	}
	return nil
}

// parseDecimal handles the Edm.Decimal fields OData V2 serializes as JSON
// strings. A blank field reads as zero.
func parseDecimal(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return utils.CleanAmount(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
