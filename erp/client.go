// Package erp implements the ERP projector (C8): a long-running consumer
// that turns ParityVerified stream messages into posted invoices,
// idempotently, with per-SKU line-level linkage.
package erp

import (
	"context"

	"github.com/konozy/ordersync/money"
)

// SaleOrderLine is one line of the order's sale order in the ERP.
type SaleOrderLine struct {
	SaleLineID int64
	ProductID  int64
	SKU        string
}

// InvoiceLine is one line to post on a draft invoice.
type InvoiceLine struct {
	ProductID    int64
	Description  string
	Quantity     float64
	PriceUnit    money.Money
	SaleLineIDs  []int64
	AccountID    string
	AnalyticID   string
	IsServiceFee bool
}

// DraftInvoice is the invoice payload submitted to CreateInvoice.
type DraftInvoice struct {
	PartnerID   string
	Journal     string
	Reference   string // always the order_id
	Origin      string // always the order_id
	InvoiceDate string // RFC3339 date
	Lines       []InvoiceLine
}

// Invoice is an ERP-side invoice record.
type Invoice struct {
	InvoiceID string
	Posted    bool
}

// Client is the ERP-side gateway the projector drives. Client
// implementations own retry/backoff for their own transport; the projector
// treats every method as a single suspension point.
type Client interface {
	// FindInvoiceByOrigin looks an invoice up by its origin reference
	// (origin=order_id). Returns (nil, nil) if none exists.
	FindInvoiceByOrigin(ctx context.Context, orderID string) (*Invoice, error)

	// LoadSaleOrderLines returns the sale order's lines for orderID so the
	// projector can build its product_id/sku indexes.
	LoadSaleOrderLines(ctx context.Context, orderID string) ([]SaleOrderLine, error)

	// ResolvePartnerByEmail looks up a partner by buyer email. Returns
	// ("", nil) if not found — the caller falls back to the configured
	// generic partner.
	ResolvePartnerByEmail(ctx context.Context, email string) (string, error)

	// ResolveProductBySKU looks a storable product up by default_code then
	// barcode. Returns (0, nil) if absent.
	ResolveProductBySKU(ctx context.Context, sku string) (int64, error)

	// GetOrCreateServiceProduct returns the synthetic service product id
	// for (source, code), creating it on first use.
	GetOrCreateServiceProduct(ctx context.Context, source, code, name string) (int64, error)

	// CreateInvoice creates a draft invoice and returns its id.
	CreateInvoice(ctx context.Context, draft DraftInvoice) (string, error)

	// PostInvoice transitions an invoice draft -> posted.
	PostInvoice(ctx context.Context, invoiceID string) error

	// ValidateInvoiceLines re-reads an invoice's lines for the post-post
	// validation pass (no two storable products share a product_id).
	ValidateInvoiceLines(ctx context.Context, invoiceID string) ([]InvoiceLine, error)

	// FindReimbursementEntry looks up an existing reimbursement journal
	// entry by (order_id, event_type) for idempotency.
	FindReimbursementEntry(ctx context.Context, orderID, eventType string) (string, error)

	// CreateReimbursementEntry posts a debit-inventory-loss /
	// credit-marketplace-receivable journal entry: no product, no SKU, no
	// quantity.
	CreateReimbursementEntry(ctx context.Context, orderID, eventType string, amount money.Money) (string, error)
}

// ReimbursementEvent is a marketplace-issued reimbursement, handled by a
// path parallel to the invoice path: it never touches a product or SKU.
type ReimbursementEvent struct {
	OrderID   string
	EventType string
	Amount    money.Money
}
