package erp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/konozy/ordersync/decomposer"
	"github.com/konozy/ordersync/handoff"
	"github.com/konozy/ordersync/logging"
	"github.com/konozy/ordersync/money"
	"github.com/konozy/ordersync/orderagg"
)

// eventReader is the slice of eventlog.Store the projector depends on.
// Narrowed to an interface, the same way syncengine.Engine narrows its
// event store, so ProcessDelivery can be driven by a fake in tests
// without a live Postgres instance.
type eventReader interface {
	EventsFor(ctx context.Context, aggregateID string, fromSeq, toSeq int64) ([]orderagg.Event, error)
}

// Projector is the long-running ERP consumer (C8). It turns ParityVerified
// messages into posted invoices, idempotently, with per-SKU line-level
// linkage. The service-product cache is process-wide and shared by every
// worker in the pool.
type Projector struct {
	client       Client
	events       eventReader
	genericPartner string
	journal      string
	source       string // marketplace source tag, e.g. "amazon"
	cache        *serviceProductCache
}

// NewProjector wires an ERP client and the event log the projector reads
// orders back from. genericPartner and journal come from the immutable
// process-wide ERP identifier configuration.
func NewProjector(client Client, events eventReader, source, genericPartner, journal string) *Projector {
	return &Projector{
		client:         client,
		events:         events,
		genericPartner: genericPartner,
		journal:        journal,
		source:         source,
		cache:          newServiceProductCache(),
	}
}

func isPlaceholderSKU(sku, orderID string) bool {
	return sku == fmt.Sprintf("AMZ-%s", orderID)
}

// ProcessDelivery runs the full per-message algorithm and returns whether
// the message should be acknowledged. A false return (with a non-nil err)
// means the message is left unacknowledged for redelivery.
func (p *Projector) ProcessDelivery(ctx context.Context, msg handoff.ParityVerified) (bool, error) {
	orderID := msg.OrderID

	// Step 1: idempotency gate.
	existing, err := p.client.FindInvoiceByOrigin(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("erp: find_invoice_by_origin: %w", err)
	}
	if existing != nil && existing.Posted {
		logging.Debug("invoice already posted, skipping", logging.OrderID(orderID))
		return true, nil
	}

	order, err := p.loadOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if order.Breakdown == nil {
		return false, fmt.Errorf("erp: order %s has no financial breakdown", orderID)
	}

	// Step 2: sale order lines, indexed by sku only; no product-id index
	// is built, so a revenue line links to a sale line only by its SKU.
	saleLines, err := p.client.LoadSaleOrderLines(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("erp: load_sale_order_lines: %w", err)
	}
	bySKU := make(map[string]int64, len(saleLines))
	for _, l := range saleLines {
		if l.SKU != "" {
			bySKU[l.SKU] = l.SaleLineID
		}
	}

	// Step 3: partner resolution.
	logging.Debug("erp: resolving partner", logging.OrderID(orderID), logging.BuyerEmail(order.BuyerEmail))
	partnerID, err := p.client.ResolvePartnerByEmail(ctx, order.BuyerEmail)
	if err != nil {
		return false, fmt.Errorf("erp: resolve_partner_by_email: %w", err)
	}
	if partnerID == "" {
		logging.Warn("erp: no partner found for buyer email, falling back to generic partner",
			logging.OrderID(orderID), logging.BuyerEmail(order.BuyerEmail))
		partnerID = p.genericPartner
	}
	if partnerID == "" {
		return false, fmt.Errorf("erp: no partner resolved and no generic partner configured")
	}

	// Step 4: build invoice lines.
	lines, err := p.buildLines(ctx, order, orderID, bySKU)
	if err != nil {
		return false, err
	}
	if len(lines) == 0 {
		return false, fmt.Errorf("erp: invoice total is zero, rejecting order %s", orderID)
	}

	invoiceDate := invoiceDateFor(order)

	draft := DraftInvoice{
		PartnerID:   partnerID,
		Journal:     p.journal,
		Reference:   orderID,
		Origin:      orderID,
		InvoiceDate: invoiceDate,
		Lines:       lines,
	}

	var invoiceID string
	if existing != nil {
		// Draft already created by a prior attempt; re-use it rather than
		// double-creating.
		invoiceID = existing.InvoiceID
	} else {
		invoiceID, err = p.client.CreateInvoice(ctx, draft)
		if err != nil {
			return false, fmt.Errorf("erp: create_invoice: %w", err)
		}
	}

	// Step 6: post.
	if err := p.client.PostInvoice(ctx, invoiceID); err != nil {
		return false, fmt.Errorf("erp: post_invoice: %w", err)
	}

	// Step 7: validation pass — no two storable products share a product_id.
	posted, err := p.client.ValidateInvoiceLines(ctx, invoiceID)
	if err != nil {
		return false, fmt.Errorf("erp: validate_invoice_lines: %w", err)
	}
	if err := assertNoProductCollision(posted); err != nil {
		return false, err
	}

	logging.Info("invoice posted", logging.OrderID(orderID), logging.String("invoice_id", invoiceID))
	return true, nil
}

func (p *Projector) loadOrder(ctx context.Context, orderID string) (*orderagg.Order, error) {
	events, err := p.events.EventsFor(ctx, orderID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("erp: load events for %s: %w", orderID, err)
	}
	order, err := orderagg.Rehydrate(events)
	if err != nil {
		return nil, fmt.Errorf("erp: rehydrate %s: %w", orderID, err)
	}
	if order == nil {
		return nil, fmt.Errorf("erp: no order found for %s", orderID)
	}
	return order, nil
}

func (p *Projector) buildLines(ctx context.Context, order *orderagg.Order, orderID string, bySKU map[string]int64) ([]InvoiceLine, error) {
	var lines []InvoiceLine

	// Product revenue lines: one per unique SKU.
	perSKU := order.Breakdown.PerSKU()
	quantities := make(map[string]int64)
	for _, item := range order.Items {
		quantities[item.SKU] += int64(item.Quantity)
	}

	for sku, totals := range perSKU {
		qty := quantities[sku]
		if qty == 0 {
			qty = 1
		}
		if isPlaceholderSKU(sku, orderID) {
			logging.Warn("erp: placeholder SKU, skipping product lookup", logging.OrderID(orderID), logging.SKU(sku))
			continue
		}

		productID, err := p.client.ResolveProductBySKU(ctx, sku)
		if err != nil {
			return nil, fmt.Errorf("erp: resolve_product_by_sku(%s): %w", sku, err)
		}
		if productID == 0 {
			logging.Warn("erp: product not found for sku, skipping line", logging.OrderID(orderID), logging.SKU(sku))
			continue
		}

		priceUnit := totals.Principal.Div(qty)
		saleLineIDs := []int64(nil)
		if id, ok := bySKU[sku]; ok {
			saleLineIDs = []int64{id}
		} else {
			logging.Warn("erp: no sale-order line match for sku", logging.OrderID(orderID), logging.SKU(sku))
		}

		lines = append(lines, InvoiceLine{
			ProductID:   productID,
			Description: fmt.Sprintf("Revenue for %s", sku),
			Quantity:    float64(qty),
			PriceUnit:   priceUnit,
			SaleLineIDs: saleLineIDs,
		})
	}

	// Fee/charge/promo lines: aggregated by fee code across the whole order.
	byCode := aggregateByCode(order.Breakdown.Lines)

	for code, amount := range byCode {
		name := strings.ReplaceAll(code, "_", " ")
		productID, err := p.cache.get(ctx, p.client, p.source, code, name)
		if err != nil {
			return nil, err
		}
		lines = append(lines, InvoiceLine{
			ProductID:    productID,
			Description:  name,
			Quantity:     1,
			PriceUnit:    amount,
			IsServiceFee: true,
		})
	}

	return lines, nil
}

func aggregateByCode(fin []decomposer.FinancialLine) map[string]money.Money {
	byCode := make(map[string]money.Money)
	for _, line := range fin {
		code := line.FeeKind
		if code == "" {
			code = string(line.LineType)
		}
		if existing, ok := byCode[code]; ok {
			byCode[code] = existing.Add(line.Amount)
		} else {
			byCode[code] = line.Amount
		}
	}
	return byCode
}

func invoiceDateFor(order *orderagg.Order) string {
	if order.Breakdown != nil && !order.Breakdown.PostedDate.IsZero() {
		return order.Breakdown.PostedDate.Format(time.RFC3339)
	}
	if !order.PurchaseDate.IsZero() {
		logging.Warn("erp: falling back to order purchase date for invoice date", logging.OrderID(string(order.OrderID)))
		return order.PurchaseDate.Format(time.RFC3339)
	}
	logging.Warn("erp: no posted date or purchase date, falling back to now", logging.OrderID(string(order.OrderID)))
	return time.Now().UTC().Format(time.RFC3339)
}

func assertNoProductCollision(lines []InvoiceLine) error {
	seen := make(map[int64]bool)
	for _, l := range lines {
		if l.IsServiceFee {
			continue // service products may repeat
		}
		if seen[l.ProductID] {
			return fmt.Errorf("erp: duplicate storable product line for product_id %d", l.ProductID)
		}
		seen[l.ProductID] = true
	}
	return nil
}
