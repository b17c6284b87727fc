package erp

import (
	"context"
	"sync"

	"github.com/konozy/ordersync/money"
)

// fakeClient is an in-memory Client double that tracks how many times
// each mutating call happens, so tests can assert idempotent behavior
// without a live ERP.
type fakeClient struct {
	mu sync.Mutex

	invoices         map[string]*Invoice // keyed by origin (order_id)
	saleLines        map[string][]SaleOrderLine
	partnerByEmail   map[string]string
	productBySKU     map[string]int64
	serviceProducts  map[string]int64
	reimbursements   map[string]string // key: orderID+"/"+eventType

	createInvoiceCalls int
	postInvoiceCalls   int
	createReimbursementCalls int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		invoices:        make(map[string]*Invoice),
		saleLines:       make(map[string][]SaleOrderLine),
		partnerByEmail:  make(map[string]string),
		productBySKU:    make(map[string]int64),
		serviceProducts: make(map[string]int64),
		reimbursements:  make(map[string]string),
	}
}

func (f *fakeClient) FindInvoiceByOrigin(ctx context.Context, orderID string) (*Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invoices[orderID], nil
}

func (f *fakeClient) LoadSaleOrderLines(ctx context.Context, orderID string) ([]SaleOrderLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saleLines[orderID], nil
}

func (f *fakeClient) ResolvePartnerByEmail(ctx context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.partnerByEmail[email], nil
}

func (f *fakeClient) ResolveProductBySKU(ctx context.Context, sku string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.productBySKU[sku], nil
}

func (f *fakeClient) GetOrCreateServiceProduct(ctx context.Context, source, code, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := source + "/" + code
	if id, ok := f.serviceProducts[key]; ok {
		return id, nil
	}
	id := int64(len(f.serviceProducts) + 1000)
	f.serviceProducts[key] = id
	return id, nil
}

func (f *fakeClient) CreateInvoice(ctx context.Context, draft DraftInvoice) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createInvoiceCalls++
	id := draft.Origin + "-inv"
	f.invoices[draft.Origin] = &Invoice{InvoiceID: id, Posted: false}
	return id, nil
}

func (f *fakeClient) PostInvoice(ctx context.Context, invoiceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postInvoiceCalls++
	for origin, inv := range f.invoices {
		if inv.InvoiceID == invoiceID {
			f.invoices[origin].Posted = true
		}
	}
	return nil
}

func (f *fakeClient) ValidateInvoiceLines(ctx context.Context, invoiceID string) ([]InvoiceLine, error) {
	return nil, nil
}

func (f *fakeClient) FindReimbursementEntry(ctx context.Context, orderID, eventType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reimbursements[orderID+"/"+eventType], nil
}

func (f *fakeClient) CreateReimbursementEntry(ctx context.Context, orderID, eventType string, amount money.Money) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createReimbursementCalls++
	id := orderID + "-reimb"
	f.reimbursements[orderID+"/"+eventType] = id
	return id, nil
}

var _ Client = (*fakeClient)(nil)
