package erp

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/konozy/ordersync/money"
)

// RestyClient implements Client against a JSON HTTP ERP gateway using
// resty. Each projector worker owns one RestyClient; resty's own retry
// policy (up to 3 retries after the first attempt, with backoff) covers
// transient transport failures before the error reaches the projector.
type RestyClient struct {
	http    *resty.Client
	baseURL string
}

// NewRestyClient builds a retrying resty client against baseURL,
// authenticated with apiKey.
func NewRestyClient(baseURL, apiKey string) *RestyClient {
	http := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetRetryCount(3).
		SetRetryWaitTime(1_000_000_000). // 1s initial wait; resty's backoff grows it up to its default max wait
		SetTimeout(15_000_000_000)       // 15s

	return &RestyClient{http: http, baseURL: baseURL}
}

type invoiceDTO struct {
	InvoiceID string `json:"invoice_id"`
	Posted    bool   `json:"posted"`
}

func (c *RestyClient) FindInvoiceByOrigin(ctx context.Context, orderID string) (*Invoice, error) {
	var dto invoiceDTO
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("origin", orderID).
		SetResult(&dto).
		Get("/invoices/by-origin")
	if err != nil {
		return nil, fmt.Errorf("erp: find_invoice_by_origin: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("erp: find_invoice_by_origin: status %d", resp.StatusCode())
	}
	return &Invoice{InvoiceID: dto.InvoiceID, Posted: dto.Posted}, nil
}

func (c *RestyClient) LoadSaleOrderLines(ctx context.Context, orderID string) ([]SaleOrderLine, error) {
	var lines []SaleOrderLine
	resp, err := c.http.R().SetContext(ctx).
		SetResult(&lines).
		Get(fmt.Sprintf("/sale-orders/%s/lines", orderID))
	if err != nil {
		return nil, fmt.Errorf("erp: load_sale_order_lines: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("erp: load_sale_order_lines: status %d", resp.StatusCode())
	}
	return lines, nil
}

func (c *RestyClient) ResolvePartnerByEmail(ctx context.Context, email string) (string, error) {
	var body struct {
		PartnerID string `json:"partner_id"`
	}
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("email", email).
		SetResult(&body).
		Get("/partners/by-email")
	if err != nil {
		return "", fmt.Errorf("erp: resolve_partner_by_email: %w", err)
	}
	if resp.StatusCode() == 404 {
		return "", nil
	}
	if resp.IsError() {
		return "", fmt.Errorf("erp: resolve_partner_by_email: status %d", resp.StatusCode())
	}
	return body.PartnerID, nil
}

func (c *RestyClient) ResolveProductBySKU(ctx context.Context, sku string) (int64, error) {
	var body struct {
		ProductID int64 `json:"product_id"`
	}
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("sku", sku).
		SetResult(&body).
		Get("/products/by-sku")
	if err != nil {
		return 0, fmt.Errorf("erp: resolve_product_by_sku: %w", err)
	}
	if resp.StatusCode() == 404 {
		return 0, nil
	}
	if resp.IsError() {
		return 0, fmt.Errorf("erp: resolve_product_by_sku: status %d", resp.StatusCode())
	}
	return body.ProductID, nil
}

func (c *RestyClient) GetOrCreateServiceProduct(ctx context.Context, source, code, name string) (int64, error) {
	var body struct {
		ProductID int64 `json:"product_id"`
	}
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]string{"source": source, "code": code, "name": name}).
		SetResult(&body).
		Post("/service-products/get-or-create")
	if err != nil {
		return 0, fmt.Errorf("erp: get_or_create_service_product: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("erp: get_or_create_service_product: status %d", resp.StatusCode())
	}
	return body.ProductID, nil
}

type invoiceLineWire struct {
	ProductID   int64    `json:"product_id"`
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	PriceUnit   string   `json:"price_unit"`
	Currency    string   `json:"currency"`
	SaleLineIDs []int64  `json:"sale_line_ids,omitempty"`
	AccountID   string   `json:"account_id,omitempty"`
	AnalyticID  string   `json:"analytic_account_id,omitempty"`
}

func (c *RestyClient) CreateInvoice(ctx context.Context, draft DraftInvoice) (string, error) {
	lines := make([]invoiceLineWire, 0, len(draft.Lines))
	for _, l := range draft.Lines {
		lines = append(lines, invoiceLineWire{
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			PriceUnit:   l.PriceUnit.Amount().String(),
			Currency:    l.PriceUnit.Currency(),
			SaleLineIDs: l.SaleLineIDs,
			AccountID:   l.AccountID,
			AnalyticID:  l.AnalyticID,
		})
	}

	var body struct {
		InvoiceID string `json:"invoice_id"`
	}
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]interface{}{
			"partner_id":   draft.PartnerID,
			"journal":      draft.Journal,
			"reference":    draft.Reference,
			"origin":       draft.Origin,
			"invoice_date": draft.InvoiceDate,
			"move_type":    "out_invoice",
			"lines":        lines,
		}).
		SetResult(&body).
		Post("/invoices")
	if err != nil {
		return "", fmt.Errorf("erp: create_invoice: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("erp: create_invoice: status %d", resp.StatusCode())
	}
	return body.InvoiceID, nil
}

func (c *RestyClient) PostInvoice(ctx context.Context, invoiceID string) error {
	resp, err := c.http.R().SetContext(ctx).Post(fmt.Sprintf("/invoices/%s/post", invoiceID))
	if err != nil {
		return fmt.Errorf("erp: post_invoice: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("erp: post_invoice: status %d", resp.StatusCode())
	}
	return nil
}

func (c *RestyClient) FindReimbursementEntry(ctx context.Context, orderID, eventType string) (string, error) {
	var body struct {
		EntryID string `json:"entry_id"`
	}
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{"order_id": orderID, "event_type": eventType}).
		SetResult(&body).
		Get("/reimbursements/by-origin")
	if err != nil {
		return "", fmt.Errorf("erp: find_reimbursement_entry: %w", err)
	}
	if resp.StatusCode() == 404 {
		return "", nil
	}
	if resp.IsError() {
		return "", fmt.Errorf("erp: find_reimbursement_entry: status %d", resp.StatusCode())
	}
	return body.EntryID, nil
}

func (c *RestyClient) CreateReimbursementEntry(ctx context.Context, orderID, eventType string, amount money.Money) (string, error) {
	var body struct {
		EntryID string `json:"entry_id"`
	}
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]string{
			"order_id":   orderID,
			"event_type": eventType,
			"amount":     amount.Amount().String(),
			"currency":   amount.Currency(),
		}).
		SetResult(&body).
		Post("/reimbursements")
	if err != nil {
		return "", fmt.Errorf("erp: create_reimbursement_entry: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("erp: create_reimbursement_entry: status %d", resp.StatusCode())
	}
	return body.EntryID, nil
}

func (c *RestyClient) ValidateInvoiceLines(ctx context.Context, invoiceID string) ([]InvoiceLine, error) {
	var wire []invoiceLineWire
	resp, err := c.http.R().SetContext(ctx).
		SetResult(&wire).
		Get(fmt.Sprintf("/invoices/%s/lines", invoiceID))
	if err != nil {
		return nil, fmt.Errorf("erp: validate_invoice_lines: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("erp: validate_invoice_lines: status %d", resp.StatusCode())
	}

	lines := make([]InvoiceLine, 0, len(wire))
	for _, w := range wire {
		amt, err := money.New(w.PriceUnit, w.Currency)
		if err != nil {
			return nil, fmt.Errorf("erp: validate_invoice_lines: %w", err)
		}
		lines = append(lines, InvoiceLine{
			ProductID:   w.ProductID,
			Description: w.Description,
			Quantity:    w.Quantity,
			PriceUnit:   amt,
			SaleLineIDs: w.SaleLineIDs,
			AccountID:   w.AccountID,
			AnalyticID:  w.AnalyticID,
		})
	}
	return lines, nil
}
