package decomposer

// RawPayload is the untyped nested structure returned by the marketplace
// financial-events API: one order's shipment groups, each carrying
// per-item charge, fee and promotion lists, in document order. OrderID and
// BuyerEmail travel with the payload so a batch driver can dispatch each
// payload to the orchestrator without a side-channel lookup.
type RawPayload struct {
	OrderID        string
	BuyerEmail     string
	ShipmentGroups []RawShipmentGroup
}

// RawShipmentGroup is one shipment's worth of financial events.
type RawShipmentGroup struct {
	// PostedDate is ISO-8601. The breakdown's PostedDate is the earliest
	// one across all shipment groups that carry one; see Decompose.
	PostedDate string
	Items      []RawItem
}

// RawItem is one item's charges, fees and promotions within a shipment
// group. The same SKU may appear in more than one shipment group; amounts
// accumulate across occurrences.
type RawItem struct {
	SKU        string
	Charges    []RawAmount // includes the "Principal" kind
	Fees       []RawAmount
	Promotions []RawAmount

	// ExpectedTotal is the upstream-reported settlement total for this
	// item row, independent of the line-level itemization above. When
	// present it is the ground truth the Balance invariant checks our
	// itemized sum against — this is what catches a dropped or
	// misclassified fee that the line-level sum alone could never
	// detect, since that sum is definitionally self-consistent.
	ExpectedTotal string
}

// RawAmount is one line of an item's charge/fee/promotion list.
type RawAmount struct {
	Kind        string // "Principal" for the principal charge, else a fee/charge kind
	Amount      string // decimal string, sign as given by the upstream payload
	Currency    string
	Description string
}
