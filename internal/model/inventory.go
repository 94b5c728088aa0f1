package model

// InventoryRecord represents an FBA inventory summary reconciled into the
// local store, keyed by (ASIN, seller SKU, condition).
type InventoryRecord struct {
	ASIN           string `json:"asin"`
	FNSKU          string `json:"fnsku,omitempty"`
	SellerSKU      string `json:"seller_sku"`
	Condition      string `json:"condition"`
	TotalQty       int    `json:"total_qty"`
	FulfillableQty int    `json:"fulfillable_qty"`
	InboundQty     int    `json:"inbound_qty"`
}
