package model

import "time"

// Order represents an Amazon order reconciled into the local store.
// The Amazon order id is the natural key; syncs upsert on it.
type Order struct {
	AmazonOrderID    string    `json:"amazon_order_id"`
	PurchaseDate     time.Time `json:"purchase_date"`
	LastUpdateDate   time.Time `json:"last_update_date"`
	OrderStatus      string    `json:"order_status"`
	OrderTotal       float64   `json:"order_total"`
	MarketplaceID    string    `json:"marketplace_id"`
	BuyerEmail       string    `json:"buyer_email,omitempty"`
	ShipServiceLevel string    `json:"ship_service_level,omitempty"`
}

// OrderItem represents a line item of an order, keyed by (order, seller SKU).
type OrderItem struct {
	AmazonOrderID   string  `json:"amazon_order_id"`
	ASIN            string  `json:"asin"`
	SellerSKU       string  `json:"seller_sku"`
	QuantityOrdered int     `json:"quantity_ordered"`
	ItemPrice       float64 `json:"item_price"`
	ItemTax         float64 `json:"item_tax"`
}
