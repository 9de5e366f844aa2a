package entity

import "time"

// OrderStatus estado de un pedido.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderFulfilled, OrderCancelled},
	OrderFulfilled: {OrderShipped, OrderCancelled},
	OrderShipped:   {OrderDelivered},
	OrderDelivered: nil,
	OrderCancelled: nil,
}

// CanTransitionTo indica si el pedido puede pasar a next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Order pedido (tienda física o Shopify).
type Order struct {
	ID                   string
	OrganizationID       string
	CustomerID           string
	ShopifyOrderID       string
	Status               OrderStatus
	Notes                string
	ShopifyFulfillmentID string
	CreatedBy            string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Items                []OrderItem
}

// OrderItem una unidad demandada. ShipmentItemID es nil mientras el despacho esté diferido.
type OrderItem struct {
	ID             string
	OrderID        string
	ProductID      string
	Quantity       int
	ShipmentItemID *string
}

// UnboundItems devuelve los ítems aún sin unidad física asignada.
func (o *Order) UnboundItems() []OrderItem {
	var out []OrderItem
	for _, it := range o.Items {
		if it.ShipmentItemID == nil {
			out = append(out, it)
		}
	}
	return out
}
