package repository

import "context"

// Repos conjunto de repositorios atados a una misma transacción.
type Repos struct {
	Products   ProductRepository
	Units      UnitRepository
	Shipments  ShipmentRepository
	Assemblies AssemblyRepository
	Customers  CustomerRepository
	Orders     OrderRepository
	Deliveries DeliveryRepository
	Shopify    ShopifyRepository
	Portal     PortalRepository
}

// TxRunner ejecuta fn dentro de una transacción de BD; Commit si fn devuelve nil, Rollback en otro caso.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}
