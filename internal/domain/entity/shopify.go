package entity

import "time"

// SyncStatus resultado de una sincronización con Shopify.
type SyncStatus string

const (
	SyncSynced  SyncStatus = "synced"
	SyncSkipped SyncStatus = "skipped"
	SyncError   SyncStatus = "error"
)

// ShopifySettings credenciales y parámetros de la tienda Shopify de una organización.
type ShopifySettings struct {
	OrganizationID string
	Enabled        bool
	ShopDomain     string
	AccessToken    string
	LocationID     string
	APIVersion     string
	UpdatedAt      time.Time
}

// Configured indica si hay datos suficientes para llamar a la API.
func (s *ShopifySettings) Configured() bool {
	return s != nil && s.Enabled && s.ShopDomain != "" && s.AccessToken != ""
}

// ShopifyProductMapping relación producto local ↔ producto/variante Shopify.
type ShopifyProductMapping struct {
	ID                     string
	OrganizationID         string
	ProductID              string
	ShopifyProductID       string
	ShopifyVariantID       string
	ShopifyInventoryItemID string
	LastSyncedAt           *time.Time
	LastSyncStatus         SyncStatus
	LastSyncError          string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
