package entity

import "time"

// Customer cliente final. Phone es la llave natural de deduplicación.
type Customer struct {
	ID             string
	OrganizationID string
	Name           string
	Email          string
	Phone          string
	Address        string
	City           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
