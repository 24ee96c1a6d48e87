package models

import "github.com/google/uuid"

// EntityKind identifies which reconciled entity class a normalized
// name belongs to.
type EntityKind string

const (
	KindCustomer EntityKind = "customer"
	KindProduct  EntityKind = "product"
	KindAgent    EntityKind = "agent"
)

// EntityRef is a lightweight reference to a resolved entity.
type EntityRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
