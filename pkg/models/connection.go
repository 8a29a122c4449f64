package models

import "time"

// ConnectionStatus is the lifecycle state of a linked institution.
type ConnectionStatus string

const (
	ConnectionActive  ConnectionStatus = "active"
	ConnectionRevoked ConnectionStatus = "revoked"
	ConnectionError   ConnectionStatus = "error"
)

// Connection represents one linked institution session with the
// aggregation provider. Exactly one Connection exists per provider item.
type Connection struct {
	ID              int64            `json:"id"`
	ItemID          string           `json:"itemId"`
	AccessToken     string           `json:"-"`
	InstitutionID   string           `json:"institutionId"`
	InstitutionName string           `json:"institutionName"`
	Status          ConnectionStatus `json:"status"`
	// NextCursor is the provider's opaque change-stream position. Empty
	// means the connection has never completed a sync; it only advances
	// after a full page sequence has been applied.
	NextCursor   string     `json:"nextCursor"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}
