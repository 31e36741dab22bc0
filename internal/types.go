package internal

import (
	"time"
)

// DiscoveredObjectRecord is one credential-bearing directory object found by
// a discovery scan.
type DiscoveredObjectRecord struct {
	TenantID     string    `db:"tenant_id"`
	AppID        string    `db:"app_id"`
	ObjectID     string    `db:"object_id"`
	DisplayName  string    `db:"display_name"`
	ObjectKind   string    `db:"object_kind"`
	DiscoveredAt time.Time `db:"discovered_at"`
}

// InventoryItemRecord is one logical certificate captured from an object's
// credential collection during an inventory run.
type InventoryItemRecord struct {
	TenantID      string    `db:"tenant_id"`
	AppID         string    `db:"app_id"`
	ObjectKind    string    `db:"object_kind"`
	Alias         string    `db:"alias"`
	Thumbprint    string    `db:"thumbprint"`
	HasPrivateKey bool      `db:"has_private_key"`
	NotBefore     time.Time `db:"not_before"`
	NotAfter      time.Time `db:"not_after"`
	PEM           string    `db:"pem"`
	CapturedAt    time.Time `db:"captured_at"`
}
