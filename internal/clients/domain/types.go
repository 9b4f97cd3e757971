// Package domain holds the client management context's core types.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ValueTier classifies how strategically important a client is. Enterprise
// clients get escalated opportunity priorities.
type ValueTier string

const (
	TierStandard   ValueTier = "standard"
	TierEnterprise ValueTier = "enterprise"
)

// Client is a managed-services customer.
type Client struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CompanyName string
	ContactName string
	Email       string
	Phone       string // E.164
	Industry    string
	CompanySize string
	Territory   string
	ValueTier   ValueTier
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
