// Package transport defines the request and response shapes of the clients
// HTTP API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/clients/domain"
)

// CreateClientRequest onboards a new client.
type CreateClientRequest struct {
	CompanyName string `json:"companyName" validate:"required,max=200"`
	ContactName string `json:"contactName" validate:"max=200"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"max=30"`
	Industry    string `json:"industry" validate:"max=100"`
	CompanySize string `json:"companySize" validate:"omitempty,oneof=small medium large enterprise"`
	Territory   string `json:"territory" validate:"max=100"`
	ValueTier   string `json:"valueTier" validate:"omitempty,oneof=standard enterprise"`
}

// ClientResponse is a client as exposed over HTTP.
type ClientResponse struct {
	ID          uuid.UUID        `json:"id"`
	CompanyName string           `json:"companyName"`
	ContactName string           `json:"contactName,omitempty"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone,omitempty"`
	Industry    string           `json:"industry,omitempty"`
	CompanySize string           `json:"companySize,omitempty"`
	Territory   string           `json:"territory,omitempty"`
	ValueTier   domain.ValueTier `json:"valueTier"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// FromClient maps a domain client to its API form.
func FromClient(c domain.Client) ClientResponse {
	return ClientResponse{
		ID:          c.ID,
		CompanyName: c.CompanyName,
		ContactName: c.ContactName,
		Email:       c.Email,
		Phone:       c.Phone,
		Industry:    c.Industry,
		CompanySize: c.CompanySize,
		Territory:   c.Territory,
		ValueTier:   c.ValueTier,
		CreatedAt:   c.CreatedAt,
	}
}

// FromClients maps a slice, returning an empty slice rather than nil.
func FromClients(clients []domain.Client) []ClientResponse {
	out := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		out = append(out, FromClient(c))
	}
	return out
}
