// Package transport defines the request and response shapes of the
// distribution HTTP API.
package transport

import (
	"github.com/google/uuid"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/domain"
)

// RuleResponse is a distribution rule as exposed over HTTP.
type RuleResponse struct {
	ID         uuid.UUID                 `json:"id"`
	RuleName   string                    `json:"ruleName"`
	RuleType   domain.RuleType           `json:"ruleType"`
	IsActive   bool                      `json:"isActive"`
	Priority   int                       `json:"priority"`
	Conditions domain.RuleConditions     `json:"conditions"`
	Settings   domain.AssignmentSettings `json:"assignmentSettings"`
}

// FromRule maps a domain rule to its API form.
func FromRule(r domain.DistributionRule) RuleResponse {
	return RuleResponse{
		ID:         r.ID,
		RuleName:   r.RuleName,
		RuleType:   r.RuleType,
		IsActive:   r.IsActive,
		Priority:   r.Priority,
		Conditions: r.Conditions,
		Settings:   r.Settings,
	}
}

// FromRules maps a slice of rules, returning an empty slice rather than nil
// so the JSON is always an array.
func FromRules(rules []domain.DistributionRule) []RuleResponse {
	out := make([]RuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, FromRule(r))
	}
	return out
}
