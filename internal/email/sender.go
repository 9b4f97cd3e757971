// Package email delivers transactional notifications over SMTP.
package email

import (
	"context"

	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/logger"
)

// Sender delivers the notification emails the platform produces.
type Sender interface {
	// SendLeadAssignedEmail notifies an agent that a lead landed on their desk.
	SendLeadAssignedEmail(ctx context.Context, toEmail, agentName, companyName, ruleName string) error
	// SendOpportunityAlertEmail notifies the sales inbox of a newly identified opportunity.
	SendOpportunityAlertEmail(ctx context.Context, toEmail, title, priority string, estimatedValue float64) error
}

// NoopSender is used when SMTP is not configured. It logs instead of sending
// so local environments still show what would have gone out.
type NoopSender struct {
	Log *logger.Logger
}

func (n *NoopSender) SendLeadAssignedEmail(_ context.Context, toEmail, agentName, companyName, _ string) error {
	n.Log.Info("email disabled, skipping lead assignment notification",
		"to", toEmail, "agent", agentName, "company", companyName)
	return nil
}

func (n *NoopSender) SendOpportunityAlertEmail(_ context.Context, toEmail, title, priority string, _ float64) error {
	n.Log.Info("email disabled, skipping opportunity alert",
		"to", toEmail, "title", title, "priority", priority)
	return nil
}
