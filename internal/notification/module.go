// Package notification bridges domain events to outbound email. It has no
// HTTP surface; it subscribes on the event bus at startup and reacts to
// assignment and opportunity events.
package notification

import (
	"context"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/email"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/events"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/config"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/logger"
)

// Module wires event subscriptions to the email sender.
type Module struct {
	sender     email.Sender
	alertEmail string
	log        *logger.Logger
}

// NewModule creates the notification module and registers its event
// handlers on the bus.
func NewModule(bus events.Bus, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	m := &Module{
		sender:     sender,
		alertEmail: cfg.GetSalesAlertEmail(),
		log:        log,
	}

	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(m.onLeadAssigned))
	bus.Subscribe(events.OpportunityIdentified{}.EventName(), events.HandlerFunc(m.onOpportunityIdentified))
	return m
}

func (m *Module) onLeadAssigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadAssigned)
	if !ok {
		return nil
	}
	if e.AgentEmail == "" {
		m.log.Warn("lead assigned to agent without email", "agent_id", e.AgentID)
		return nil
	}
	if err := m.sender.SendLeadAssignedEmail(ctx, e.AgentEmail, e.AgentName, e.CompanyName, e.RuleName); err != nil {
		m.log.Error("failed to send lead assignment email",
			"lead_id", e.LeadID, "agent_id", e.AgentID, "error", err)
		return err
	}
	return nil
}

func (m *Module) onOpportunityIdentified(ctx context.Context, event events.Event) error {
	e, ok := event.(events.OpportunityIdentified)
	if !ok {
		return nil
	}
	if m.alertEmail == "" {
		return nil
	}
	if err := m.sender.SendOpportunityAlertEmail(ctx, m.alertEmail, e.Title, e.Priority, e.EstimatedValue); err != nil {
		m.log.Error("failed to send opportunity alert",
			"opportunity_id", e.OpportunityID, "error", err)
		return err
	}
	return nil
}
