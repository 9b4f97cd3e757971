package notification

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/events"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/logger"
)

type fakeSender struct {
	mu         sync.Mutex
	leadMails  []string // recipient addresses
	alertMails []string
}

func (f *fakeSender) SendLeadAssignedEmail(_ context.Context, toEmail, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leadMails = append(f.leadMails, toEmail)
	return nil
}

func (f *fakeSender) SendOpportunityAlertEmail(_ context.Context, toEmail, _, _ string, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alertMails = append(f.alertMails, toEmail)
	return nil
}

type cfg struct{ alert string }

func (c cfg) GetSalesAlertEmail() string { return c.alert }

func TestLeadAssignedTriggersAgentEmail(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	sender := &fakeSender{}
	NewModule(bus, sender, cfg{alert: "sales@example.com"}, log)

	err := bus.PublishSync(context.Background(), events.LeadAssigned{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      uuid.New(),
		AgentID:     uuid.New(),
		AgentName:   "ana",
		AgentEmail:  "ana@example.com",
		CompanyName: "Acme",
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if len(sender.leadMails) != 1 || sender.leadMails[0] != "ana@example.com" {
		t.Fatalf("expected email to agent, got %v", sender.leadMails)
	}
}

func TestLeadAssignedWithoutEmailIsSkipped(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	sender := &fakeSender{}
	NewModule(bus, sender, cfg{}, log)

	err := bus.PublishSync(context.Background(), events.LeadAssigned{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		AgentID:   uuid.New(),
		AgentName: "ana",
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if len(sender.leadMails) != 0 {
		t.Fatalf("no email expected, got %v", sender.leadMails)
	}
}

func TestOpportunityAlertGoesToSalesInbox(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	sender := &fakeSender{}
	NewModule(bus, sender, cfg{alert: "sales@example.com"}, log)

	err := bus.PublishSync(context.Background(), events.OpportunityIdentified{
		BaseEvent:     events.NewBaseEvent(),
		OpportunityID: uuid.New(),
		Title:         "Backup Strategy Opportunity",
		Priority:      "high",
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if len(sender.alertMails) != 1 || sender.alertMails[0] != "sales@example.com" {
		t.Fatalf("expected alert to sales inbox, got %v", sender.alertMails)
	}

	// Without a configured inbox the handler is a no-op.
	sender2 := &fakeSender{}
	bus2 := events.NewInMemoryBus(log)
	NewModule(bus2, sender2, cfg{}, log)
	_ = bus2.PublishSync(context.Background(), events.OpportunityIdentified{BaseEvent: events.NewBaseEvent()})
	if len(sender2.alertMails) != 0 {
		t.Fatalf("no alert expected, got %v", sender2.alertMails)
	}
}
