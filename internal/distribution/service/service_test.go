package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/domain"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/engine"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/events"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/tenant"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/lock"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/logger"
)

type fakeRepo struct {
	mu          sync.Mutex
	leads       map[uuid.UUID]domain.Lead
	rules       []domain.DistributionRule
	agents      []domain.Agent
	workloads   map[uuid.UUID]int
	lastAssign  map[uuid.UUID]time.Time
	assignments []uuid.UUID // lead IDs updated, in order
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:      map[uuid.UUID]domain.Lead{},
		workloads:  map[uuid.UUID]int{},
		lastAssign: map[uuid.UUID]time.Time{},
	}
}

func (f *fakeRepo) GetLead(_ context.Context, _, leadID uuid.UUID) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leads[leadID], nil
}

func (f *fakeRepo) ListActiveRules(context.Context, uuid.UUID) ([]domain.DistributionRule, error) {
	return f.rules, nil
}

func (f *fakeRepo) ListActiveAgents(context.Context, uuid.UUID) ([]domain.Agent, error) {
	return f.agents, nil
}

func (f *fakeRepo) CountOpenLeadsByAgent(context.Context, uuid.UUID) (map[uuid.UUID]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]int, len(f.workloads))
	for k, v := range f.workloads {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRepo) LastAssignmentTimes(context.Context, uuid.UUID) (map[uuid.UUID]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]time.Time, len(f.lastAssign))
	for k, v := range f.lastAssign {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRepo) UpdateLeadAssignment(_ context.Context, _, leadID, agentID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.leads[leadID]
	l.AssignedAgentID = &agentID
	l.AssignedAt = &at
	f.leads[leadID] = l
	f.workloads[agentID]++
	f.lastAssign[agentID] = at
	f.assignments = append(f.assignments, leadID)
	return nil
}

func (f *fakeRepo) ListStaleLeads(_ context.Context, _ uuid.UUID, cutoff time.Time) ([]domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Lead
	for _, l := range f.leads {
		if l.AssignedAgentID != nil && l.AssignedAt != nil && l.AssignedAt.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListTenantsWithStaleLeads(context.Context, time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.Publish(context.Background(), e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

func newTestLocker(t *testing.T) *lock.Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return lock.New(client, time.Minute)
}

func newTestService(t *testing.T, repo *fakeRepo, bus *recordingBus) *Service {
	t.Helper()
	return New(repo, engine.New(nil), newTestLocker(t), bus, logger.New("development"), 7*24*time.Hour)
}

func TestAssignLeadPersistsAndPublishes(t *testing.T) {
	tenantID := uuid.New()
	agent := domain.Agent{ID: uuid.New(), Name: "ana", Email: "ana@example.com", Status: domain.AgentActive}
	lead := domain.Lead{ID: uuid.New(), TenantID: tenantID, CompanyName: "Acme", Status: domain.LeadNew}

	repo := newFakeRepo()
	repo.leads[lead.ID] = lead
	repo.agents = []domain.Agent{agent}
	repo.rules = []domain.DistributionRule{{
		ID: uuid.New(), RuleName: "rr", RuleType: domain.RuleRoundRobin, IsActive: true, Priority: 1,
	}}
	bus := &recordingBus{}

	svc := newTestService(t, repo, bus)
	res, err := svc.AssignLead(context.Background(), tenant.Context{TenantID: tenantID}, lead.ID)
	if err != nil {
		t.Fatalf("AssignLead: %v", err)
	}
	if res.AgentID == nil || *res.AgentID != agent.ID {
		t.Fatalf("expected assignment to %s, got %+v", agent.Name, res)
	}
	if res.RuleName != "rr" || res.Fallback {
		t.Fatalf("expected rule assignment, got %+v", res)
	}

	stored := repo.leads[lead.ID]
	if stored.AssignedAgentID == nil || *stored.AssignedAgentID != agent.ID {
		t.Fatal("assignment not persisted")
	}
	got := bus.names()
	if len(got) != 1 || got[0] != "distribution.lead.assigned" {
		t.Fatalf("expected one lead.assigned event, got %v", got)
	}
}

func TestAssignLeadNoAgentsLeavesPending(t *testing.T) {
	tenantID := uuid.New()
	lead := domain.Lead{ID: uuid.New(), TenantID: tenantID, Status: domain.LeadNew}

	repo := newFakeRepo()
	repo.leads[lead.ID] = lead
	bus := &recordingBus{}

	svc := newTestService(t, repo, bus)
	res, err := svc.AssignLead(context.Background(), tenant.Context{TenantID: tenantID}, lead.ID)
	if err != nil {
		t.Fatalf("pending assignment must not error: %v", err)
	}
	if !res.Pending || res.AgentID != nil {
		t.Fatalf("expected pending result, got %+v", res)
	}
	if len(bus.names()) != 0 {
		t.Fatal("no event should be published for a pending lead")
	}
}

func TestAssignLeadConflictsWhileLocked(t *testing.T) {
	tenantID := uuid.New()
	lead := domain.Lead{ID: uuid.New(), TenantID: tenantID}

	repo := newFakeRepo()
	repo.leads[lead.ID] = lead

	locker := newTestLocker(t)
	svc := New(repo, engine.New(nil), locker, &recordingBus{}, logger.New("development"), 0)

	lease, err := locker.Acquire(context.Background(), "distribution:assign:"+lead.ID.String())
	if err != nil {
		t.Fatalf("pre-acquire: %v", err)
	}
	defer lease.Release(context.Background())

	if _, err := svc.AssignLead(context.Background(), tenant.Context{TenantID: tenantID}, lead.ID); err == nil {
		t.Fatal("expected conflict while lead is locked")
	}
}

func TestReassignStaleLeadsSkipsSameAgent(t *testing.T) {
	tenantID := uuid.New()
	only := domain.Agent{ID: uuid.New(), Name: "only", Status: domain.AgentActive}

	staleAt := time.Now().Add(-30 * 24 * time.Hour)
	lead := domain.Lead{
		ID: uuid.New(), TenantID: tenantID, Status: domain.LeadContacted,
		AssignedAgentID: &only.ID, AssignedAt: &staleAt,
	}

	repo := newFakeRepo()
	repo.leads[lead.ID] = lead
	repo.agents = []domain.Agent{only}
	bus := &recordingBus{}

	svc := newTestService(t, repo, bus)
	res, err := svc.ReassignStaleLeads(context.Background(), tenant.System(tenantID))
	if err != nil {
		t.Fatalf("ReassignStaleLeads: %v", err)
	}
	if res.Examined != 1 || res.Reassigned != 0 {
		t.Fatalf("re-selecting the current agent must not count as reassignment: %+v", res)
	}
	if len(bus.names()) != 0 {
		t.Fatal("no event expected when nothing moved")
	}
}

func TestReassignStaleLeadsLeavesAdvancedDeals(t *testing.T) {
	tenantID := uuid.New()
	former := domain.Agent{ID: uuid.New(), Name: "former", Status: domain.AgentTerminated}
	current := domain.Agent{ID: uuid.New(), Name: "current", Status: domain.AgentActive}

	staleAt := time.Now().Add(-30 * 24 * time.Hour)
	deal := domain.Lead{
		ID: uuid.New(), TenantID: tenantID, Status: domain.LeadNegotiation,
		AssignedAgentID: &former.ID, AssignedAt: &staleAt,
	}

	repo := newFakeRepo()
	repo.leads[deal.ID] = deal
	repo.agents = []domain.Agent{current}
	bus := &recordingBus{}

	svc := newTestService(t, repo, bus)
	res, err := svc.ReassignStaleLeads(context.Background(), tenant.System(tenantID))
	if err != nil {
		t.Fatalf("ReassignStaleLeads: %v", err)
	}
	if res.Reassigned != 0 {
		t.Fatalf("a deal in negotiation must stay with its agent, got %+v", res)
	}
	stored := repo.leads[deal.ID]
	if stored.AssignedAgentID == nil || *stored.AssignedAgentID != former.ID {
		t.Fatal("negotiation lead must not change hands in the stale sweep")
	}
	if len(bus.names()) != 0 {
		t.Fatalf("no event expected, got %v", bus.names())
	}
}

func TestReassignStaleLeadsMovesToNewAgent(t *testing.T) {
	tenantID := uuid.New()
	former := domain.Agent{ID: uuid.New(), Name: "former", Status: domain.AgentTerminated}
	current := domain.Agent{ID: uuid.New(), Name: "current", Status: domain.AgentActive}

	staleAt := time.Now().Add(-30 * 24 * time.Hour)
	lead := domain.Lead{
		ID: uuid.New(), TenantID: tenantID, Status: domain.LeadContacted,
		AssignedAgentID: &former.ID, AssignedAt: &staleAt,
	}

	repo := newFakeRepo()
	repo.leads[lead.ID] = lead
	repo.agents = []domain.Agent{current}
	bus := &recordingBus{}

	svc := newTestService(t, repo, bus)
	res, err := svc.ReassignStaleLeads(context.Background(), tenant.System(tenantID))
	if err != nil {
		t.Fatalf("ReassignStaleLeads: %v", err)
	}
	if res.Reassigned != 1 {
		t.Fatalf("expected one reassignment, got %+v", res)
	}
	stored := repo.leads[lead.ID]
	if stored.AssignedAgentID == nil || *stored.AssignedAgentID != current.ID {
		t.Fatal("lead not moved to the active agent")
	}
	got := bus.names()
	if len(got) != 1 || got[0] != "distribution.lead.reassigned" {
		t.Fatalf("expected lead.reassigned event, got %v", got)
	}
}
