package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/domain"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/events"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/tenant"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/lock"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/logger"
)

func fp(v float64) *float64 { return &v }

type fakeRepo struct {
	assessment    domain.Assessment
	template      domain.Template
	responses     []domain.Response
	opportunities map[uuid.UUID]domain.Opportunity
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{opportunities: map[uuid.UUID]domain.Opportunity{}}
}

func (f *fakeRepo) GetAssessment(context.Context, uuid.UUID, uuid.UUID) (domain.Assessment, error) {
	return f.assessment, nil
}

func (f *fakeRepo) GetTemplate(context.Context, uuid.UUID, uuid.UUID) (domain.Template, error) {
	return f.template, nil
}

func (f *fakeRepo) ListResponses(context.Context, uuid.UUID, uuid.UUID) ([]domain.Response, error) {
	return f.responses, nil
}

func (f *fakeRepo) FindRecentOpportunity(_ context.Context, _ uuid.UUID, clientID uuid.UUID, opportunityType string, since time.Time) (*domain.Opportunity, error) {
	for _, o := range f.opportunities {
		active := o.Status == domain.OpportunityIdentified ||
			o.Status == domain.OpportunityQualified ||
			o.Status == domain.OpportunityProposalSent
		if o.ClientID == clientID && o.OpportunityType == opportunityType && active && !o.CreatedAt.Before(since) {
			found := o
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) InsertOpportunity(_ context.Context, o domain.Opportunity) (domain.Opportunity, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	f.opportunities[o.ID] = o
	return o, nil
}

func (f *fakeRepo) GetOpportunity(_ context.Context, _ uuid.UUID, id uuid.UUID) (domain.Opportunity, error) {
	return f.opportunities[id], nil
}

func (f *fakeRepo) AssignOpportunity(_ context.Context, _ uuid.UUID, id, assignedTo uuid.UUID, dueDate *time.Time) error {
	o := f.opportunities[id]
	o.AssignedTo = &assignedTo
	o.DueDate = dueDate
	f.opportunities[id] = o
	return nil
}

func (f *fakeRepo) UpdateOpportunityStatus(_ context.Context, _ uuid.UUID, id uuid.UUID, status domain.OpportunityStatus, notes string) error {
	o := f.opportunities[id]
	o.Status = status
	if notes != "" {
		o.Notes = notes
	}
	f.opportunities[id] = o
	return nil
}

func (f *fakeRepo) ListOpportunitiesByAssessment(context.Context, uuid.UUID, uuid.UUID) ([]domain.Opportunity, error) {
	var out []domain.Opportunity
	for _, o := range f.opportunities {
		out = append(out, o)
	}
	return out, nil
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

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newTestLocker(t *testing.T) *lock.Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return lock.New(client, time.Minute)
}

func newTestService(t *testing.T, repo *fakeRepo, bus *recordingBus) *Service {
	t.Helper()
	return New(repo, newTestLocker(t), bus, logger.New("development"))
}

func lowScoreFixture() *fakeRepo {
	repo := newFakeRepo()
	repo.assessment = domain.Assessment{
		ID:          uuid.New(),
		TenantID:    uuid.New(),
		ClientID:    uuid.New(),
		TemplateID:  uuid.New(),
		Status:      domain.AssessmentCompleted,
		ClientValue: domain.ClientStandard,
	}
	repo.template = domain.Template{
		ID:       repo.assessment.TemplateID,
		MaxScore: fp(100),
		Rules: []domain.OpportunityRule{
			{Type: "backup_strategy", Threshold: fp(70), EstimatedValue: 5000},
		},
	}
	repo.responses = []domain.Response{{Score: 30, MaxPoints: 100}}
	return repo
}

func TestGenerateOpportunitiesCreatesFromLowScore(t *testing.T) {
	repo := lowScoreFixture()
	bus := &recordingBus{}
	svc := newTestService(t, repo, bus)

	res, err := svc.GenerateOpportunities(context.Background(), tenant.System(repo.assessment.TenantID), repo.assessment.ID)
	if err != nil {
		t.Fatalf("GenerateOpportunities: %v", err)
	}
	if len(res.Opportunities) != 1 {
		t.Fatalf("expected one opportunity, got %d (errors %v)", len(res.Opportunities), res.Errors)
	}

	opp := res.Opportunities[0]
	if opp.Title != "Backup Strategy" {
		t.Fatalf("default title = %q", opp.Title)
	}
	if opp.Status != domain.OpportunityIdentified {
		t.Fatalf("status = %s", opp.Status)
	}
	// 40 points below threshold escalates medium to high.
	if opp.Priority != domain.PriorityHigh {
		t.Fatalf("priority = %s, want high", opp.Priority)
	}
	if opp.ThresholdData.ActualScore != 30 || opp.ThresholdData.Threshold != 70 {
		t.Fatalf("threshold audit data = %+v", opp.ThresholdData)
	}
	if len(bus.events) != 1 || bus.events[0].EventName() != "assessments.opportunity.identified" {
		t.Fatalf("expected opportunity.identified event, got %v", bus.events)
	}
}

func TestGenerateOpportunitiesSuppressesRecentDuplicate(t *testing.T) {
	repo := lowScoreFixture()
	repo.opportunities[uuid.New()] = domain.Opportunity{
		ID:              uuid.New(),
		ClientID:        repo.assessment.ClientID,
		OpportunityType: "backup_strategy",
		Status:          domain.OpportunityIdentified,
		CreatedAt:       time.Now().Add(-10 * 24 * time.Hour),
	}
	svc := newTestService(t, repo, &recordingBus{})

	res, err := svc.GenerateOpportunities(context.Background(), tenant.System(repo.assessment.TenantID), repo.assessment.ID)
	if err != nil {
		t.Fatalf("GenerateOpportunities: %v", err)
	}
	if len(res.Opportunities) != 0 || res.DuplicatesPrevented != 1 {
		t.Fatalf("expected one suppressed duplicate, got %+v", res)
	}
}

func TestGenerateOpportunitiesHeldLockCountsAsDuplicate(t *testing.T) {
	repo := lowScoreFixture()
	locker := newTestLocker(t)
	bus := &recordingBus{}
	svc := New(repo, locker, bus, logger.New("development"))

	key := "opportunity:generate:" + repo.assessment.ClientID.String() + ":backup_strategy"
	lease, err := locker.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("pre-acquire: %v", err)
	}
	defer lease.Release(context.Background())

	res, err := svc.GenerateOpportunities(context.Background(), tenant.System(repo.assessment.TenantID), repo.assessment.ID)
	if err != nil {
		t.Fatalf("GenerateOpportunities: %v", err)
	}
	if len(res.Opportunities) != 0 || res.DuplicatesPrevented != 1 || len(res.Errors) != 0 {
		t.Fatalf("a held generation lock must suppress, not fail: %+v", res)
	}
	if len(repo.opportunities) != 0 {
		t.Fatal("no opportunity row may be created while the pair is locked")
	}
	if len(bus.events) != 0 {
		t.Fatalf("no event expected, got %v", bus.events)
	}
}

func TestGenerateOpportunitiesAllowsStaleDuplicate(t *testing.T) {
	repo := lowScoreFixture()
	repo.opportunities[uuid.New()] = domain.Opportunity{
		ID:              uuid.New(),
		ClientID:        repo.assessment.ClientID,
		OpportunityType: "backup_strategy",
		Status:          domain.OpportunityIdentified,
		CreatedAt:       time.Now().Add(-45 * 24 * time.Hour),
	}
	svc := newTestService(t, repo, &recordingBus{})

	res, err := svc.GenerateOpportunities(context.Background(), tenant.System(repo.assessment.TenantID), repo.assessment.ID)
	if err != nil {
		t.Fatalf("GenerateOpportunities: %v", err)
	}
	if len(res.Opportunities) != 1 || res.DuplicatesPrevented != 0 {
		t.Fatalf("opportunity older than the window must not suppress, got %+v", res)
	}
}

func TestGenerateOpportunitiesEmptyResponses(t *testing.T) {
	repo := lowScoreFixture()
	repo.responses = nil
	svc := newTestService(t, repo, &recordingBus{})

	res, err := svc.GenerateOpportunities(context.Background(), tenant.System(repo.assessment.TenantID), repo.assessment.ID)
	if err != nil {
		t.Fatalf("empty responses must not be a hard failure: %v", err)
	}
	if len(res.Opportunities) != 0 || len(res.Errors) != 1 {
		t.Fatalf("expected no opportunities and one error entry, got %+v", res)
	}
}

func TestGenerateOpportunitiesIsolatesBrokenRules(t *testing.T) {
	repo := lowScoreFixture()
	repo.template.Rules = []domain.OpportunityRule{
		{Type: ""}, // broken: no type
		{Type: "backup_strategy", Threshold: fp(70)},
	}
	svc := newTestService(t, repo, &recordingBus{})

	res, err := svc.GenerateOpportunities(context.Background(), tenant.System(repo.assessment.TenantID), repo.assessment.ID)
	if err != nil {
		t.Fatalf("GenerateOpportunities: %v", err)
	}
	if len(res.Opportunities) != 1 {
		t.Fatalf("healthy rule must still produce, got %+v", res)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("broken rule must be reported, got %v", res.Errors)
	}
}

func TestGenerateOpportunitiesEnterpriseEscalation(t *testing.T) {
	repo := lowScoreFixture()
	repo.assessment.ClientValue = domain.ClientEnterprise
	repo.responses = []domain.Response{{Score: 55, MaxPoints: 100}}
	svc := newTestService(t, repo, &recordingBus{})

	res, err := svc.GenerateOpportunities(context.Background(), tenant.System(repo.assessment.TenantID), repo.assessment.ID)
	if err != nil {
		t.Fatalf("GenerateOpportunities: %v", err)
	}
	if len(res.Opportunities) != 1 {
		t.Fatalf("expected one opportunity, got %+v", res)
	}
	// Deviation of 15 holds medium; enterprise bumps it to high.
	if got := res.Opportunities[0].Priority; got != domain.PriorityHigh {
		t.Fatalf("priority = %s, want high", got)
	}
}

func TestUpdateStatusEnforcesTransitions(t *testing.T) {
	repo := newFakeRepo()
	tenantID := uuid.New()
	oppID := uuid.New()
	repo.opportunities[oppID] = domain.Opportunity{
		ID: oppID, TenantID: tenantID, Status: domain.OpportunityIdentified,
	}
	bus := &recordingBus{}
	svc := newTestService(t, repo, bus)
	tc := tenant.System(tenantID)

	if err := svc.UpdateStatus(context.Background(), tc, oppID, domain.OpportunityWon, ""); err == nil {
		t.Fatal("identified cannot jump straight to won")
	}
	if err := svc.UpdateStatus(context.Background(), tc, oppID, domain.OpportunityQualified, "called them"); err != nil {
		t.Fatalf("identified to qualified must be legal: %v", err)
	}
	if repo.opportunities[oppID].Status != domain.OpportunityQualified {
		t.Fatal("status not persisted")
	}
	if len(bus.events) != 1 || bus.events[0].EventName() != "assessments.opportunity.status_changed" {
		t.Fatalf("expected status_changed event, got %v", bus.events)
	}

	// Terminal states are final.
	repo.opportunities[oppID] = domain.Opportunity{ID: oppID, TenantID: tenantID, Status: domain.OpportunityLost}
	if err := svc.UpdateStatus(context.Background(), tc, oppID, domain.OpportunityQualified, ""); err == nil {
		t.Fatal("lost is terminal")
	}
}

func TestAssignOpportunityRequiresAssignee(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), &recordingBus{})
	err := svc.AssignOpportunity(context.Background(), tenant.System(uuid.New()), uuid.New(), uuid.Nil, nil)
	if err == nil {
		t.Fatal("nil assignee must be rejected")
	}
}
