package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/domain"
)

func agent(name string, opts ...func(*domain.Agent)) domain.Agent {
	a := domain.Agent{
		ID:     uuid.New(),
		Name:   name,
		Email:  name + "@example.com",
		Status: domain.AgentActive,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func withSales(v float64) func(*domain.Agent) {
	return func(a *domain.Agent) { a.TotalSales = v }
}

func withTerritory(t string) func(*domain.Agent) {
	return func(a *domain.Agent) { a.Territory = t }
}

func withSpecializations(s ...string) func(*domain.Agent) {
	return func(a *domain.Agent) { a.Specializations = s }
}

func withMaxLeads(n int) func(*domain.Agent) {
	return func(a *domain.Agent) { a.MaxActiveLeads = n }
}

func withPerformance(sales, conversion float64, deals int) func(*domain.Agent) {
	return func(a *domain.Agent) {
		a.TotalSales = sales
		a.ConversionRate = conversion
		a.DealsClosed = deals
	}
}

func withStatus(s domain.AgentStatus) func(*domain.Agent) {
	return func(a *domain.Agent) { a.Status = s }
}

func rule(name string, rt domain.RuleType, priority int, opts ...func(*domain.DistributionRule)) domain.DistributionRule {
	r := domain.DistributionRule{
		ID:       uuid.New(),
		RuleName: name,
		RuleType: rt,
		IsActive: true,
		Priority: priority,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func TestAssignHonorsPriorityOrder(t *testing.T) {
	east := agent("east", withTerritory("east"))
	west := agent("west", withTerritory("west"))

	lead := domain.Lead{ID: uuid.New(), Territory: "east", Source: "web"}

	// Lower priority value wins even though both rules match.
	low := rule("territory-first", domain.RuleTerritory, 1)
	high := rule("grab-all", domain.RuleTopPerformer, 10)
	high.Settings.EligibleAgents = []uuid.UUID{west.ID}

	snap := Snapshot{
		Rules:     []domain.DistributionRule{high, low},
		Agents:    []domain.Agent{west, east},
		Workloads: Workloads{},
	}

	d := New(nil).Assign(lead, snap)
	if d.Agent == nil {
		t.Fatal("expected an assignment")
	}
	if d.Agent.ID != east.ID {
		t.Fatalf("expected east agent via priority-1 rule, got %s", d.Agent.Name)
	}
	if d.Rule == nil || d.Rule.ID != low.ID {
		t.Fatalf("expected rule %q to win", low.RuleName)
	}
	if d.Fallback {
		t.Fatal("rule match must not be flagged as fallback")
	}
}

func TestAssignSkipsInactiveRules(t *testing.T) {
	a := agent("only")
	inactive := rule("disabled", domain.RuleRoundRobin, 1)
	inactive.IsActive = false
	active := rule("enabled", domain.RuleRoundRobin, 5)

	snap := Snapshot{
		Rules:     []domain.DistributionRule{inactive, active},
		Agents:    []domain.Agent{a},
		Workloads: Workloads{},
	}

	d := New(nil).Assign(domain.Lead{ID: uuid.New()}, snap)
	if d.Rule == nil || d.Rule.ID != active.ID {
		t.Fatalf("inactive rule must be skipped, got %+v", d.Rule)
	}
}

func TestAssignFallsThroughWhenPoolExhausted(t *testing.T) {
	busy := agent("busy", withMaxLeads(2))
	free := agent("free", withMaxLeads(10))

	// First rule only admits the saturated agent; second admits anyone.
	first := rule("narrow", domain.RuleRoundRobin, 1)
	first.Settings.EligibleAgents = []uuid.UUID{busy.ID}
	second := rule("wide", domain.RuleRoundRobin, 2)

	snap := Snapshot{
		Rules:           []domain.DistributionRule{first, second},
		Agents:          []domain.Agent{busy, free},
		Workloads:       Workloads{busy.ID: 2},
		LastAssignments: LastAssignments{},
	}

	d := New(nil).Assign(domain.Lead{ID: uuid.New()}, snap)
	if d.Agent == nil || d.Agent.ID != free.ID {
		t.Fatalf("expected the second rule to assign the free agent, got %+v", d.Agent)
	}
	if d.Rule == nil || d.Rule.ID != second.ID {
		t.Fatal("exhausted pool must not stop rule evaluation")
	}
}

func TestCapacityUsesStricterOfRuleAndAgentCap(t *testing.T) {
	a := agent("capped", withMaxLeads(10))
	r := rule("strict", domain.RuleRoundRobin, 1)
	r.Settings.MaxLeadsPerAgent = 3

	snap := Snapshot{
		Rules:     []domain.DistributionRule{r},
		Agents:    []domain.Agent{a},
		Workloads: Workloads{a.ID: 3},
	}

	// Agent is at the rule cap of 3 even though their personal cap is 10.
	d := New(NoFallback{}).Assign(domain.Lead{ID: uuid.New()}, snap)
	if d.Agent != nil {
		t.Fatalf("agent at rule cap must be excluded, got %s", d.Agent.Name)
	}

	snap.Workloads[a.ID] = 2
	d = New(NoFallback{}).Assign(domain.Lead{ID: uuid.New()}, snap)
	if d.Agent == nil {
		t.Fatal("agent under cap must be assignable")
	}
}

func TestConditionsAreANDCombined(t *testing.T) {
	a := agent("any")
	min, max := 50, 80
	r := rule("narrow", domain.RuleRoundRobin, 1)
	r.Conditions = domain.RuleConditions{
		LeadSources: []string{"web", "referral"},
		Territories: []string{"east"},
		ScoreMin:    &min,
		ScoreMax:    &max,
	}

	cases := []struct {
		name  string
		lead  domain.Lead
		match bool
	}{
		{"all conditions met", domain.Lead{Source: "web", Territory: "east", Score: 60}, true},
		{"boundary scores inclusive", domain.Lead{Source: "referral", Territory: "east", Score: 50}, true},
		{"wrong source", domain.Lead{Source: "cold-call", Territory: "east", Score: 60}, false},
		{"wrong territory", domain.Lead{Source: "web", Territory: "west", Score: 60}, false},
		{"score below min", domain.Lead{Source: "web", Territory: "east", Score: 49}, false},
		{"score above max", domain.Lead{Source: "web", Territory: "east", Score: 81}, false},
	}

	eng := New(NoFallback{})
	snap := Snapshot{Rules: []domain.DistributionRule{r}, Agents: []domain.Agent{a}, Workloads: Workloads{}}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := eng.Assign(tc.lead, snap)
			got := d.Agent != nil
			if got != tc.match {
				t.Fatalf("match = %v, want %v", got, tc.match)
			}
		})
	}
}

func TestRoundRobinPrefersNeverAssigned(t *testing.T) {
	old := agent("old")
	fresh := agent("fresh")
	recent := agent("recent")

	r := rule("rr", domain.RuleRoundRobin, 1)
	now := time.Now()
	snap := Snapshot{
		Rules:  []domain.DistributionRule{r},
		Agents: []domain.Agent{recent, old, fresh},
		LastAssignments: LastAssignments{
			old.ID:    now.Add(-48 * time.Hour),
			recent.ID: now.Add(-1 * time.Hour),
		},
		Workloads: Workloads{},
	}

	d := New(nil).Assign(domain.Lead{ID: uuid.New()}, snap)
	if d.Agent == nil || d.Agent.ID != fresh.ID {
		t.Fatalf("never-assigned agent must win, got %+v", d.Agent)
	}

	// With everyone assigned once, the oldest assignment wins.
	snap.LastAssignments[fresh.ID] = now
	d = New(nil).Assign(domain.Lead{ID: uuid.New()}, snap)
	if d.Agent == nil || d.Agent.ID != old.ID {
		t.Fatalf("oldest assignment must win, got %+v", d.Agent)
	}
}

func TestTerritoryFallsBackToWholePool(t *testing.T) {
	big := agent("big", withTerritory("west"), withSales(1000))
	small := agent("small", withTerritory("west"), withSales(10))

	r := rule("territory", domain.RuleTerritory, 1)
	snap := Snapshot{
		Rules:     []domain.DistributionRule{r},
		Agents:    []domain.Agent{small, big},
		Workloads: Workloads{},
	}

	// Nobody covers "north", so the whole pool competes on performance.
	d := New(NoFallback{}).Assign(domain.Lead{ID: uuid.New(), Territory: "north"}, snap)
	if d.Agent == nil || d.Agent.ID != big.ID {
		t.Fatalf("expected top performer from full pool, got %+v", d.Agent)
	}

	// A covering agent beats a stronger outsider.
	outsider := agent("outsider", withTerritory("east"), withSales(9999))
	snap.Agents = []domain.Agent{outsider, small}
	d = New(NoFallback{}).Assign(domain.Lead{ID: uuid.New(), Territory: "west"}, snap)
	if d.Agent == nil || d.Agent.ID != small.ID {
		t.Fatalf("covering agent must win, got %+v", d.Agent)
	}
}

func TestSpecializationMatchIsCaseInsensitiveSubstring(t *testing.T) {
	match := agent("match", withSpecializations("Managed Security"))
	other := agent("other", withSpecializations("Cloud Backup"), withSales(5000))

	r := rule("spec", domain.RuleSpecialization, 1)
	snap := Snapshot{
		Rules:     []domain.DistributionRule{r},
		Agents:    []domain.Agent{other, match},
		Workloads: Workloads{},
	}

	d := New(NoFallback{}).Assign(domain.Lead{ID: uuid.New(), Industry: "security"}, snap)
	if d.Agent == nil || d.Agent.ID != match.ID {
		t.Fatalf("specialized agent must beat stronger generalist, got %+v", d.Agent)
	}
}

func TestWeightedScoringNormalizesPerformance(t *testing.T) {
	top := agent("top", withSales(200))
	mid := agent("mid", withSales(100), withSpecializations("healthcare"))

	r := rule("weighted", domain.RuleWeighted, 1)
	r.Settings.Weights = domain.WeightFactors{Performance: 1, Capacity: 0, Specialization: 0}

	snap := Snapshot{
		Rules:     []domain.DistributionRule{r},
		Agents:    []domain.Agent{mid, top},
		Workloads: Workloads{},
	}

	d := New(NoFallback{}).Assign(domain.Lead{ID: uuid.New(), Industry: "healthcare"}, snap)
	if d.Agent == nil || d.Agent.ID != top.ID {
		t.Fatalf("pure performance weighting must pick top seller, got %+v", d.Agent)
	}

	// Flip the weights toward specialization and the match wins.
	r.Settings.Weights = domain.WeightFactors{Performance: 0.2, Specialization: 0.8}
	snap.Rules = []domain.DistributionRule{r}
	d = New(NoFallback{}).Assign(domain.Lead{ID: uuid.New(), Industry: "healthcare"}, snap)
	if d.Agent == nil || d.Agent.ID != mid.ID {
		t.Fatalf("specialization weighting must pick specialist, got %+v", d.Agent)
	}
}

func TestWeightedSelectionIsDeterministic(t *testing.T) {
	// Three agents with identical inputs score identical sums; pool order
	// must break the tie the same way on every call.
	a := agent("a", withSales(100), withSpecializations("retail"))
	b := agent("b", withSales(100), withSpecializations("retail"))
	c := agent("c", withSales(100), withSpecializations("retail"))

	r := rule("weighted", domain.RuleWeighted, 1)
	r.Settings.Weights = domain.WeightFactors{Performance: 0.5, Capacity: 0.3, Specialization: 0.2}

	snap := Snapshot{
		Rules:     []domain.DistributionRule{r},
		Agents:    []domain.Agent{a, b, c},
		Workloads: Workloads{},
	}

	eng := New(NoFallback{})
	lead := domain.Lead{ID: uuid.New(), Industry: "retail"}
	first := eng.Assign(lead, snap)
	if first.Agent == nil {
		t.Fatal("expected an assignment")
	}
	for i := 0; i < 50; i++ {
		d := eng.Assign(lead, snap)
		if d.Agent == nil || d.Agent.ID != first.Agent.ID {
			t.Fatalf("call %d picked a different agent: %+v vs %+v", i, d.Agent, first.Agent)
		}
	}
}

func TestRoundRobinNoAgentStarves(t *testing.T) {
	pool := []domain.Agent{agent("a"), agent("b"), agent("c")}
	r := rule("rr", domain.RuleRoundRobin, 1)

	snap := Snapshot{
		Rules:           []domain.DistributionRule{r},
		Agents:          pool,
		Workloads:       Workloads{},
		LastAssignments: LastAssignments{},
	}

	eng := New(NoFallback{})
	seen := map[uuid.UUID]int{}
	now := time.Now()
	for i := 0; i < 2*len(pool); i++ {
		d := eng.Assign(domain.Lead{ID: uuid.New()}, snap)
		if d.Agent == nil {
			t.Fatalf("assignment %d yielded no agent", i)
		}
		seen[d.Agent.ID]++
		snap.LastAssignments[d.Agent.ID] = now.Add(time.Duration(i) * time.Minute)
	}

	for _, a := range pool {
		if seen[a.ID] == 0 {
			t.Fatalf("agent %s never selected across %d assignments: %v", a.Name, 2*len(pool), seen)
		}
	}
}

func TestTopPerformerCompositeRanking(t *testing.T) {
	// 100*0.4 + 0.5*0.3 + 5*0.3 = 41.65 beats 50*0.4 + 0.9*0.3 + 10*0.3 = 23.27.
	seller := agent("seller", withPerformance(100, 0.5, 5))
	closer := agent("closer", withPerformance(50, 0.9, 10))

	r := rule("top", domain.RuleTopPerformer, 1)
	r.Conditions = domain.RuleConditions{Industries: []string{"Technology"}}

	snap := Snapshot{
		Rules:     []domain.DistributionRule{r},
		Agents:    []domain.Agent{closer, seller},
		Workloads: Workloads{},
	}

	lead := domain.Lead{ID: uuid.New(), Industry: "Technology", Source: "Website", Score: 75}
	d := New(NoFallback{}).Assign(lead, snap)
	if d.Agent == nil || d.Agent.ID != seller.ID {
		t.Fatalf("sales-heavy composite must pick the bigger seller, got %+v", d.Agent)
	}
	if d.Rule == nil || d.Rule.ID != r.ID {
		t.Fatalf("expected the matching rule, got %+v", d.Rule)
	}
}

func TestCapacityRulePicksMostHeadroom(t *testing.T) {
	loaded := agent("loaded", withMaxLeads(10))
	light := agent("light", withMaxLeads(10))

	r := rule("capacity", domain.RuleCapacity, 1)
	snap := Snapshot{
		Rules:     []domain.DistributionRule{r},
		Agents:    []domain.Agent{loaded, light},
		Workloads: Workloads{loaded.ID: 8, light.ID: 2},
	}

	d := New(NoFallback{}).Assign(domain.Lead{ID: uuid.New()}, snap)
	if d.Agent == nil || d.Agent.ID != light.ID {
		t.Fatalf("agent with most headroom must win, got %+v", d.Agent)
	}
}

func TestFallbackAssignsFirstActiveAgent(t *testing.T) {
	gone := agent("gone", withStatus(domain.AgentTerminated))
	here := agent("here")

	snap := Snapshot{
		Agents:    []domain.Agent{gone, here},
		Workloads: Workloads{},
	}

	d := New(nil).Assign(domain.Lead{ID: uuid.New()}, snap)
	if d.Agent == nil || d.Agent.ID != here.ID {
		t.Fatalf("fallback must pick first active agent, got %+v", d.Agent)
	}
	if !d.Fallback {
		t.Fatal("fallback assignment must be flagged")
	}
	if d.Rule != nil {
		t.Fatal("fallback assignment carries no rule")
	}
}

func TestNoAgentsMeansNoAssignment(t *testing.T) {
	d := New(nil).Assign(domain.Lead{ID: uuid.New()}, Snapshot{})
	if d.Agent != nil {
		t.Fatalf("empty roster must yield no assignment, got %+v", d.Agent)
	}
}

func TestSuspendedAgentsNeverEligible(t *testing.T) {
	susp := agent("susp", withStatus(domain.AgentSuspended))
	r := rule("rr", domain.RuleRoundRobin, 1)
	r.Settings.EligibleAgents = []uuid.UUID{susp.ID}

	snap := Snapshot{
		Rules:     []domain.DistributionRule{r},
		Agents:    []domain.Agent{susp},
		Workloads: Workloads{},
	}

	d := New(NoFallback{}).Assign(domain.Lead{ID: uuid.New()}, snap)
	if d.Agent != nil {
		t.Fatalf("suspended agent must not receive leads, got %+v", d.Agent)
	}
}
