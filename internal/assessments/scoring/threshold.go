package scoring

import (
	"strings"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/domain"
)

// DefaultThreshold applies when a rule does not name one: scoring below 70%
// signals an opportunity.
const DefaultThreshold = 70.0

// DefaultMaxScore applies when the template declares no maximum for the
// scope under evaluation.
const DefaultMaxScore = 100.0

// Escalation thresholds on the gap between the rule threshold and the
// actual score, in percentage points.
const (
	severeDeviation = 30.0
	slightDeviation = 10.0
)

// ThresholdEvaluation is the outcome of checking one rule against the
// assessment's scores.
type ThresholdEvaluation struct {
	Triggered  bool
	Percentage float64
	Threshold  float64
	Data       domain.ThresholdData
}

// EvaluateThreshold computes the percentage score in the rule's scope
// (a named section or the whole assessment) and reports whether it falls
// below the rule's threshold. Low scores trigger: a weak answer set is a
// sales opening, not a failure to suppress.
func EvaluateThreshold(rule domain.OpportunityRule, tmpl domain.Template, responses []domain.Response) ThresholdEvaluation {
	threshold := DefaultThreshold
	if rule.Threshold != nil {
		threshold = *rule.Threshold
	}

	var raw float64
	for _, r := range responses {
		if rule.Section != "" && !strings.EqualFold(r.Section, rule.Section) {
			continue
		}
		raw += r.Score
	}

	max := DefaultMaxScore
	if rule.Section != "" {
		if m, ok := tmpl.SectionMax[rule.Section]; ok {
			max = m
		}
	} else if tmpl.MaxScore != nil {
		max = *tmpl.MaxScore
	}

	// An explicit zero maximum marks the scope unscorable; report 0 rather
	// than dividing.
	var pct float64
	if max > 0 {
		pct = raw / max * 100
	}

	return ThresholdEvaluation{
		Triggered:  max > 0 && pct < threshold,
		Percentage: pct,
		Threshold:  threshold,
		Data: domain.ThresholdData{
			ActualScore: pct,
			Threshold:   threshold,
			Section:     rule.Section,
			RawScore:    raw,
			MaxScore:    max,
		},
	}
}

var priorityOrder = []domain.Priority{
	domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityCritical,
}

func priorityIndex(p domain.Priority) int {
	for i, candidate := range priorityOrder {
		if candidate == p {
			return i
		}
	}
	return 1 // unknown priorities behave like medium
}

func shiftPriority(p domain.Priority, delta int) domain.Priority {
	i := priorityIndex(p) + delta
	if i < 0 {
		i = 0
	}
	if i >= len(priorityOrder) {
		i = len(priorityOrder) - 1
	}
	return priorityOrder[i]
}

// CalculatePriority adjusts the rule's base priority by how far the score
// fell below the threshold, then bumps mid-tier priorities for enterprise
// clients. The enterprise bump never manufactures critical urgency on its
// own; only a severe deviation can reach critical.
func CalculatePriority(rule domain.OpportunityRule, eval ThresholdEvaluation, clientValue domain.ClientValue) domain.Priority {
	p := rule.Priority
	if p == "" {
		p = domain.PriorityMedium
	}

	deviation := eval.Threshold - eval.Percentage
	switch {
	case deviation > severeDeviation:
		p = shiftPriority(p, 1)
	case deviation < slightDeviation:
		p = shiftPriority(p, -1)
	}

	if clientValue == domain.ClientEnterprise {
		switch p {
		case domain.PriorityLow:
			p = domain.PriorityMedium
		case domain.PriorityMedium:
			p = domain.PriorityHigh
		}
	}
	return p
}

// DefaultTitle derives a readable opportunity title from its type key:
// "backup_strategy" becomes "Backup Strategy".
func DefaultTitle(opportunityType string) string {
	words := strings.Split(opportunityType, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.TrimSpace(strings.Join(words, " "))
}
