package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskReassignStaleLeads = "distribution:reassign_stale"

const TaskGenerateOpportunities = "assessments:generate_opportunities"

// ReassignStaleLeadsPayload targets one tenant, or every tenant with stale
// leads when TenantID is empty (the nightly cron run).
type ReassignStaleLeadsPayload struct {
	TenantID string `json:"tenantId,omitempty"`
}

type GenerateOpportunitiesPayload struct {
	AssessmentID string `json:"assessmentId"`
	TenantID     string `json:"tenantId"`
}

func NewReassignStaleLeadsTask(payload ReassignStaleLeadsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReassignStaleLeads, data), nil
}

func ParseReassignStaleLeadsPayload(task *asynq.Task) (ReassignStaleLeadsPayload, error) {
	var payload ReassignStaleLeadsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ReassignStaleLeadsPayload{}, err
	}
	return payload, nil
}

func NewGenerateOpportunitiesTask(payload GenerateOpportunitiesPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGenerateOpportunities, data), nil
}

func ParseGenerateOpportunitiesPayload(task *asynq.Task) (GenerateOpportunitiesPayload, error) {
	var payload GenerateOpportunitiesPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return GenerateOpportunitiesPayload{}, err
	}
	return payload, nil
}
