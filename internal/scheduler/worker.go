package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	assessmentsvc "github.com/skyeadmin82/strata-guard-stack-sub003/internal/assessments/service"
	distributionsvc "github.com/skyeadmin82/strata-guard-stack-sub003/internal/distribution/service"
	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/tenant"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/config"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/logger"
)

// Distributor is the slice of the distribution service the worker needs.
type Distributor interface {
	ReassignStaleLeads(ctx context.Context, tc tenant.Context) (distributionsvc.SweepResult, error)
	TenantsDueForSweep(ctx context.Context) ([]uuid.UUID, error)
}

// OpportunityGenerator is the slice of the assessments service the worker
// needs.
type OpportunityGenerator interface {
	GenerateOpportunities(ctx context.Context, tc tenant.Context, assessmentID uuid.UUID) (assessmentsvc.GenerationResult, error)
}

type Worker struct {
	server       *asynq.Server
	scheduler    *asynq.Scheduler
	mux          *asynq.ServeMux
	distribution Distributor
	assessments  OpportunityGenerator
	log          *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, distribution Distributor, assessments OpportunityGenerator, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			queue: 1,
		},
	})

	sched := asynq.NewScheduler(opt, nil)
	cronSpec := cfg.GetStaleLeadCron()
	if cronSpec != "" {
		task, err := NewReassignStaleLeadsTask(ReassignStaleLeadsPayload{})
		if err != nil {
			return nil, err
		}
		if _, err := sched.Register(cronSpec, task, asynq.Queue(queue)); err != nil {
			return nil, fmt.Errorf("register stale lead cron: %w", err)
		}
	}

	mux := asynq.NewServeMux()
	w := &Worker{
		server:       server,
		scheduler:    sched,
		mux:          mux,
		distribution: distribution,
		assessments:  assessments,
		log:          log,
	}

	mux.HandleFunc(TaskReassignStaleLeads, w.handleReassignStaleLeads)
	mux.HandleFunc(TaskGenerateOpportunities, w.handleGenerateOpportunities)

	return w, nil
}

// handleReassignStaleLeads sweeps one tenant, or discovers and sweeps every
// tenant with stale leads when the payload names none.
func (w *Worker) handleReassignStaleLeads(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseReassignStaleLeadsPayload(task)
	if err != nil {
		return err
	}

	var tenants []uuid.UUID
	if payload.TenantID != "" {
		id, err := uuid.Parse(payload.TenantID)
		if err != nil {
			return err
		}
		tenants = []uuid.UUID{id}
	} else {
		tenants, err = w.distribution.TenantsDueForSweep(ctx)
		if err != nil {
			return err
		}
	}

	for _, tenantID := range tenants {
		res, err := w.distribution.ReassignStaleLeads(ctx, tenant.System(tenantID))
		if err != nil {
			w.log.Error("stale lead sweep failed", "tenant_id", tenantID, "error", err)
			continue
		}
		if res.Reassigned > 0 {
			w.log.Info("stale leads reassigned",
				"tenant_id", tenantID,
				"examined", res.Examined,
				"reassigned", res.Reassigned)
		}
	}
	return nil
}

func (w *Worker) handleGenerateOpportunities(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseGenerateOpportunitiesPayload(task)
	if err != nil {
		return err
	}

	assessmentID, err := uuid.Parse(payload.AssessmentID)
	if err != nil {
		return err
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return err
	}

	res, err := w.assessments.GenerateOpportunities(ctx, tenant.System(tenantID), assessmentID)
	if err != nil {
		return err
	}
	w.log.Info("background opportunity generation finished",
		"assessment_id", assessmentID,
		"created", len(res.Opportunities),
		"duplicates_prevented", res.DuplicatesPrevented)
	return nil
}

// Run starts the task server and the cron scheduler and blocks until the
// context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.scheduler.Shutdown()
		w.server.Shutdown()
	}()

	go func() {
		if err := w.scheduler.Run(); err != nil {
			w.log.Error("cron scheduler stopped", "error", err)
		}
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
