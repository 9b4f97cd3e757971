// Package scheduler provides background job scheduling on asynq. The API
// process enqueues tasks through Client; the worker process consumes them.
package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/config"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueReassignStaleLeads queues a stale-lead sweep for one tenant.
func (c *Client) EnqueueReassignStaleLeads(ctx context.Context, payload ReassignStaleLeadsPayload) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewReassignStaleLeadsTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

// EnqueueGenerateOpportunities queues threshold evaluation for a completed
// assessment.
func (c *Client) EnqueueGenerateOpportunities(ctx context.Context, payload GenerateOpportunitiesPayload) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewGenerateOpportunitiesTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
