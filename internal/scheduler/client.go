// Package scheduler runs background jobs over asynq: a periodic scan that
// flags orders stopped for too long.
package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"prodline_backend/platform/config"
)

type Client struct {
	client *asynq.Client
	queue  string
	cfg    config.SchedulerConfig
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
		cfg:    cfg,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueStalledScan queues one scan pass immediately.
func (c *Client) EnqueueStalledScan(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewStalledScanTask(StalledScanPayload{StalledAfter: c.cfg.GetStalledAfter()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

// NewPeriodicScheduler registers the stalled scan at the configured
// interval. The caller runs and shuts it down.
func NewPeriodicScheduler(cfg config.SchedulerConfig) (*asynq.Scheduler, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, nil)

	task, err := NewStalledScanTask(StalledScanPayload{StalledAfter: cfg.GetStalledAfter()})
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	spec := fmt.Sprintf("@every %s", cfg.GetStalledScanInterval())
	if _, err := scheduler.Register(spec, task, asynq.Queue(queue)); err != nil {
		return nil, err
	}
	return scheduler, nil
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
