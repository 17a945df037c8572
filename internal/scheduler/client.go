package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"medtour_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const defaultQueue = "default"

var errRedisNotConfigured = errors.New("scheduler: REDIS_URL is not set")

// Client publishes dispatch tasks for claimed outbox rows.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisOptFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{client: asynq.NewClient(opt), queue: queueName(cfg)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueNotificationDispatch hands one claimed notification row to the worker.
// The task id is the notification id, so a row that is already queued or
// retrying in asynq is not queued a second time.
func (c *Client) EnqueueNotificationDispatch(ctx context.Context, notificationID uuid.UUID) error {
	if c == nil || c.client == nil {
		return errors.New("scheduler: client not configured")
	}

	task, err := NewNotificationDispatchTask(NotificationDispatchPayload{NotificationID: notificationID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(dispatchMaxRetry),
		asynq.TaskID(dispatchTaskID(notificationID)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func dispatchTaskID(notificationID uuid.UUID) string {
	return TaskNotificationDispatch + ":" + notificationID.String()
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return defaultQueue
}

func redisOptFromConfig(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	if cfg.GetRedisURL() == "" {
		return asynq.RedisClientOpt{}, errRedisNotConfigured
	}
	return redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
}

// redisClientOpt translates a redis:// or rediss:// URL into asynq options.
// insecure disables certificate verification and forces TLS on.
func redisClientOpt(redisURL string, insecure bool) (asynq.RedisClientOpt, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}

	tlsConfig := parsed.TLSConfig
	switch {
	case tlsConfig != nil && insecure:
		tlsConfig = tlsConfig.Clone()
		tlsConfig.InsecureSkipVerify = true
	case tlsConfig == nil && insecure:
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      parsed.Addr,
		Username:  parsed.Username,
		Password:  parsed.Password,
		DB:        parsed.DB,
		TLSConfig: tlsConfig,
	}, nil
}
