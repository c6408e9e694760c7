// Package queue defers document indexing to background workers through an
// asynq task queue backed by Redis.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.IndexQueue = (*Client)(nil)

// TaskIndexDocument is the task type handled by the indexing worker.
const TaskIndexDocument = "document:index"

// QueueIndexing is the queue indexing tasks are placed on.
const QueueIndexing = "indexing"

// Defaults for enqueued tasks.
const (
	DefaultMaxRetry = 3
	DefaultTimeout  = 10 * time.Minute
)

// IndexPayload is the body of a TaskIndexDocument task.
type IndexPayload struct {
	DocumentID string `json:"document_id"`
}

// Config holds the Redis connection and task options.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// MaxRetry bounds retries of a failing task.
	MaxRetry int

	// Timeout bounds one task run.
	Timeout time.Duration
}

// RedisOpt converts the config to asynq connection options.
func (c Config) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// ConfigFromSettings builds a queue config from application settings.
func ConfigFromSettings(s domain.QueueSettings, indexTimeout time.Duration) Config {
	cfg := Config{
		RedisAddr:     s.RedisAddr,
		RedisPassword: s.RedisPassword,
		RedisDB:       s.RedisDB,
		MaxRetry:      DefaultMaxRetry,
		Timeout:       DefaultTimeout,
	}
	// Leave room for the pipeline to record a failure after its own timeout.
	if indexTimeout > 0 && indexTimeout+time.Minute > cfg.Timeout {
		cfg.Timeout = indexTimeout + time.Minute
	}
	return cfg
}

// enqueuer is the part of *asynq.Client the queue uses.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client enqueues indexing tasks.
type Client struct {
	client   enqueuer
	maxRetry int
	timeout  time.Duration
}

// NewClient creates a queue client connected to Redis.
func NewClient(cfg Config) *Client {
	return newClient(asynq.NewClient(cfg.RedisOpt()), cfg)
}

func newClient(e enqueuer, cfg Config) *Client {
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = DefaultMaxRetry
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{client: e, maxRetry: cfg.MaxRetry, timeout: cfg.Timeout}
}

// NewIndexTask builds the task for a document.
func NewIndexTask(documentID string) (*asynq.Task, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	payload, err := json.Marshal(IndexPayload{DocumentID: documentID})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal payload: %w", err)
	}
	return asynq.NewTask(TaskIndexDocument, payload), nil
}

// ParseIndexPayload decodes a TaskIndexDocument body.
func ParseIndexPayload(data []byte) (IndexPayload, error) {
	var p IndexPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("%w: decode payload: %w", domain.ErrInvalidInput, err)
	}
	if p.DocumentID == "" {
		return p, fmt.Errorf("%w: payload has no document_id", domain.ErrInvalidInput)
	}
	return p, nil
}

// EnqueueIndex schedules indexing for a stored document. A document
// already waiting or running in the queue is not enqueued twice; the
// uniqueness window is the task timeout.
func (c *Client) EnqueueIndex(ctx context.Context, documentID string) error {
	task, err := NewIndexTask(documentID)
	if err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueIndexing),
		asynq.MaxRetry(c.maxRetry),
		asynq.Timeout(c.timeout),
		asynq.Unique(c.timeout),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Debug("Document %s already queued", documentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("queue: enqueue %s: %w", documentID, err)
	}
	logger.Debug("Enqueued %s task %s for document %s", TaskIndexDocument, info.ID, documentID)
	return nil
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
