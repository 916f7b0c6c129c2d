package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/models"
	appErrors "github.com/noah-isme/sis-sync-api/pkg/errors"
	"github.com/noah-isme/sis-sync-api/pkg/jobs"
)

type dispatchKey struct {
	job models.SyncJob
	lms models.LMSName
}

// runDispatch is the resolved unit the worker queue executes.
type runDispatch struct {
	sync     Synchronizer
	schoolID string
}

// queueClient is the slice of the redis API the router consumes. *redis.Client
// satisfies it.
type queueClient interface {
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RouterConfig configures the dispatch router.
type RouterConfig struct {
	Client    queueClient
	Runner    *Runner
	QueueName string
	DLQSuffix string
	Workers   int
	Logger    *zap.Logger
}

// Router consumes dispatch messages from a redis list and routes each onto
// the registered synchronizer. Messages naming an unknown job or vendor are
// moved to the dead-letter list rather than dropped silently.
type Router struct {
	client    queueClient
	runner    *Runner
	queueName string
	dlqName   string
	logger    *zap.Logger

	registry map[dispatchKey]Synchronizer
	queue    *jobs.Queue

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRouter builds a router and its backing worker queue.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	r := &Router{
		client:    cfg.Client,
		runner:    cfg.Runner,
		queueName: cfg.QueueName,
		dlqName:   cfg.QueueName + cfg.DLQSuffix,
		logger:    cfg.Logger,
		registry:  make(map[dispatchKey]Synchronizer),
	}
	r.queue = jobs.NewQueue("sync-runs", r.execute, jobs.QueueConfig{
		Workers: cfg.Workers,
		Logger:  cfg.Logger,
	})
	return r
}

// Register adds a synchronizer under its job and vendor discriminators.
func (r *Router) Register(s Synchronizer) {
	r.registry[dispatchKey{job: s.Job(), lms: s.LMS()}] = s
}

// Start launches the worker queue and the redis consumer loop.
func (r *Router) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.queue.Start(ctx)
	r.wg.Add(1)
	go r.consume(ctx)
	r.logger.Sugar().Infow("dispatch router started", "queue", r.queueName, "registered", len(r.registry))
}

// Stop halts the consumer loop, then drains the worker queue. In-flight runs
// stop at their next record boundary.
func (r *Router) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.queue.Stop()
	r.logger.Sugar().Infow("dispatch router stopped", "queue", r.queueName)
}

func (r *Router) consume(ctx context.Context) {
	defer r.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}

		// Bounded block so shutdown is noticed between messages.
		res, err := r.client.BRPop(ctx, 5*time.Second, r.queueName).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			r.logger.Sugar().Errorw("dispatch pop failed", "queue", r.queueName, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(res) != 2 {
			continue
		}
		r.route(ctx, res[1])
	}
}

func (r *Router) route(ctx context.Context, raw string) {
	var msg models.DispatchMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		r.logger.Sugar().Warnw("undecodable dispatch message", "error", err)
		r.deadLetter(ctx, raw)
		return
	}

	s, ok := r.registry[dispatchKey{job: msg.Job, lms: msg.LMS}]
	if !ok {
		r.logger.Sugar().Warnw("no synchronizer for dispatch",
			"job", msg.Job, "lms", msg.LMS,
			"error", fmt.Errorf("%w: %s:%s", appErrors.ErrUnknownDispatch, msg.Job, msg.LMS))
		r.deadLetter(ctx, raw)
		return
	}

	err := r.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    fmt.Sprintf("%s:%s", msg.Job, msg.LMS),
		Payload: runDispatch{sync: s, schoolID: msg.SchoolID},
	})
	if err != nil {
		r.logger.Sugar().Errorw("dispatch enqueue failed", "job", msg.Job, "lms", msg.LMS, "error", err)
		r.deadLetter(ctx, raw)
	}
}

func (r *Router) deadLetter(ctx context.Context, raw string) {
	if err := r.client.LPush(ctx, r.dlqName, raw).Err(); err != nil {
		r.logger.Sugar().Errorw("dead-letter push failed", "dlq", r.dlqName, "error", err)
	}
}

func (r *Router) execute(ctx context.Context, job jobs.Job) error {
	d, ok := job.Payload.(runDispatch)
	if !ok {
		return fmt.Errorf("job %s carries unexpected payload %T", job.ID, job.Payload)
	}
	r.runner.Run(ctx, d.sync, d.schoolID)
	return nil
}
