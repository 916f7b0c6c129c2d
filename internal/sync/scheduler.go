package sync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

type scheduleEntry struct {
	job      models.SyncJob
	lms      models.LMSName
	interval time.Duration
}

// Scheduler pushes dispatch messages onto the redis queue at fixed per-job
// cadences. It only produces; the router decides what runs and where, so
// manual triggers and scheduled ones travel the same path.
type Scheduler struct {
	client    *redis.Client
	queueName string
	logger    *zap.Logger

	entries []scheduleEntry
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler builds an empty scheduler.
func NewScheduler(client *redis.Client, queueName string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{client: client, queueName: queueName, logger: logger}
}

// Add registers a job+vendor pair at the given cadence. Non-positive
// intervals disable the entry.
func (s *Scheduler) Add(job models.SyncJob, lms models.LMSName, interval time.Duration) {
	if interval <= 0 {
		s.logger.Sugar().Infow("schedule entry disabled", "job", job, "lms", lms)
		return
	}
	s.entries = append(s.entries, scheduleEntry{job: job, lms: lms, interval: interval})
}

// Start launches one ticker goroutine per entry.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, entry := range s.entries {
		s.wg.Add(1)
		go s.tick(ctx, entry)
	}
	s.logger.Sugar().Infow("scheduler started", "entries", len(s.entries))
}

// Stop halts all tickers and waits for them to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Sugar().Infow("scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context, entry scheduleEntry) {
	defer s.wg.Done()
	ticker := time.NewTicker(entry.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(ctx, entry)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, entry scheduleEntry) {
	msg := models.DispatchMessage{Job: entry.job, LMS: entry.lms}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Sugar().Errorw("dispatch marshal failed", "job", entry.job, "lms", entry.lms, "error", err)
		return
	}
	if err := s.client.LPush(ctx, s.queueName, payload).Err(); err != nil {
		s.logger.Sugar().Errorw("dispatch push failed", "job", entry.job, "lms", entry.lms, "error", err)
	}
}
