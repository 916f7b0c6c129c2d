package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/models"
	appErrors "github.com/noah-isme/sis-sync-api/pkg/errors"
)

// Synchronizer is one per-entity, per-vendor sync job.
type Synchronizer interface {
	// Job names the watermark column pair on the source table.
	Job() models.SyncJob
	// LMS names the vendor this synchronizer reads.
	LMS() models.LMSName
	// SourceTable is the mirror table the job pulls from.
	SourceTable() string
	// Sync processes exactly one source record and reports the structured
	// outcome. It must not write the watermark itself.
	Sync(ctx context.Context, run *RunContext, record models.SourceRecord) Result
}

// RunScoped is implemented by synchronizers that keep per-run state, such as
// the assignment synchronizer's role-membership accumulation. EndRun flushes
// that state and returns the ids of the records whose canonical writes
// failed; the runner records those watermarks as failed so the records stay
// in the pending rotation.
type RunScoped interface {
	BeginRun(run *RunContext)
	EndRun(ctx context.Context, run *RunContext) ([]int64, error)
}

type watermarkStore interface {
	InitWatermarks(ctx context.Context, table string, job models.SyncJob) error
	FetchPending(ctx context.Context, table string, job models.SyncJob, limit int) ([]models.SourceRecord, error)
	MarkProcessed(ctx context.Context, table string, job models.SyncJob, recordID int64, success bool) error
}

type schoolReader interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

type schoolDocReader interface {
	GetSchool(ctx context.Context, schoolUUID string) (*models.SchoolDocument, error)
}

type lmsReader interface {
	FindByName(ctx context.Context, name models.LMSName) (*models.LMS, error)
}

// RunnerConfig bundles the runner's collaborators and bounds.
type RunnerConfig struct {
	Sources         watermarkStore
	Schools         schoolReader
	SchoolDocs      schoolDocReader
	LMS             lmsReader
	Notifier        Notifier
	Metrics         *Metrics
	BatchLimit      int
	DefaultSchoolID string
	Logger          *zap.Logger
}

// Runner executes the shared lifecycle around every synchronizer: context
// resolution, watermark backfill, a bounded oldest-first batch, and the
// single watermark write per record.
type Runner struct {
	sources         watermarkStore
	schools         schoolReader
	schoolDocs      schoolDocReader
	lms             lmsReader
	notifier        Notifier
	metrics         *Metrics
	batchLimit      int
	defaultSchoolID string
	logger          *zap.Logger
}

// NewRunner builds a runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 200
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NewLogNotifier(cfg.Logger)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}
	return &Runner{
		sources:         cfg.Sources,
		schools:         cfg.Schools,
		schoolDocs:      cfg.SchoolDocs,
		lms:             cfg.LMS,
		notifier:        cfg.Notifier,
		metrics:         cfg.Metrics,
		batchLimit:      cfg.BatchLimit,
		defaultSchoolID: cfg.DefaultSchoolID,
		logger:          cfg.Logger,
	}
}

// Run executes one bounded batch for the synchronizer against the given
// school (the configured default when empty). Nothing propagates to the
// caller: context-resolution failures abort this run only, per-record
// failures are absorbed into the watermark status.
func (r *Runner) Run(ctx context.Context, s Synchronizer, schoolID string) {
	if schoolID == "" {
		schoolID = r.defaultSchoolID
	}
	log := r.logger.Sugar().With("job", s.Job(), "lms", s.LMS(), "school_id", schoolID)

	run, err := r.resolveContext(ctx, s, schoolID)
	if err != nil {
		log.Warnw("run aborted, context resolution failed", "error", err)
		r.metrics.RunAborted(s.Job(), s.LMS())
		return
	}

	if err := r.sources.InitWatermarks(ctx, s.SourceTable(), s.Job()); err != nil {
		log.Errorw("run aborted, watermark init failed", "error", err)
		r.metrics.RunAborted(s.Job(), s.LMS())
		return
	}

	records, err := r.sources.FetchPending(ctx, s.SourceTable(), s.Job(), r.batchLimit)
	if err != nil {
		log.Errorw("run aborted, pending fetch failed", "error", err)
		r.metrics.RunAborted(s.Job(), s.LMS())
		return
	}

	scoped, isScoped := s.(RunScoped)
	if isScoped {
		scoped.BeginRun(run)
	}

	// Successes of a run-scoped synchronizer are not watermarked until
	// EndRun confirms the flush; everything else is marked as it happens.
	results := make([]Result, len(records))
	var deferred []int
	interrupted := false
	for i, record := range records {
		if ctx.Err() != nil {
			// Shutdown mid-batch: untouched records keep their old
			// watermark and stay pending for the next run.
			log.Infow("run interrupted", "remaining", len(records)-i)
			interrupted = true
			break
		}

		results[i] = r.syncOne(ctx, s, run, record)
		if isScoped && results[i].Outcome == OutcomeSuccess {
			deferred = append(deferred, i)
			continue
		}
		r.finish(ctx, s, log, record, results[i])
	}

	if isScoped {
		failedIDs, err := scoped.EndRun(ctx, run)
		if err != nil {
			log.Errorw("run finalization failed", "error", err)
		}
		failed := make(map[int64]bool, len(failedIDs))
		for _, id := range failedIDs {
			failed[id] = true
		}
		for _, i := range deferred {
			result := results[i]
			if failed[records[i].ID] {
				result = Failure(ReasonPersist, err)
			}
			r.finish(ctx, s, log, records[i], result)
		}
	}

	if interrupted {
		return
	}
	r.metrics.RunCompleted(s.Job(), s.LMS(), len(records))
	log.Infow("run completed", "records", len(records))
}

// finish writes the record's watermark, bumps metrics, and routes persist
// failures to the notification channel.
func (r *Runner) finish(ctx context.Context, s Synchronizer, log *zap.SugaredLogger, record models.SourceRecord, result Result) {
	if err := r.sources.MarkProcessed(ctx, s.SourceTable(), s.Job(), record.ID, result.Succeeded()); err != nil {
		log.Errorw("watermark write failed", "record_id", record.ID, "error", err)
	}
	r.metrics.RecordProcessed(s.Job(), s.LMS(), result)

	switch result.Outcome {
	case OutcomeFailure:
		log.Warnw("record failed", "record_id", record.ID, "outcome", result.String())
		if result.Reason == ReasonPersist {
			r.notifier.Notify(ctx, Notification{
				Title:      fmt.Sprintf("%s sync persist failure", s.Job()),
				Body:       fmt.Sprintf("record %d on %s: %v", record.ID, s.SourceTable(), result.Err),
				Recipients: []string{"sis-operations"},
			})
		}
	case OutcomeSkip:
		log.Debugw("record skipped", "record_id", record.ID, "reason", result.Reason)
	}
}

func (r *Runner) resolveContext(ctx context.Context, s Synchronizer, schoolID string) (*RunContext, error) {
	school, err := r.schools.FindByID(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("%w: school %s: %w", appErrors.ErrContextResolution, schoolID, err)
	}
	schoolDoc, err := r.schoolDocs.GetSchool(ctx, school.UUID)
	if err != nil {
		return nil, fmt.Errorf("%w: school document %s: %w", appErrors.ErrContextResolution, school.UUID, err)
	}
	lms, err := r.lms.FindByName(ctx, s.LMS())
	if err != nil {
		return nil, fmt.Errorf("%w: lms %s: %w", appErrors.ErrContextResolution, s.LMS(), err)
	}
	return &RunContext{School: school, SchoolDoc: schoolDoc, LMS: lms}, nil
}

// syncOne guards one Sync call, converting panics into failures so a
// malformed record can never take down the batch.
func (r *Runner) syncOne(ctx context.Context, s Synchronizer, run *RunContext, record models.SourceRecord) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Failure(ReasonDecode, fmt.Errorf("panic syncing record %d: %v", record.ID, rec))
		}
	}()
	return s.Sync(ctx, run, record)
}
