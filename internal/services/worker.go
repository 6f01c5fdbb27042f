package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"bhiv/hr-platform/internal/models"
	"bhiv/hr-platform/internal/repositories"
)

var errRunnerStopped = errors.New("workflow runner stopped")

type WorkflowRunner interface {
	Start(ctx context.Context)
	Stop()
	Submit(ctx context.Context, req models.StartWorkflowRequest) (*models.Workflow, error)
	// Enqueue is non-blocking. A full queue leaves the workflow pending for the poller.
	Enqueue(id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) (*models.Workflow, error)
}

type RunnerOptions struct {
	Concurrency     int
	QueueSize       int
	WorkflowTimeout time.Duration
	PollInterval    time.Duration
}

type worker struct {
	tracker  WorkflowTracker
	pipeline ApplicationPipeline
	opts     RunnerOptions
	log      *zap.Logger

	jobQueue chan uuid.UUID
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}

	mu       sync.Mutex
	queued   map[uuid.UUID]struct{}
	inFlight map[uuid.UUID]context.CancelCauseFunc
	cancel   context.CancelCauseFunc
}

func NewWorkflowRunner(tracker WorkflowTracker, pipeline ApplicationPipeline, opts RunnerOptions, log *zap.Logger) WorkflowRunner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 100
	}
	if opts.WorkflowTimeout <= 0 {
		opts.WorkflowTimeout = 5 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}

	return &worker{
		tracker:  tracker,
		pipeline: pipeline,
		opts:     opts,
		log:      log.Named("runner"),
		jobQueue: make(chan uuid.UUID, opts.QueueSize),
		stopChan: make(chan struct{}),
		queued:   make(map[uuid.UUID]struct{}),
		inFlight: make(map[uuid.UUID]context.CancelCauseFunc),
	}
}

// Start implements WorkflowRunner.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("🚀 Starting workflow runner", zap.Int("workers", w.opts.Concurrency))

	ctx, cancel := context.WithCancelCause(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	for i := 0; i < w.opts.Concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingJobs(ctx)

	w.log.Info("✅ Workflow runner started")
}

// Stop implements WorkflowRunner. Running workflows are interrupted and marked failed.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("🛑 Stopping workflow runner...")
		close(w.stopChan)
		w.mu.Lock()
		if w.cancel != nil {
			w.cancel(errRunnerStopped)
		}
		w.mu.Unlock()
		w.wg.Wait()
		w.log.Info("✅ Workflow runner stopped")
	})
}

// Submit implements WorkflowRunner.
func (w *worker) Submit(ctx context.Context, req models.StartWorkflowRequest) (*models.Workflow, error) {
	wf := &models.Workflow{
		WorkflowID:   uuid.New(),
		WorkflowType: models.WorkflowTypeCandidateApplication,
		Status:       models.WorkflowPending,
		CurrentStep:  string(models.WorkflowPending),
		TotalSteps:   len(ApplicationStages),
		CandidateID:  req.CandidateID,
		JobID:        req.JobID,
		InputData:    datatypes.JSONMap(InputFromRequest(req)),
		OutputData:   datatypes.JSONMap{},
	}

	if err := w.tracker.Create(ctx, wf); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	if err := w.Enqueue(wf.WorkflowID); err != nil {
		w.log.Warn("⚠️  Workflow left pending", zap.String("workflow_id", wf.WorkflowID.String()), zap.Error(err))
	}
	return wf, nil
}

// Enqueue implements WorkflowRunner.
func (w *worker) Enqueue(id uuid.UUID) error {
	select {
	case <-w.stopChan:
		return errRunnerStopped
	default:
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.queued[id]; ok {
		return nil
	}
	if _, ok := w.inFlight[id]; ok {
		return nil
	}

	select {
	case w.jobQueue <- id:
		w.queued[id] = struct{}{}
		w.log.Debug("📥 Workflow enqueued", zap.String("workflow_id", id.String()))
		return nil
	default:
		return ErrQueueFull
	}
}

// Cancel implements WorkflowRunner.
func (w *worker) Cancel(ctx context.Context, id uuid.UUID) (*models.Workflow, error) {
	wf, err := w.tracker.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, repositories.ErrWorkflowNotFound
	}
	if wf.Status.IsTerminal() {
		return wf, repositories.ErrWorkflowTerminal
	}

	w.mu.Lock()
	cancel, running := w.inFlight[id]
	if running {
		cancel(ErrWorkflowCancelled)
	}
	w.mu.Unlock()

	if running {
		w.log.Info("🛑 Cancellation requested", zap.String("workflow_id", id.String()))
		return wf, nil
	}

	return w.markCancelled(ctx, id)
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			w.log.Debug("👷 Worker stopped", zap.Int("worker", workerID))
			return
		case id := <-w.jobQueue:
			w.mu.Lock()
			delete(w.queued, id)
			w.mu.Unlock()

			w.log.Info("👷 Worker processing workflow", zap.Int("worker", workerID), zap.String("workflow_id", id.String()))
			w.run(ctx, id)
		}
	}
}

func (w *worker) pollPendingJobs(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			pending, err := w.tracker.Pending(ctx, w.opts.QueueSize)
			if err != nil {
				w.log.Warn("⚠️  Failed to fetch pending workflows", zap.Error(err))
				continue
			}

			if len(pending) > 0 {
				w.log.Info("📋 Found pending workflows", zap.Int("count", len(pending)))
			}

			for _, wf := range pending {
				if err := w.Enqueue(wf.WorkflowID); err != nil {
					break
				}
			}
		}
	}
}

func (w *worker) run(parent context.Context, id uuid.UUID) {
	w.mu.Lock()
	if _, busy := w.inFlight[id]; busy {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancelCause(parent)
	w.inFlight[id] = cancel
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.inFlight, id)
		w.mu.Unlock()
		cancel(nil)
	}()

	wf, err := w.tracker.Get(ctx, id)
	if err != nil || wf == nil || wf.Status != models.WorkflowPending {
		return
	}

	running := models.WorkflowRunning
	step := StageInitializing
	if _, err := w.tracker.Update(ctx, id, WorkflowPatch{Status: &running, CurrentStep: &step}); err != nil {
		w.log.Debug("Workflow not started", zap.String("workflow_id", id.String()), zap.Error(err))
		return
	}

	runCtx, cancelTimeout := context.WithTimeoutCause(ctx, w.opts.WorkflowTimeout, ErrWorkflowTimeout)
	defer cancelTimeout()

	start := time.Now()
	err = w.pipeline.Execute(runCtx, wf)
	w.finish(id, err, time.Since(start))
}

// finish writes the single terminal transition for a run.
func (w *worker) finish(id uuid.UUID, runErr error, elapsed time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logFields := []zap.Field{zap.String("workflow_id", id.String()), zap.Duration("elapsed", elapsed)}

	if runErr == nil {
		status := models.WorkflowCompleted
		progress := 100
		step := StageCompleted
		if _, err := w.tracker.Update(ctx, id, WorkflowPatch{Status: &status, Progress: &progress, CurrentStep: &step}); err != nil {
			w.log.Warn("⚠️  Failed to complete workflow", append(logFields, zap.Error(err))...)
			return
		}
		w.log.Info("✅ Workflow completed", logFields...)
		return
	}

	if errors.Is(runErr, ErrWorkflowCancelled) {
		if _, err := w.markCancelled(ctx, id); err != nil && !errors.Is(err, repositories.ErrWorkflowTerminal) {
			w.log.Warn("⚠️  Failed to cancel workflow", append(logFields, zap.Error(err))...)
		}
		return
	}

	if errors.Is(runErr, repositories.ErrWorkflowTerminal) {
		w.log.Info("Workflow reached a terminal state elsewhere", logFields...)
		return
	}

	msg := runErr.Error()
	switch {
	case errors.Is(runErr, ErrWorkflowTimeout):
		msg = fmt.Sprintf("workflow timed out after %s", w.opts.WorkflowTimeout)
	case errors.Is(runErr, errRunnerStopped):
		msg = "workflow interrupted by service shutdown"
	}

	status := models.WorkflowFailed
	if _, err := w.tracker.Update(ctx, id, WorkflowPatch{Status: &status, ErrorMessage: &msg}); err != nil {
		w.log.Warn("⚠️  Failed to mark workflow failed", append(logFields, zap.Error(err))...)
		return
	}
	w.log.Error("❌ Workflow failed", append(logFields, zap.String("error", msg))...)
}

func (w *worker) markCancelled(ctx context.Context, id uuid.UUID) (*models.Workflow, error) {
	status := models.WorkflowCancelled
	msg := ErrWorkflowCancelled.Error()
	wf, err := w.tracker.Update(ctx, id, WorkflowPatch{Status: &status, ErrorMessage: &msg})
	if err != nil {
		return wf, err
	}
	w.log.Info("🛑 Workflow cancelled", zap.String("workflow_id", id.String()))
	return wf, nil
}
