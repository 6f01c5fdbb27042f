package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bhiv/hr-platform/internal/config"
	"bhiv/hr-platform/internal/models"
	"bhiv/hr-platform/internal/repositories"
)

// blockingMatcher holds every call until its context ends or release is closed.
type blockingMatcher struct {
	release  chan struct{}
	active   atomic.Int32
	maxSeen  atomic.Int32
	started  chan struct{}
	startOne sync.Once
}

func newBlockingMatcher() *blockingMatcher {
	return &blockingMatcher{release: make(chan struct{}), started: make(chan struct{})}
}

func (b *blockingMatcher) TopMatches(ctx context.Context, jobID int64, limit int) (*models.MatchResponse, error) {
	return b.Match(ctx, models.MatchRequest{JobID: jobID, Limit: limit})
}

func (b *blockingMatcher) Match(ctx context.Context, req models.MatchRequest) (*models.MatchResponse, error) {
	n := b.active.Add(1)
	defer b.active.Add(-1)
	for {
		seen := b.maxSeen.Load()
		if n <= seen || b.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	b.startOne.Do(func() { close(b.started) })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.release:
		return &models.MatchResponse{JobID: req.JobID, Matches: []models.MatchResult{{CandidateID: 1, Score: 80}}, AgentStatus: models.AgentConnected}, nil
	}
}

func (b *blockingMatcher) BatchMatch(context.Context, []int64) (*models.BatchMatchResponse, error) {
	return nil, errors.New("not used")
}

type runnerFixture struct {
	runner     WorkflowRunner
	tracker    WorkflowTracker
	hub        *ProgressHub
	candidates *repositories.MemoryCandidateRepository
}

func newRunnerFixture(t *testing.T, matcher MatcherService, opts RunnerOptions) *runnerFixture {
	t.Helper()
	log := zap.NewNop()
	hub := NewProgressHub()
	tracker := NewWorkflowTracker(repositories.NewMemoryWorkflowRepository(), hub, log)

	candidates := repositories.NewMemoryCandidateRepository(
		models.Candidate{ID: 1, Name: "Asha", TechnicalSkills: "Go, Docker, Kubernetes", Location: "Mumbai", ExperienceYears: 6},
		models.Candidate{ID: 2, Name: "Ravi", TechnicalSkills: "Excel", Location: "Delhi"},
	)
	jobs := repositories.NewMemoryJobRepository(
		models.Job{ID: 1, Title: "Backend Engineer", Requirements: "Go, Docker, Kubernetes", Location: "Mumbai", ExperienceLevel: "Senior"},
	)
	if matcher == nil {
		matcher = NewMatcherService(&fakeAgent{err: ErrAgentUnavailable}, candidates, jobs, NewMatchCache("", 0, log), 5, log)
	}

	notifier := NewNotificationService(config.NotificationModeMock, time.Second, 0, nil, log)
	pipeline := NewApplicationPipeline(tracker, matcher, NewRecommender(nil, 1, log), notifier, candidates, jobs, log)
	runner := NewWorkflowRunner(tracker, pipeline, opts, log)
	t.Cleanup(runner.Stop)

	return &runnerFixture{runner: runner, tracker: tracker, hub: hub, candidates: candidates}
}

func applicationRequest(candidateID int64) models.StartWorkflowRequest {
	return models.StartWorkflowRequest{
		CandidateID:    candidateID,
		JobID:          1,
		ApplicationID:  10,
		CandidateName:  "Asha",
		CandidateEmail: "asha@example.com",
		CandidatePhone: "9284967526",
		JobTitle:       "Backend Engineer",
	}
}

func waitForTerminal(t *testing.T, tracker WorkflowTracker, id uuid.UUID) *models.Workflow {
	t.Helper()
	var wf *models.Workflow
	require.Eventually(t, func() bool {
		got, err := tracker.Get(context.Background(), id)
		if err != nil || got == nil {
			return false
		}
		wf = got
		return got.Status.IsTerminal()
	}, 3*time.Second, 10*time.Millisecond)
	return wf
}

func TestRunnerCompletesApplication(t *testing.T) {
	f := newRunnerFixture(t, nil, RunnerOptions{Concurrency: 2, PollInterval: time.Hour})
	ctx := context.Background()

	wf, err := f.runner.Submit(ctx, applicationRequest(1))
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowPending, wf.Status)

	events, unsubscribe := f.hub.Subscribe(wf.WorkflowID.String())
	defer unsubscribe()

	f.runner.Start(ctx)
	final := waitForTerminal(t, f.tracker, wf.WorkflowID)

	assert.Equal(t, models.WorkflowCompleted, final.Status)
	assert.Equal(t, 100, final.ProgressPercentage)
	assert.Equal(t, StageCompleted, final.CurrentStep)
	assert.Equal(t, len(ApplicationStages), final.TotalSteps)
	assert.Nil(t, final.ErrorMessage)
	assert.NotNil(t, final.StartedAt)
	assert.NotNil(t, final.CompletedAt)

	assert.Equal(t, DecisionShortlisted, final.OutputData["application_status"])
	assert.Equal(t, string(models.AgentDisconnected), final.OutputData["agent_status"])
	notifications, ok := final.OutputData["notifications"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, notifications, 2)
	assert.Equal(t, string(models.NotificationMockSent), notifications[0]["status"])

	last := -1
	for {
		select {
		case ev := <-events:
			assert.GreaterOrEqual(t, ev.ProgressPercentage, last)
			last = ev.ProgressPercentage
			continue
		default:
		}
		break
	}
	assert.Equal(t, 100, last)
}

func TestRunnerLowScoreIsRejected(t *testing.T) {
	f := newRunnerFixture(t, nil, RunnerOptions{PollInterval: time.Hour})
	f.runner.Start(context.Background())

	req := applicationRequest(2)
	req.CandidateName = "Ravi"
	wf, err := f.runner.Submit(context.Background(), req)
	require.NoError(t, err)

	final := waitForTerminal(t, f.tracker, wf.WorkflowID)
	assert.Equal(t, models.WorkflowCompleted, final.Status)
	assert.Equal(t, DecisionRejected, final.OutputData["application_status"])
}

func TestRunnerFailsWhenMatchingFails(t *testing.T) {
	f := newRunnerFixture(t, nil, RunnerOptions{PollInterval: time.Hour})
	f.candidates.Err = errors.New("database unreachable")
	f.runner.Start(context.Background())

	wf, err := f.runner.Submit(context.Background(), applicationRequest(1))
	require.NoError(t, err)

	final := waitForTerminal(t, f.tracker, wf.WorkflowID)
	assert.Equal(t, models.WorkflowFailed, final.Status)
	require.NotNil(t, final.ErrorMessage)
	assert.Contains(t, *final.ErrorMessage, StageAIMatching)
	assert.Equal(t, StageAIMatching, final.CurrentStep)
	assert.Equal(t, StageProgress(3), final.ProgressPercentage)

	status := models.WorkflowCompleted
	_, err = f.tracker.Update(context.Background(), wf.WorkflowID, WorkflowPatch{Status: &status})
	assert.ErrorIs(t, err, repositories.ErrWorkflowTerminal)
}

func TestRunnerFailsInvalidApplication(t *testing.T) {
	f := newRunnerFixture(t, nil, RunnerOptions{PollInterval: time.Hour})
	f.runner.Start(context.Background())

	req := applicationRequest(1)
	req.CandidateName = ""
	req.CandidateEmail = ""
	req.CandidatePhone = ""
	wf, err := f.runner.Submit(context.Background(), req)
	require.NoError(t, err)

	final := waitForTerminal(t, f.tracker, wf.WorkflowID)
	assert.Equal(t, models.WorkflowFailed, final.Status)
	require.NotNil(t, final.ErrorMessage)
	assert.Contains(t, *final.ErrorMessage, "candidate_name is required")
}

func TestRunnerCancelPending(t *testing.T) {
	f := newRunnerFixture(t, nil, RunnerOptions{PollInterval: time.Hour})
	ctx := context.Background()

	wf, err := f.runner.Submit(ctx, applicationRequest(1))
	require.NoError(t, err)

	cancelled, err := f.runner.Cancel(ctx, wf.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowCancelled, cancelled.Status)

	_, err = f.runner.Cancel(ctx, wf.WorkflowID)
	assert.ErrorIs(t, err, repositories.ErrWorkflowTerminal)

	_, err = f.runner.Cancel(ctx, uuid.New())
	assert.ErrorIs(t, err, repositories.ErrWorkflowNotFound)

	f.runner.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	got, err := f.tracker.Get(ctx, wf.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowCancelled, got.Status)
}

func TestRunnerCancelRunning(t *testing.T) {
	matcher := newBlockingMatcher()
	f := newRunnerFixture(t, matcher, RunnerOptions{PollInterval: time.Hour})
	ctx := context.Background()
	f.runner.Start(ctx)

	wf, err := f.runner.Submit(ctx, applicationRequest(1))
	require.NoError(t, err)
	<-matcher.started

	_, err = f.runner.Cancel(ctx, wf.WorkflowID)
	require.NoError(t, err)

	final := waitForTerminal(t, f.tracker, wf.WorkflowID)
	assert.Equal(t, models.WorkflowCancelled, final.Status)
	assert.Equal(t, StageAIMatching, final.CurrentStep)
}

func TestRunnerTimesOut(t *testing.T) {
	f := newRunnerFixture(t, newBlockingMatcher(), RunnerOptions{WorkflowTimeout: 50 * time.Millisecond, PollInterval: time.Hour})
	f.runner.Start(context.Background())

	wf, err := f.runner.Submit(context.Background(), applicationRequest(1))
	require.NoError(t, err)

	final := waitForTerminal(t, f.tracker, wf.WorkflowID)
	assert.Equal(t, models.WorkflowFailed, final.Status)
	require.NotNil(t, final.ErrorMessage)
	assert.Contains(t, *final.ErrorMessage, "timed out")
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	matcher := newBlockingMatcher()
	f := newRunnerFixture(t, matcher, RunnerOptions{Concurrency: 2, PollInterval: time.Hour})
	ctx := context.Background()
	f.runner.Start(ctx)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		wf, err := f.runner.Submit(ctx, applicationRequest(1))
		require.NoError(t, err)
		ids = append(ids, wf.WorkflowID)
	}

	require.Eventually(t, func() bool { return matcher.active.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(2), matcher.maxSeen.Load())

	close(matcher.release)
	for _, id := range ids {
		assert.Equal(t, models.WorkflowCompleted, waitForTerminal(t, f.tracker, id).Status)
	}
	assert.LessOrEqual(t, matcher.maxSeen.Load(), int32(2))
}

func TestRunnerPollerPicksUpOverflow(t *testing.T) {
	f := newRunnerFixture(t, nil, RunnerOptions{QueueSize: 1, PollInterval: 20 * time.Millisecond})
	ctx := context.Background()

	first, err := f.runner.Submit(ctx, applicationRequest(1))
	require.NoError(t, err)
	second, err := f.runner.Submit(ctx, applicationRequest(1))
	require.NoError(t, err)

	assert.ErrorIs(t, f.runner.Enqueue(uuid.New()), ErrQueueFull)

	got, err := f.tracker.Get(ctx, second.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowPending, got.Status)
	assert.Equal(t, 0, got.ProgressPercentage)

	f.runner.Start(ctx)
	assert.Equal(t, models.WorkflowCompleted, waitForTerminal(t, f.tracker, first.WorkflowID).Status)
	assert.Equal(t, models.WorkflowCompleted, waitForTerminal(t, f.tracker, second.WorkflowID).Status)
}

func TestRunnerStopInterruptsRunning(t *testing.T) {
	matcher := newBlockingMatcher()
	f := newRunnerFixture(t, matcher, RunnerOptions{PollInterval: time.Hour})
	f.runner.Start(context.Background())

	wf, err := f.runner.Submit(context.Background(), applicationRequest(1))
	require.NoError(t, err)
	<-matcher.started

	f.runner.Stop()

	got, err := f.tracker.Get(context.Background(), wf.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "shutdown")
	assert.ErrorIs(t, f.runner.Enqueue(uuid.New()), errRunnerStopped)
}

func TestStageProgress(t *testing.T) {
	assert.Equal(t, 0, StageProgress(0))
	assert.Equal(t, 50, StageProgress(3))
	assert.Equal(t, 100, StageProgress(len(ApplicationStages)))
}

func TestRequestFromInputHandlesDecodedJSON(t *testing.T) {
	wf := &models.Workflow{InputData: map[string]any{
		"candidate_id":    float64(4),
		"job_id":          float64(9),
		"candidate_name":  "Meera",
		"candidate_email": "meera@example.com",
	}}
	req := requestFromInput(wf)
	assert.Equal(t, int64(4), req.CandidateID)
	assert.Equal(t, int64(9), req.JobID)
	assert.Equal(t, "Meera", req.CandidateName)
}
