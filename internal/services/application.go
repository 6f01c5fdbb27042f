package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bhiv/hr-platform/internal/models"
	"bhiv/hr-platform/internal/repositories"
)

// Application pipeline stages in execution order.
const (
	StageInitializing              = "initializing"
	StageValidating                = "validating"
	StageScreening                 = "screening"
	StageAIMatching                = "ai_matching"
	StageGeneratingRecommendations = "generating_recommendations"
	StageFinalizing                = "finalizing"
	StageCompleted                 = "completed"
)

var ApplicationStages = []string{
	StageInitializing,
	StageValidating,
	StageScreening,
	StageAIMatching,
	StageGeneratingRecommendations,
	StageFinalizing,
}

// StageProgress is the percentage reached once `completed` stages are done.
func StageProgress(completed int) int {
	return completed * 100 / len(ApplicationStages)
}

// StageError marks which stage a workflow failed in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// applicationRun carries state between stages of one workflow execution.
type applicationRun struct {
	wf         *models.Workflow
	input      models.StartWorkflowRequest
	candidate  *models.Candidate
	job        *models.Job
	match      models.MatchResult
	agent      models.AgentStatus
	algorithm  string
	decision   string
	recommend  Recommendation
	notified   []models.NotificationResult
	stageNotes map[string]any
}

type stageFunc func(ctx context.Context, run *applicationRun) error

type ApplicationPipeline interface {
	Execute(ctx context.Context, wf *models.Workflow) error
}

type applicationPipeline struct {
	tracker       WorkflowTracker
	matcher       MatcherService
	recommender   Recommender
	notifier      NotificationService
	candidateRepo repositories.CandidateRepository
	jobRepo       repositories.JobRepository
	log           *zap.Logger
}

func NewApplicationPipeline(
	tracker WorkflowTracker,
	matcher MatcherService,
	recommender Recommender,
	notifier NotificationService,
	candidateRepo repositories.CandidateRepository,
	jobRepo repositories.JobRepository,
	log *zap.Logger,
) ApplicationPipeline {
	return &applicationPipeline{
		tracker:       tracker,
		matcher:       matcher,
		recommender:   recommender,
		notifier:      notifier,
		candidateRepo: candidateRepo,
		jobRepo:       jobRepo,
		log:           log.Named("application"),
	}
}

// Execute runs every stage in order, checking ctx before each one. It returns a
// *StageError for stage failures or the context cause when cancelled. It never
// writes a terminal status; the runner owns that transition.
func (p *applicationPipeline) Execute(ctx context.Context, wf *models.Workflow) error {
	run := &applicationRun{
		wf:         wf,
		input:      requestFromInput(wf),
		stageNotes: map[string]any{},
	}

	stages := map[string]stageFunc{
		StageInitializing:              p.initialize,
		StageValidating:                p.validate,
		StageScreening:                 p.screen,
		StageAIMatching:                p.aiMatch,
		StageGeneratingRecommendations: p.recommendStage,
		StageFinalizing:                p.finalize,
	}

	for i, stage := range ApplicationStages {
		if err := ctx.Err(); err != nil {
			return context.Cause(ctx)
		}

		step := stage
		if _, err := p.tracker.Update(ctx, wf.WorkflowID, WorkflowPatch{CurrentStep: &step}); err != nil {
			return stageRecordError(ctx, stage, err)
		}

		p.log.Info("🔄 Stage started", zap.String("workflow_id", wf.WorkflowID.String()), zap.String("stage", stage))

		if err := stages[stage](ctx, run); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return context.Cause(ctx)
			}
			return &StageError{Stage: stage, Err: err}
		}

		progress := StageProgress(i + 1)
		patch := WorkflowPatch{Progress: &progress}
		if note, ok := run.stageNotes[stage]; ok {
			patch.Output = map[string]any{stage: note}
		}
		if _, err := p.tracker.Update(ctx, wf.WorkflowID, patch); err != nil {
			return stageRecordError(ctx, stage, err)
		}
	}

	return nil
}

func stageRecordError(ctx context.Context, stage string, err error) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	return fmt.Errorf("failed to record stage %s: %w", stage, err)
}

func (p *applicationPipeline) initialize(_ context.Context, run *applicationRun) error {
	run.stageNotes[StageInitializing] = map[string]any{
		"workflow_type": run.wf.WorkflowType,
		"stages":        len(ApplicationStages),
	}
	return nil
}

func (p *applicationPipeline) validate(_ context.Context, run *applicationRun) error {
	in := run.input
	var problems []string
	if in.CandidateID <= 0 {
		problems = append(problems, "candidate_id must be positive")
	}
	if in.JobID <= 0 {
		problems = append(problems, "job_id must be positive")
	}
	if strings.TrimSpace(in.CandidateName) == "" {
		problems = append(problems, "candidate_name is required")
	}
	if strings.TrimSpace(in.CandidateEmail) == "" && strings.TrimSpace(in.CandidatePhone) == "" {
		problems = append(problems, "candidate_email or candidate_phone is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid application: %s", strings.Join(problems, "; "))
	}
	run.stageNotes[StageValidating] = map[string]any{"valid": true}
	return nil
}

func (p *applicationPipeline) screen(ctx context.Context, run *applicationRun) error {
	candidates, err := p.candidateRepo.List(ctx, []int64{run.input.CandidateID})
	if err != nil {
		p.log.Warn("⚠️  Candidate lookup failed, using application payload", zap.Error(err))
	} else if len(candidates) > 0 {
		run.candidate = &candidates[0]
	}

	job, err := p.jobRepo.FindByID(ctx, run.input.JobID)
	if err == nil {
		run.job = job
	} else {
		p.log.Debug("Job lookup failed, using application payload", zap.Error(err))
	}

	if run.input.JobTitle == "" && run.job != nil {
		run.input.JobTitle = run.job.Title
	}
	if run.input.CandidateName == "" && run.candidate != nil {
		run.input.CandidateName = run.candidate.Name
	}

	run.stageNotes[StageScreening] = map[string]any{
		"candidate_on_file": run.candidate != nil,
		"job_on_file":       run.job != nil,
	}
	return nil
}

func (p *applicationPipeline) aiMatch(ctx context.Context, run *applicationRun) error {
	resp, err := p.matcher.Match(ctx, models.MatchRequest{
		JobID:        run.input.JobID,
		CandidateIDs: []int64{run.input.CandidateID},
		Limit:        1,
	})
	if err != nil {
		return err
	}

	run.agent = resp.AgentStatus
	run.algorithm = resp.AlgorithmVersion
	run.match = models.MatchResult{CandidateID: run.input.CandidateID, Name: run.input.CandidateName, RecommendationStrength: models.StrengthLow}
	for _, m := range resp.Matches {
		if m.CandidateID == run.input.CandidateID {
			run.match = m
			break
		}
	}

	run.stageNotes[StageAIMatching] = map[string]any{
		"score":             run.match.Score,
		"agent_status":      string(run.agent),
		"algorithm_version": run.algorithm,
	}
	return nil
}

func (p *applicationPipeline) recommendStage(ctx context.Context, run *applicationRun) error {
	run.decision = DecisionForScore(run.match.Score)
	run.recommend = p.recommender.Recommend(ctx, RecommendationInput{
		CandidateName: run.input.CandidateName,
		JobTitle:      run.input.JobTitle,
		Score:         run.match.Score,
		Decision:      run.decision,
		Match:         run.match,
	})

	run.stageNotes[StageGeneratingRecommendations] = map[string]any{
		"decision":              run.decision,
		"recommendation":        run.recommend.Text,
		"recommendation_source": run.recommend.Source,
	}
	return nil
}

// finalize sends notifications best-effort and writes the summary output.
func (p *applicationPipeline) finalize(ctx context.Context, run *applicationRun) error {
	if run.decision == DecisionShortlisted || run.decision == DecisionRejected {
		channels := []models.Channel{models.ChannelEmail, models.ChannelWhatsApp}
		if run.input.TelegramChatID != "" {
			channels = append(channels, models.ChannelTelegram)
		}
		run.notified = p.notifier.Send(ctx, models.NotificationEvent{
			CandidateID:       run.input.CandidateID,
			CandidateName:     run.input.CandidateName,
			CandidateEmail:    run.input.CandidateEmail,
			CandidatePhone:    run.input.CandidatePhone,
			TelegramChatID:    run.input.TelegramChatID,
			JobTitle:          run.input.JobTitle,
			ApplicationStatus: run.decision,
			Message:           notificationMessage(run),
		}, channels)
	} else {
		p.log.Info("⏭️ No notification needed", zap.String("decision", run.decision))
	}

	notifications := make([]map[string]any, 0, len(run.notified))
	for _, r := range run.notified {
		entry := map[string]any{
			"channel":   string(r.Channel),
			"status":    string(r.Status),
			"recipient": r.Recipient,
		}
		if r.MessageID != nil {
			entry["message_id"] = *r.MessageID
		}
		if r.Error != nil {
			entry["error"] = *r.Error
		}
		notifications = append(notifications, entry)
	}

	p.log.Info("📊 Application feedback recorded",
		zap.String("workflow_id", run.wf.WorkflowID.String()),
		zap.Int64("candidate_id", run.input.CandidateID),
		zap.Int64("job_id", run.input.JobID),
		zap.Float64("score", run.match.Score),
		zap.String("decision", run.decision))

	run.stageNotes[StageFinalizing] = map[string]any{"notifications_sent": len(notifications)}

	_, err := p.tracker.Update(ctx, run.wf.WorkflowID, WorkflowPatch{Output: map[string]any{
		"application_status":      run.decision,
		"matching_score":          run.match.Score,
		"recommendation_strength": string(run.match.RecommendationStrength),
		"recommendation":          run.recommend.Text,
		"agent_status":            string(run.agent),
		"algorithm_version":       run.algorithm,
		"notifications":           notifications,
	}})
	return err
}

func notificationMessage(run *applicationRun) string {
	if run.decision == DecisionShortlisted {
		return fmt.Sprintf("Congratulations! You have been shortlisted for the %s position. AI Matching Score: %.1f/100. Our HR team will contact you soon to schedule an interview.",
			run.input.JobTitle, run.match.Score)
	}
	return fmt.Sprintf("Thank you for applying to the %s position. After careful review we will not be moving forward at this time. Your Matching Score: %.1f/100.",
		run.input.JobTitle, run.match.Score)
}

func requestFromInput(wf *models.Workflow) models.StartWorkflowRequest {
	in := wf.InputData
	req := models.StartWorkflowRequest{
		CandidateID:    wf.CandidateID,
		JobID:          wf.JobID,
		ApplicationID:  toInt64(in["application_id"]),
		CandidateEmail: toString(in["candidate_email"]),
		CandidatePhone: toString(in["candidate_phone"]),
		CandidateName:  toString(in["candidate_name"]),
		JobTitle:       toString(in["job_title"]),
		JobDescription: toString(in["job_description"]),
		TelegramChatID: toString(in["telegram_chat_id"]),
	}
	if req.CandidateID == 0 {
		req.CandidateID = toInt64(in["candidate_id"])
	}
	if req.JobID == 0 {
		req.JobID = toInt64(in["job_id"])
	}
	return req
}

// InputFromRequest is the JSON map persisted as the workflow input.
func InputFromRequest(req models.StartWorkflowRequest) map[string]any {
	return map[string]any{
		"candidate_id":     req.CandidateID,
		"job_id":           req.JobID,
		"application_id":   req.ApplicationID,
		"candidate_email":  req.CandidateEmail,
		"candidate_phone":  req.CandidatePhone,
		"candidate_name":   req.CandidateName,
		"job_title":        req.JobTitle,
		"job_description":  req.JobDescription,
		"telegram_chat_id": req.TelegramChatID,
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toInt64 handles both in-memory ints and JSON-decoded float64s.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	}
	return 0
}
