package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"bhiv/hr-platform/internal/models"
	"bhiv/hr-platform/internal/repositories"
)

const (
	MinMatchLimit = 1
	MaxMatchLimit = 10
	MaxBatchJobs  = 10
)

type MatcherService interface {
	TopMatches(ctx context.Context, jobID int64, limit int) (*models.MatchResponse, error)
	Match(ctx context.Context, req models.MatchRequest) (*models.MatchResponse, error)
	BatchMatch(ctx context.Context, jobIDs []int64) (*models.BatchMatchResponse, error)
}

type matcherService struct {
	agent         AgentClient
	fallback      *FallbackScorer
	candidateRepo repositories.CandidateRepository
	jobRepo       repositories.JobRepository
	cache         MatchCache
	batchLimit    int
	log           *zap.Logger
}

func NewMatcherService(
	agent AgentClient,
	candidateRepo repositories.CandidateRepository,
	jobRepo repositories.JobRepository,
	cache MatchCache,
	batchLimit int,
	log *zap.Logger,
) MatcherService {
	if batchLimit < MinMatchLimit || batchLimit > MaxMatchLimit {
		batchLimit = 5
	}
	return &matcherService{
		agent:         agent,
		fallback:      NewFallbackScorer(),
		candidateRepo: candidateRepo,
		jobRepo:       jobRepo,
		cache:         cache,
		batchLimit:    batchLimit,
		log:           log.Named("matcher"),
	}
}

func ValidateMatchRequest(jobID int64, limit int) error {
	if jobID <= 0 {
		return newValidationError("job_id", "must be a positive integer")
	}
	if limit < MinMatchLimit || limit > MaxMatchLimit {
		return newValidationError("limit", "must be between %d and %d", MinMatchLimit, MaxMatchLimit)
	}
	return nil
}

// ValidateBatchJobIDs checks size and positivity and returns the ids deduplicated in request order.
func ValidateBatchJobIDs(jobIDs []int64) ([]int64, error) {
	if len(jobIDs) == 0 {
		return nil, newValidationError("job_ids", "at least one job id is required")
	}
	if len(jobIDs) > MaxBatchJobs {
		return nil, newValidationError("job_ids", "at most %d job ids are allowed", MaxBatchJobs)
	}

	seen := make(map[int64]struct{}, len(jobIDs))
	out := make([]int64, 0, len(jobIDs))
	for _, id := range jobIDs {
		if id <= 0 {
			return nil, newValidationError("job_ids", "job id %d must be a positive integer", id)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func (m *matcherService) TopMatches(ctx context.Context, jobID int64, limit int) (*models.MatchResponse, error) {
	return m.Match(ctx, models.MatchRequest{JobID: jobID, Limit: limit})
}

func (m *matcherService) Match(ctx context.Context, req models.MatchRequest) (*models.MatchResponse, error) {
	if err := ValidateMatchRequest(req.JobID, req.Limit); err != nil {
		return nil, err
	}

	start := time.Now()
	key := MatchCacheKey(req.JobID, req.Limit, req.CandidateIDs)
	if cached, ok := m.cache.Get(ctx, key); ok {
		m.log.Debug("🎯 Match cache hit", zap.Int64("job_id", req.JobID))
		return cached, nil
	}

	res, err := m.agent.Match(ctx, req.JobID, req.CandidateIDs, req.Limit)
	if err == nil {
		resp := agentResponse(res, req.JobID, req.Limit, start)
		m.cache.Set(ctx, key, resp)
		m.log.Info("✅ Agent match completed",
			zap.Int64("job_id", req.JobID),
			zap.Int("matches", len(resp.Matches)))
		return resp, nil
	}

	m.log.Warn("⚠️  Agent unavailable, using fallback scorer", zap.Int64("job_id", req.JobID), zap.Error(err))

	candidates, err := m.candidateRepo.List(ctx, req.CandidateIDs)
	if err != nil {
		m.log.Error("❌ Fallback failed to load candidates", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMatchingUnavailable, err)
	}

	return m.fallbackResponse(ctx, req.JobID, req.Limit, candidates, start)
}

func (m *matcherService) BatchMatch(ctx context.Context, jobIDs []int64) (*models.BatchMatchResponse, error) {
	ids, err := ValidateBatchJobIDs(jobIDs)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := m.agent.BatchMatch(ctx, ids)
	if err == nil {
		if missing := missingJobs(ids, results); len(missing) > 0 {
			err = fmt.Errorf("%w: batch response missing jobs %v", ErrAgentUnavailable, missing)
		}
	}

	if err == nil {
		out := newBatchResponse(models.AgentConnected)
		for _, id := range ids {
			entry := agentResponse(results[id], id, m.batchLimit, start)
			out.add(id, entry)
			out.AlgorithmVersion = entry.AlgorithmVersion
		}
		m.log.Info("✅ Agent batch match completed", zap.Int("jobs", len(ids)))
		return &out.BatchMatchResponse, nil
	}

	m.log.Warn("⚠️  Agent batch unavailable, using fallback scorer", zap.Int("jobs", len(ids)), zap.Error(err))

	candidates, err := m.candidateRepo.List(ctx, nil)
	if err != nil {
		m.log.Error("❌ Fallback failed to load candidates", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMatchingUnavailable, err)
	}

	out := newBatchResponse(models.AgentDisconnected)
	out.AlgorithmVersion = FallbackAlgorithmVersion
	for _, id := range ids {
		entry, err := m.fallbackResponse(ctx, id, m.batchLimit, candidates, start)
		if err != nil {
			return nil, err
		}
		out.add(id, entry)
	}
	return &out.BatchMatchResponse, nil
}

func (m *matcherService) fallbackResponse(ctx context.Context, jobID int64, limit int, candidates []models.Candidate, start time.Time) (*models.MatchResponse, error) {
	resp := &models.MatchResponse{
		JobID:            jobID,
		Matches:          []models.MatchResult{},
		Limit:            limit,
		AlgorithmVersion: FallbackAlgorithmVersion,
		AgentStatus:      models.AgentDisconnected,
	}

	job, err := m.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			m.log.Info("Job not found for fallback, returning no matches", zap.Int64("job_id", jobID))
			resp.ProcessingTime = formatElapsed(start)
			return resp, nil
		}
		m.log.Error("❌ Fallback failed to load job", zap.Int64("job_id", jobID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMatchingUnavailable, err)
	}

	resp.Matches = m.fallback.Rank(job, candidates, limit)
	resp.TotalCandidates = len(candidates)
	resp.ProcessingTime = formatElapsed(start)
	return resp, nil
}

func agentResponse(res *AgentMatchResult, jobID int64, limit int, start time.Time) *models.MatchResponse {
	matches := res.Candidates
	if len(matches) > limit {
		matches = matches[:limit]
	}
	if matches == nil {
		matches = []models.MatchResult{}
	}

	version := res.AlgorithmVersion
	if version == "" {
		version = "agent"
	}

	return &models.MatchResponse{
		JobID:            jobID,
		Matches:          matches,
		Limit:            limit,
		TotalCandidates:  res.TotalCandidates,
		AlgorithmVersion: version,
		ProcessingTime:   formatElapsed(start),
		AgentStatus:      models.AgentConnected,
	}
}

func missingJobs(ids []int64, results map[int64]*AgentMatchResult) []int64 {
	var missing []int64
	for _, id := range ids {
		if results[id] == nil {
			missing = append(missing, id)
		}
	}
	return missing
}

type batchBuilder struct {
	models.BatchMatchResponse
}

func newBatchResponse(status models.AgentStatus) *batchBuilder {
	return &batchBuilder{models.BatchMatchResponse{
		BatchResults: make(map[string]models.MatchResponse),
		AgentStatus:  status,
	}}
}

func (b *batchBuilder) add(jobID int64, entry *models.MatchResponse) {
	b.BatchResults[strconv.FormatInt(jobID, 10)] = *entry
	b.TotalJobsProcessed++
	b.TotalCandidatesAnalyzed += entry.TotalCandidates
}

func formatElapsed(start time.Time) string {
	return fmt.Sprintf("%.3fs", time.Since(start).Seconds())
}
