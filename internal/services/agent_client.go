package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"bhiv/hr-platform/internal/logger"
	"bhiv/hr-platform/internal/models"
)

// AgentClient talks to the remote semantic matching agent.
type AgentClient interface {
	Match(ctx context.Context, jobID int64, candidateIDs []int64, limit int) (*AgentMatchResult, error)
	BatchMatch(ctx context.Context, jobIDs []int64) (map[int64]*AgentMatchResult, error)
	Health(ctx context.Context) error
}

type AgentMatchResult struct {
	JobID            int64
	Candidates       []models.MatchResult
	TotalCandidates  int
	AlgorithmVersion string
}

type agentClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

func NewAgentClient(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) AgentClient {
	return &agentClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Named("agent"),
	}
}

type agentMatchRequest struct {
	JobID        int64   `json:"job_id"`
	CandidateIDs []int64 `json:"candidate_ids,omitempty"`
	Limit        int     `json:"limit,omitempty"`
}

type agentBatchRequest struct {
	JobIDs []int64 `json:"job_ids"`
}

// flexString accepts either a JSON string or a list of strings.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("skills_match must be a string or list: %w", err)
	}
	*f = flexString(strings.Join(list, ", "))
	return nil
}

type agentCandidate struct {
	CandidateID            int64      `json:"candidate_id"`
	Name                   string     `json:"name"`
	Email                  string     `json:"email"`
	Score                  float64    `json:"score"`
	SkillsMatch            flexString `json:"skills_match"`
	ExperienceMatch        string     `json:"experience_match"`
	LocationMatch          string     `json:"location_match"`
	Reasoning              string     `json:"reasoning"`
	RecommendationStrength string     `json:"recommendation_strength"`
}

type agentMatchResponse struct {
	JobID            int64            `json:"job_id"`
	TopCandidates    []agentCandidate `json:"top_candidates"`
	TotalCandidates  int              `json:"total_candidates"`
	AlgorithmVersion string           `json:"algorithm_version"`
}

type agentBatchResponse struct {
	BatchResults map[string]agentMatchResponse `json:"batch_results"`
}

func (c *agentClient) Match(ctx context.Context, jobID int64, candidateIDs []int64, limit int) (*AgentMatchResult, error) {
	var resp agentMatchResponse
	req := agentMatchRequest{JobID: jobID, CandidateIDs: candidateIDs, Limit: limit}
	if err := c.post(ctx, "/match", req, &resp); err != nil {
		return nil, err
	}
	if resp.JobID == 0 {
		resp.JobID = jobID
	}
	return resp.toResult(), nil
}

func (c *agentClient) BatchMatch(ctx context.Context, jobIDs []int64) (map[int64]*AgentMatchResult, error) {
	var resp agentBatchResponse
	if err := c.post(ctx, "/batch-match", agentBatchRequest{JobIDs: jobIDs}, &resp); err != nil {
		return nil, err
	}

	out := make(map[int64]*AgentMatchResult, len(resp.BatchResults))
	for key, entry := range resp.BatchResults {
		var id int64
		if _, err := fmt.Sscan(key, &id); err != nil {
			return nil, fmt.Errorf("%w: bad batch key %q", ErrAgentUnavailable, key)
		}
		if entry.JobID == 0 {
			entry.JobID = id
		}
		out[id] = entry.toResult()
	}
	return out, nil
}

func (c *agentClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrAgentUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *agentClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal agent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("⚠️  Agent request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrAgentUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("⚠️  Agent returned error status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", logger.Truncate(string(raw), 200)))
		return fmt.Errorf("%w: status %d", ErrAgentUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrAgentUnavailable, err)
	}

	c.log.Debug("📡 Agent responded", zap.String("path", path), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (r agentMatchResponse) toResult() *AgentMatchResult {
	candidates := make([]models.MatchResult, 0, len(r.TopCandidates))
	for _, c := range r.TopCandidates {
		score := clampScore(c.Score)
		strength := models.RecommendationStrength(strings.ToLower(c.RecommendationStrength))
		if strength != models.StrengthLow && strength != models.StrengthMedium && strength != models.StrengthHigh {
			strength = models.StrengthForScore(score)
		}
		candidates = append(candidates, models.MatchResult{
			CandidateID:            c.CandidateID,
			Name:                   c.Name,
			Email:                  c.Email,
			Score:                  score,
			SkillsMatch:            string(c.SkillsMatch),
			ExperienceMatch:        c.ExperienceMatch,
			LocationMatch:          c.LocationMatch,
			Reasoning:              c.Reasoning,
			RecommendationStrength: strength,
		})
	}

	total := r.TotalCandidates
	if total < len(candidates) {
		total = len(candidates)
	}

	return &AgentMatchResult{
		JobID:            r.JobID,
		Candidates:       candidates,
		TotalCandidates:  total,
		AlgorithmVersion: r.AlgorithmVersion,
	}
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
