package models

type RecommendationStrength string

const (
	StrengthLow    RecommendationStrength = "low"
	StrengthMedium RecommendationStrength = "medium"
	StrengthHigh   RecommendationStrength = "high"
)

// StrengthForScore buckets a [0,100] score.
func StrengthForScore(score float64) RecommendationStrength {
	switch {
	case score >= 75:
		return StrengthHigh
	case score >= 50:
		return StrengthMedium
	default:
		return StrengthLow
	}
}

type AgentStatus string

const (
	AgentConnected    AgentStatus = "connected"
	AgentDisconnected AgentStatus = "disconnected"
)

// MatchResult is produced by both the remote agent and the local fallback scorer.
type MatchResult struct {
	CandidateID            int64                  `json:"candidate_id"`
	Name                   string                 `json:"name"`
	Email                  string                 `json:"email"`
	Score                  float64                `json:"score"`
	SkillsMatch            string                 `json:"skills_match"`
	ExperienceMatch        string                 `json:"experience_match"`
	LocationMatch          string                 `json:"location_match"`
	Reasoning              string                 `json:"reasoning"`
	RecommendationStrength RecommendationStrength `json:"recommendation_strength"`
}

type MatchRequest struct {
	JobID        int64
	CandidateIDs []int64
	Limit        int
}

// MatchResponse is the single-job response and also every entry of a batch response.
type MatchResponse struct {
	JobID            int64         `json:"job_id"`
	Matches          []MatchResult `json:"matches"`
	Limit            int           `json:"limit"`
	TotalCandidates  int           `json:"total_candidates"`
	AlgorithmVersion string        `json:"algorithm_version"`
	ProcessingTime   string        `json:"processing_time"`
	AgentStatus      AgentStatus   `json:"agent_status"`
}

type BatchMatchResponse struct {
	BatchResults            map[string]MatchResponse `json:"batch_results"`
	TotalJobsProcessed      int                      `json:"total_jobs_processed"`
	TotalCandidatesAnalyzed int                      `json:"total_candidates_analyzed"`
	AlgorithmVersion        string                   `json:"algorithm_version"`
	AgentStatus             AgentStatus              `json:"agent_status"`
}
