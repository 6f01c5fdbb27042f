package services

import (
	"context"

	"go.uber.org/zap"

	"bhiv/hr-platform/internal/logger"
	"bhiv/hr-platform/internal/models"
)

const (
	DecisionShortlisted = "shortlisted"
	DecisionUnderReview = "under_review"
	DecisionRejected    = "rejected"
)

// DecisionForScore applies the screening thresholds.
func DecisionForScore(score float64) string {
	switch {
	case score >= 75:
		return DecisionShortlisted
	case score >= 50:
		return DecisionUnderReview
	default:
		return DecisionRejected
	}
}

type RecommendationInput struct {
	CandidateName string
	JobTitle      string
	Score         float64
	Decision      string
	Match         models.MatchResult
}

type Recommendation struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type Recommender interface {
	Recommend(ctx context.Context, in RecommendationInput) Recommendation
}

type recommender struct {
	gemini        GeminiService
	promptBuilder *PromptBuilder
	maxRetries    int
	log           *zap.Logger
}

// NewRecommender builds a recommender. A nil gemini service always uses the template.
func NewRecommender(gemini GeminiService, maxRetries int, log *zap.Logger) Recommender {
	return &recommender{
		gemini:        gemini,
		promptBuilder: NewPromptBuilder(),
		maxRetries:    maxRetries,
		log:           log.Named("recommender"),
	}
}

func (r *recommender) Recommend(ctx context.Context, in RecommendationInput) Recommendation {
	if r.gemini != nil {
		prompt := r.promptBuilder.BuildRecommendationPrompt(in)
		text, err := r.gemini.GenerateTextWithRetry(ctx, prompt, 0.4, r.maxRetries)
		if err == nil && text != "" {
			return Recommendation{Text: text, Source: "gemini"}
		}
		r.log.Warn("⚠️  Recommendation generation failed, using template",
			zap.String("candidate", logger.Truncate(in.CandidateName, 64)),
			zap.Error(err))
	}

	return Recommendation{Text: r.promptBuilder.BuildTemplateRecommendation(in), Source: "template"}
}
