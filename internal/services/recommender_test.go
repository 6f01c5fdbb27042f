package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"bhiv/hr-platform/internal/models"
)

type fakeGemini struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeGemini) GenerateText(_ context.Context, prompt string, _ float32) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func (f *fakeGemini) GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, _ int) (string, error) {
	return f.GenerateText(ctx, prompt, temperature)
}

func TestDecisionForScore(t *testing.T) {
	assert.Equal(t, DecisionShortlisted, DecisionForScore(75))
	assert.Equal(t, DecisionUnderReview, DecisionForScore(74.9))
	assert.Equal(t, DecisionUnderReview, DecisionForScore(50))
	assert.Equal(t, DecisionRejected, DecisionForScore(49.9))
}

func TestRecommenderUsesGemini(t *testing.T) {
	gemini := &fakeGemini{text: "Strong backend fit. Interview next."}
	r := NewRecommender(gemini, 2, zap.NewNop())

	rec := r.Recommend(context.Background(), RecommendationInput{
		CandidateName: "Asha",
		JobTitle:      "Backend Engineer",
		Score:         88,
		Decision:      DecisionShortlisted,
		Match:         models.MatchResult{SkillsMatch: "go, sql"},
	})

	assert.Equal(t, "gemini", rec.Source)
	assert.Equal(t, "Strong backend fit. Interview next.", rec.Text)
	if assert.Len(t, gemini.prompts, 1) {
		assert.Contains(t, gemini.prompts[0], "Backend Engineer")
		assert.Contains(t, gemini.prompts[0], "SHORTLISTED")
		assert.Contains(t, gemini.prompts[0], "go, sql")
	}
}

func TestRecommenderFallsBackToTemplate(t *testing.T) {
	in := RecommendationInput{CandidateName: "Ravi", JobTitle: "Data Analyst", Score: 42, Decision: DecisionRejected}

	failing := NewRecommender(&fakeGemini{err: errors.New("quota")}, 1, zap.NewNop())
	rec := failing.Recommend(context.Background(), in)
	assert.Equal(t, "template", rec.Source)
	assert.Contains(t, rec.Text, "Ravi")
	assert.Contains(t, rec.Text, "42.0/100")

	none := NewRecommender(nil, 1, zap.NewNop())
	assert.Equal(t, rec, none.Recommend(context.Background(), in))
}
