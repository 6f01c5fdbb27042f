package services

import (
	"fmt"
	"strings"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildRecommendationPrompt asks for a short hiring recommendation grounded on the match breakdown.
func (pb *PromptBuilder) BuildRecommendationPrompt(in RecommendationInput) string {
	return fmt.Sprintf(`You are an experienced HR recruiter reviewing an application for a %s position.

CANDIDATE: %s
AI MATCHING SCORE: %.1f/100
DECISION: %s

MATCH BREAKDOWN:
- Skills: %s
- Experience: %s
- Location: %s
- Reasoning: %s

Write a concise recommendation (2-4 sentences) for the hiring team that covers:
1. The candidate's main strengths for this role
2. The most important gap or risk
3. The suggested next step

Return ONLY the recommendation text, no JSON and no headings.`,
		orDefault(in.JobTitle, "open"),
		orDefault(in.CandidateName, "Unknown"),
		in.Score,
		strings.ToUpper(in.Decision),
		orDefault(in.Match.SkillsMatch, "n/a"),
		orDefault(in.Match.ExperienceMatch, "n/a"),
		orDefault(in.Match.LocationMatch, "n/a"),
		orDefault(in.Match.Reasoning, "n/a"))
}

// BuildTemplateRecommendation is used when no language model is available.
func (pb *PromptBuilder) BuildTemplateRecommendation(in RecommendationInput) string {
	name := orDefault(in.CandidateName, "The candidate")
	job := orDefault(in.JobTitle, "the role")

	switch in.Decision {
	case DecisionShortlisted:
		return fmt.Sprintf("%s scored %.1f/100 for %s and is a strong fit. Schedule a technical interview.", name, in.Score, job)
	case DecisionUnderReview:
		return fmt.Sprintf("%s scored %.1f/100 for %s with a partial fit. A recruiter should review the profile before deciding.", name, in.Score, job)
	default:
		return fmt.Sprintf("%s scored %.1f/100 for %s, below the hiring bar. Keep the profile on file for future openings.", name, in.Score, job)
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
