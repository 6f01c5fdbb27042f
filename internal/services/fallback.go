package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"bhiv/hr-platform/internal/models"
)

const FallbackAlgorithmVersion = "v2.0.0-fallback"

const (
	maxSkillScore      = 40.0
	maxLocationScore   = 30.0
	maxExperienceScore = 30.0
)

// seniorityYears maps a job experience level to the years it expects.
// The most senior keyword found wins.
var seniorityYears = []struct {
	keyword string
	years   int
}{
	{"principal", 8},
	{"staff", 8},
	{"lead", 8},
	{"senior", 5},
	{"mid", 3},
	{"junior", 1},
	{"entry", 0},
	{"intern", 0},
}

const defaultRequiredYears = 2

// FallbackScorer ranks candidates locally when the agent is down.
type FallbackScorer struct{}

func NewFallbackScorer() *FallbackScorer {
	return &FallbackScorer{}
}

// Rank scores every candidate against the job and returns the best limit,
// highest score first and candidate id ascending on ties.
func (s *FallbackScorer) Rank(job *models.Job, candidates []models.Candidate, limit int) []models.MatchResult {
	results := make([]models.MatchResult, 0, len(candidates))
	for i := range candidates {
		results = append(results, s.Score(job, &candidates[i]))
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].CandidateID < results[j].CandidateID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (s *FallbackScorer) Score(job *models.Job, c *models.Candidate) models.MatchResult {
	skillScore, matched, required := scoreSkills(job.Requirements, c.TechnicalSkills)
	locationScore, locationNote := scoreLocation(job.Location, c.Location)
	experienceScore, needed := scoreExperience(job.ExperienceLevel, c.ExperienceYears)

	total := math.Min(skillScore+locationScore+experienceScore, 100)
	total = math.Round(total*10) / 10

	skillsNote := "No listed requirements"
	if required > 0 {
		skillsNote = fmt.Sprintf("%d/%d required skills", len(matched), required)
		if len(matched) > 0 {
			skillsNote += ": " + strings.Join(matched, ", ")
		}
	}

	return models.MatchResult{
		CandidateID:     c.ID,
		Name:            c.Name,
		Email:           c.Email,
		Score:           total,
		SkillsMatch:     skillsNote,
		ExperienceMatch: fmt.Sprintf("%d years (needs %d)", c.ExperienceYears, needed),
		LocationMatch:   locationNote,
		Reasoning: fmt.Sprintf("Rule-based score: skills %.1f/40, location %.1f/30, experience %.1f/30",
			skillScore, locationScore, experienceScore),
		RecommendationStrength: models.StrengthForScore(total),
	}
}

func tokenizeSkills(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch r {
		case ',', ';', '/', '|', '\n', '\r':
			return true
		}
		return false
	})

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func scoreSkills(requirements, skills string) (float64, []string, int) {
	required := tokenizeSkills(requirements)
	if len(required) == 0 {
		return 0, nil, 0
	}

	have := strings.ToLower(skills)
	var matched []string
	for _, r := range required {
		if strings.Contains(have, r) {
			matched = append(matched, r)
		}
	}
	return maxSkillScore * float64(len(matched)) / float64(len(required)), matched, len(required)
}

func scoreLocation(jobLocation, candidateLocation string) (float64, string) {
	job := strings.ToLower(strings.TrimSpace(jobLocation))
	cand := strings.ToLower(strings.TrimSpace(candidateLocation))

	switch {
	case job == "" || cand == "":
		return 0, "Location unknown"
	case job == cand:
		return maxLocationScore, "Exact location match"
	case strings.Contains(job, cand) || strings.Contains(cand, job):
		return 20, "Partial location match"
	case strings.Contains(job, "remote") || strings.Contains(cand, "remote"):
		return 15, "Remote compatible"
	default:
		return 0, "Different location"
	}
}

func requiredYears(level string) int {
	level = strings.ToLower(level)
	for _, s := range seniorityYears {
		if strings.Contains(level, s.keyword) {
			return s.years
		}
	}
	return defaultRequiredYears
}

func scoreExperience(level string, years int) (float64, int) {
	needed := requiredYears(level)
	if years < 0 {
		years = 0
	}
	if years >= needed {
		return maxExperienceScore, needed
	}
	return maxExperienceScore * float64(years) / float64(needed), needed
}
