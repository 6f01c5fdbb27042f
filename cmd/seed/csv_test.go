package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCandidates(t *testing.T) {
	input := `name,email,phone,location,experience,skills,education
Asha Rao,asha@example.com,9284967526,Pune,6 years,"Go, Docker",Masters
Ravi Kumar,,,,Fresher,Excel,
`
	candidates, err := parseCandidates(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	asha := candidates[0]
	assert.EqualValues(t, 1, asha.ID)
	assert.Equal(t, "Pune", asha.Location)
	assert.Equal(t, 6, asha.ExperienceYears)
	assert.Equal(t, "Senior", asha.SeniorityLevel)
	assert.Equal(t, "Go, Docker", asha.TechnicalSkills)
	assert.Equal(t, "Masters", asha.EducationLevel)

	ravi := candidates[1]
	assert.EqualValues(t, 2, ravi.ID)
	assert.Equal(t, "ravikumar@example.com", ravi.Email)
	assert.Equal(t, defaultCandidateLocation, ravi.Location)
	assert.Equal(t, 0, ravi.ExperienceYears)
	assert.Equal(t, "Junior", ravi.SeniorityLevel)
	assert.Equal(t, defaultCandidateEducation, ravi.EducationLevel)
}

func TestParseCandidatesRejectsBadRows(t *testing.T) {
	_, err := parseCandidates(strings.NewReader("id,name\nx,Asha\n"))
	assert.ErrorContains(t, err, "invalid id")

	_, err = parseCandidates(strings.NewReader("id,name\n3,\n"))
	assert.ErrorContains(t, err, "name is required")

	_, err = parseCandidates(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseJobs(t *testing.T) {
	input := `id,title,department,location,experience_level,requirements
42,Backend Engineer,Engineering,Mumbai,Senior,"Go, Postgres"
`
	jobs, err := parseJobs(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	assert.EqualValues(t, 42, jobs[0].ID)
	assert.Equal(t, "Go, Postgres", jobs[0].Requirements)
	assert.Equal(t, "active", jobs[0].Status)
}

func TestParseExperienceYears(t *testing.T) {
	tests := map[string]int{
		"":        0,
		"Fresher": 0,
		"3 years": 3,
		"10+ yrs": 10,
		"about 2": 0,
		"1 year":  1,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseExperienceYears(in), in)
	}
}
