package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bhiv/hr-platform/internal/models"
)

func TestAgentClientMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/match", r.URL.Path)
		assert.Equal(t, "Bearer agent-key", r.Header.Get("Authorization"))

		var req agentMatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(7), req.JobID)
		assert.Equal(t, 5, req.Limit)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"job_id": 7,
			"top_candidates": [
				{"candidate_id": 1, "name": "Asha", "score": 120, "skills_match": ["go", "sql"], "recommendation_strength": "HIGH"},
				{"candidate_id": 2, "name": "Ravi", "score": 40, "skills_match": "python"}
			],
			"total_candidates": 31,
			"algorithm_version": "3.0.0-semantic"
		}`))
	}))
	defer srv.Close()

	client := NewAgentClient(srv.URL+"/", "agent-key", time.Second, zap.NewNop())
	res, err := client.Match(context.Background(), 7, nil, 5)
	require.NoError(t, err)

	assert.Equal(t, int64(7), res.JobID)
	assert.Equal(t, 31, res.TotalCandidates)
	assert.Equal(t, "3.0.0-semantic", res.AlgorithmVersion)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, 100.0, res.Candidates[0].Score)
	assert.Equal(t, "go, sql", res.Candidates[0].SkillsMatch)
	assert.Equal(t, models.StrengthHigh, res.Candidates[0].RecommendationStrength)
	assert.Equal(t, "python", res.Candidates[1].SkillsMatch)
	assert.Equal(t, models.StrengthLow, res.Candidates[1].RecommendationStrength)
}

func TestAgentClientBatchMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/batch-match", r.URL.Path)
		_, _ = w.Write([]byte(`{"batch_results": {
			"1": {"top_candidates": [{"candidate_id": 4, "score": 80}], "total_candidates": 1},
			"2": {"top_candidates": [], "total_candidates": 0}
		}}`))
	}))
	defer srv.Close()

	client := NewAgentClient(srv.URL, "", time.Second, zap.NewNop())
	res, err := client.BatchMatch(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, int64(1), res[1].JobID)
	assert.Equal(t, int64(4), res[1].Candidates[0].CandidateID)
	assert.Empty(t, res[2].Candidates)
}

func TestAgentClientFailures(t *testing.T) {
	t.Run("error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewAgentClient(srv.URL, "", time.Second, zap.NewNop()).Match(context.Background(), 1, nil, 5)
		assert.ErrorIs(t, err, ErrAgentUnavailable)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"top_candidates": "nope"`))
		}))
		defer srv.Close()

		_, err := NewAgentClient(srv.URL, "", time.Second, zap.NewNop()).Match(context.Background(), 1, nil, 5)
		assert.ErrorIs(t, err, ErrAgentUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer srv.Close()

		_, err := NewAgentClient(srv.URL, "", 50*time.Millisecond, zap.NewNop()).Match(context.Background(), 1, nil, 5)
		assert.ErrorIs(t, err, ErrAgentUnavailable)
	})

	t.Run("unreachable", func(t *testing.T) {
		_, err := NewAgentClient("http://127.0.0.1:1", "", time.Second, zap.NewNop()).Match(context.Background(), 1, nil, 5)
		assert.ErrorIs(t, err, ErrAgentUnavailable)
	})
}
