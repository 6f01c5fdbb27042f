package handlers

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"bhiv/hr-platform/internal/services"
)

const defaultMatchLimit = 10

type MatchHandler struct {
	matcher services.MatcherService
	log     *zap.Logger
}

func NewMatchHandler(matcher services.MatcherService, log *zap.Logger) *MatchHandler {
	return &MatchHandler{
		matcher: matcher,
		log:     log,
	}
}

// HandleTopMatches handles GET /v1/match/:job_id/top
func (h *MatchHandler) HandleTopMatches(c *fiber.Ctx) error {
	jobID, err := strconv.ParseInt(c.Params("job_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "job_id must be a positive integer",
		})
	}

	limit := defaultMatchLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be an integer",
			})
		}
	}

	if err := services.ValidateMatchRequest(jobID, limit); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	resp, err := h.matcher.TopMatches(c.UserContext(), jobID, limit)
	if err != nil {
		return h.matchError(c, err)
	}

	return c.JSON(resp)
}

// HandleBatch handles POST /v1/match/batch with a JSON array of job ids.
func (h *MatchHandler) HandleBatch(c *fiber.Ctx) error {
	jobIDs, err := parseJobIDs(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Request body must be a JSON array of job ids",
		})
	}

	ids, err := services.ValidateBatchJobIDs(jobIDs)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	resp, err := h.matcher.BatchMatch(c.UserContext(), ids)
	if err != nil {
		return h.matchError(c, err)
	}

	return c.JSON(resp)
}

func (h *MatchHandler) matchError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": verr.Error(),
		})
	}

	h.log.Error("❌ Matching failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Matching is unavailable: both the matching agent and the fallback scorer failed",
	})
}

// parseJobIDs accepts `[1,2]` and also `{"job_ids": [1,2]}`.
func parseJobIDs(body []byte) ([]int64, error) {
	var ids []int64
	if err := json.Unmarshal(body, &ids); err == nil {
		return ids, nil
	}

	var wrapped struct {
		JobIDs []int64 `json:"job_ids"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.JobIDs, nil
}
