package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bhiv/hr-platform/internal/models"
	"bhiv/hr-platform/internal/services"
)

const wsWriteTimeout = 5 * time.Second

type ProgressHandler struct {
	tracker services.WorkflowTracker
	hub     *services.ProgressHub
	log     *zap.Logger
}

func NewProgressHandler(tracker services.WorkflowTracker, hub *services.ProgressHub, log *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		tracker: tracker,
		hub:     hub,
		log:     log,
	}
}

// RequireUpgrade rejects plain HTTP requests and unknown workflows before the upgrade.
func (h *ProgressHandler) RequireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return workflowNotFound(c)
	}

	wf, err := h.tracker.Get(c.UserContext(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load workflow",
		})
	}
	if wf == nil {
		return workflowNotFound(c)
	}

	c.Locals("workflow_id", id)
	return c.Next()
}

// HandleStream handles GET /ws/workflows/:id
func (h *ProgressHandler) HandleStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		id, ok := conn.Locals("workflow_id").(uuid.UUID)
		if !ok {
			return
		}

		// Subscribe before reading the snapshot so no transition is missed.
		events, unsubscribe := h.hub.Subscribe(id.String())
		defer unsubscribe()

		wf, err := h.tracker.Get(context.Background(), id)
		if err != nil || wf == nil {
			h.log.Warn("⚠️ Workflow vanished before streaming", zap.String("workflow_id", id.String()))
			return
		}

		snapshot := models.NewProgressEvent(wf)
		if err := h.write(conn, snapshot); err != nil || wf.Status.IsTerminal() {
			return
		}

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case ev := <-events:
				if err := h.write(conn, ev); err != nil {
					return
				}
				if ev.Status.IsTerminal() {
					return
				}
			}
		}
	})
}

func (h *ProgressHandler) write(conn *websocket.Conn, ev models.ProgressEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(ev); err != nil {
		h.log.Debug("websocket write failed", zap.String("workflow_id", ev.WorkflowID), zap.Error(err))
		return err
	}
	return nil
}
