package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/DandyChux/raecer-bot/app/service/cleanup"
	"github.com/DandyChux/raecer-bot/app/service/conversation"
	"github.com/DandyChux/raecer-bot/app/service/storage"
	"github.com/DandyChux/raecer-bot/app/service/store"
	"github.com/DandyChux/raecer-bot/app/service/summary"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Handler maps the core operations onto HTTP. Translating the error
// taxonomy into status codes happens here and only here.
type Handler struct {
	engine   *conversation.Service
	pipeline *summary.Service
	store    *store.Service
	cleanup  *cleanup.Service
	validate *validator.Validate
}

func NewHandler(engine *conversation.Service, pipeline *summary.Service, sessions *store.Service, cleanupSvc *cleanup.Service) *Handler {
	return &Handler{
		engine:   engine,
		pipeline: pipeline,
		store:    sessions,
		cleanup:  cleanupSvc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) Register(app *fiber.App) {
	apiGroup := app.Group("/api")

	apiGroup.Get("/health", h.health)
	apiGroup.Get("/docs", h.docs)

	apiGroup.Post("/conversation/start", h.start)
	apiGroup.Post("/conversation/:id/message", h.message)
	apiGroup.Post("/conversation/:id/end", h.end)
	apiGroup.Get("/conversation/:id/status", h.status)
	apiGroup.Get("/conversation/:id/history", h.history)
	apiGroup.Delete("/conversation/:id", h.delete)

	apiGroup.Get("/conversations", h.list)
	apiGroup.Post("/cleanup", h.runCleanup)
}

func (h *Handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

func (h *Handler) start(c *fiber.Ctx) error {
	result := h.engine.Start()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session_id": result.SessionID,
		"message":    result.Greeting,
		"status":     store.StatusActive,
	})
}

type messageRequest struct {
	Message string `json:"message" validate:"required"`
}

func (h *Handler) message(c *fiber.Ctx) error {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "message is required")
	}
	if err := h.validate.Struct(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "message is required")
	}

	result, err := h.engine.ProcessMessage(c.UserContext(), c.Params("id"), req.Message)
	if err != nil {
		return mapError(c, err)
	}

	return c.JSON(result)
}

func (h *Handler) end(c *fiber.Ctx) error {
	result, err := h.pipeline.End(c.UserContext(), c.Params("id"))
	if err != nil {
		// The completed transition survives a durable-write failure; report
		// the gap but still hand back the artifacts.
		if result != nil && errors.Is(err, storage.ErrPersistence) {
			slog.Error("Summary artifacts not persisted",
				"session_id", c.Params("id"),
				"error", err,
			)

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":          "summary completed but could not be persisted",
				"patient_data":   result.PatientData,
				"pro_ctcae_data": result.ProCtcae,
			})
		}

		return mapError(c, err)
	}

	return c.JSON(result)
}

func (h *Handler) status(c *fiber.Ctx) error {
	sess, err := h.store.Get(c.Params("id"))
	if err != nil {
		return mapError(c, err)
	}

	return c.JSON(fiber.Map{
		"session_id":     sess.ID,
		"status":         sess.Status,
		"created_at":     sess.CreatedAt,
		"updated_at":     sess.UpdatedAt,
		"message_count":  len(sess.Turns),
		"patient_data":   sess.PatientData,
		"pro_ctcae_data": sess.ProCtcae,
		"error_message":  sess.ErrorMessage,
	})
}

func (h *Handler) history(c *fiber.Ctx) error {
	sess, err := h.store.Get(c.Params("id"))
	if err != nil {
		return mapError(c, err)
	}

	return c.JSON(fiber.Map{
		"session_id": sess.ID,
		"status":     sess.Status,
		"messages":   sess.Turns,
	})
}

func (h *Handler) delete(c *fiber.Ctx) error {
	if err := h.store.Delete(c.Params("id")); err != nil {
		return mapError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Session deleted"})
}

func (h *Handler) list(c *fiber.Ctx) error {
	sessions := h.store.List()

	return c.JSON(fiber.Map{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

type cleanupRequest struct {
	MaxAgeHours int `json:"max_age_hours"`
}

func (h *Handler) runCleanup(c *fiber.Ctx) error {
	req := cleanupRequest{MaxAgeHours: 24}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "invalid cleanup request")
		}
	}

	deleted := h.cleanup.Purge(time.Duration(req.MaxAgeHours) * time.Hour)

	return c.JSON(fiber.Map{
		"deleted_count": deleted,
	})
}

func (h *Handler) docs(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":        "Raecer Bot API",
		"version":     "1.0.0",
		"description": "Medical conversation API for patient history collection and PRO-CTCAE mapping",
		"endpoints": fiber.Map{
			"GET /api/health":                        "Health check",
			"POST /api/conversation/start":           "Start a new conversation",
			"POST /api/conversation/:id/message":     "Send a message",
			"POST /api/conversation/:id/end":         "End conversation and get summary",
			"GET /api/conversation/:id/status":       "Get conversation status",
			"GET /api/conversation/:id/history":      "Get conversation history",
			"DELETE /api/conversation/:id":           "Delete a conversation",
			"GET /api/conversations":                 "List all conversations",
			"POST /api/cleanup":                      "Clean up old sessions",
		},
	})
}

func mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errorResponse(c, fiber.StatusNotFound, "Session not found")
	case errors.Is(err, store.ErrInvalidState), errors.Is(err, conversation.ErrInvalidInput):
		return errorResponse(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, conversation.ErrUpstream):
		return errorResponse(c, fiber.StatusBadGateway, err.Error())
	default:
		slog.Error("Request failed", "error", err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal error")
	}
}

func errorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}
