package timeline

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/:id/active-question", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			Label string `json:"label"`
			TsMS  int64  `json:"ts_ms"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Label == "" {
			return fiber.NewError(fiber.StatusBadRequest, "label required")
		}
		svc.SetActiveQuestion(c.Params("id"), req.Label, req.TsMS)
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/questions/:index/boundary", authMiddleware, func(c *fiber.Ctx) error {
		index, err := strconv.Atoi(c.Params("index"))
		if err != nil || index < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "question index must be a non-negative integer")
		}
		var req struct {
			EventType string `json:"event_type"`
			TsMS      int64  `json:"ts_ms"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		boundary, err := svc.MarkBoundary(c.Context(), c.Params("id"), index, req.TsMS, req.EventType)
		switch {
		case errors.Is(err, ErrInvalidEventType), errors.Is(err, ErrInvalidTimestamp):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, ErrSessionNotFound):
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(boundary)
	})

	r.Get("/:id/questions/:label/last-beat", func(c *fiber.Ctx) error {
		beat, err := svc.LastBeat(c.Context(), c.Params("id"), c.Params("label"))
		if errors.Is(err, ErrNoBeat) {
			return fiber.NewError(fiber.StatusNotFound, "no beat recorded for label")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(beat)
	})
}
