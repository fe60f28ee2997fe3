package hrv

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/:id/baseline/compute", authMiddleware, func(c *fiber.Ctx) error {
		baseline, err := svc.ComputeBaseline(c.Context(), c.Params("id"))
		if errors.Is(err, ErrSessionNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(baseline)
	})

	r.Post("/:id/questions/:index/hrv/compute", authMiddleware, func(c *fiber.Ctx) error {
		index, err := strconv.Atoi(c.Params("index"))
		if err != nil || index < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "question index must be a non-negative integer")
		}
		metrics, err := svc.ComputeQuestionHRV(c.Context(), c.Params("id"), index)
		if errors.Is(err, ErrSessionNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(metrics)
	})
}
