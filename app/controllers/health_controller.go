package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AccessPass/internal/pkg/cache"
	"github.com/ManuelReschke/AccessPass/internal/pkg/database"
)

// HealthController reports whether the store (and Redis, when used) answers.
type HealthController struct {
	db        *gorm.DB
	pingCache func(ctx context.Context) error
}

func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{
		db:        db,
		pingCache: cache.Ping,
	}
}

// HandleHealth returns 200 when all dependencies answer, 503 otherwise.
func (hc *HealthController) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	status := fiber.Map{"database": "ok", "cache": "ok"}
	healthy := true

	if err := database.Ping(ctx, hc.db); err != nil {
		fiberlog.Warnf("[Health] Database ping failed: %v", err)
		status["database"] = "unavailable"
		healthy = false
	}
	if hc.pingCache != nil {
		if err := hc.pingCache(ctx); err != nil {
			fiberlog.Warnf("[Health] Cache ping failed: %v", err)
			status["cache"] = "unavailable"
			healthy = false
		}
	}

	if !healthy {
		status["status"] = "unhealthy"
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	status["status"] = "ok"
	return c.Status(fiber.StatusOK).JSON(status)
}
