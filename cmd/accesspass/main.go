package main

import (
	"fmt"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/AccessPass/app/controllers"
	"github.com/ManuelReschke/AccessPass/internal/pkg/billing"
	"github.com/ManuelReschke/AccessPass/internal/pkg/cache"
	"github.com/ManuelReschke/AccessPass/internal/pkg/constants"
	"github.com/ManuelReschke/AccessPass/internal/pkg/database"
	"github.com/ManuelReschke/AccessPass/internal/pkg/env"
	"github.com/ManuelReschke/AccessPass/internal/pkg/router"
)

const defaultUseAccessRateLimit = 30

func main() {
	app := NewApplication()
	addr := fmt.Sprintf("%s:%s",
		env.GetEnv("APP_HOST", "0.0.0.0"),
		env.GetFirstEnv("8000", "APP_PORT", "PORT"),
	)
	fiberlog.Fatal(app.Listen(addr))
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	if env.IsDev() {
		fiberlog.SetLevel(fiberlog.LevelDebug)
	}
	database.SetupDatabase()
	cache.SetupCache()

	billingCfg := billing.LoadConfigFromEnv()
	if billingCfg.SecretKey == "" {
		fiberlog.Warn("[App] STRIPE_SECRET_KEY not set, payment sessions will be rejected")
	}
	if billingCfg.WebhookSecret == "" {
		fiberlog.Warn("[App] STRIPE_WEBHOOK_SECRET not set, webhooks will answer 503")
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName:   "AccessPass",
		BodyLimit: 1 << 20, // webhook payloads are small JSON documents
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	openAPIFile := findProjectFile("public/docs/v1/openapi.yml")
	if openAPIFile != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: constants.DocsBasePath,
			FilePath: openAPIFile,
			Path:     "v1",
		}))
	}

	// ROUTER
	db := database.GetDB()
	router.InstallRouter(app, router.Dependencies{
		Payments:            controllers.NewPaymentController(billing.NewServiceFromDB(db, billingCfg)),
		Health:              controllers.NewHealthController(db),
		UseAccessRateLimit:  env.GetEnvInt("USE_ACCESS_RATE_LIMIT", defaultUseAccessRateLimit),
		LimiterStorage:      cache.NewLimiterStorage(cache.OptionsFromEnv()),
		MetricsUser:         env.GetEnv("METRICS_USER", ""),
		MetricsPasswordHash: env.GetEnv("METRICS_PASSWORD_HASH", ""),
	})

	return app
}

// findProjectFile looks for a repository file from the working directory and
// from cmd/accesspass.
func findProjectFile(rel string) string {
	for _, base := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(base + rel); err == nil {
			return base + rel
		}
	}
	return ""
}
