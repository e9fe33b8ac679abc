package router

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"golang.org/x/crypto/bcrypt"

	"github.com/ManuelReschke/AccessPass/internal/pkg/constants"
	"github.com/ManuelReschke/AccessPass/internal/pkg/metrics"
)

// OpsRouter serves health, metrics and monitoring endpoints.
type OpsRouter struct {
	deps Dependencies
}

func (h OpsRouter) InstallRouter(app *fiber.App) {
	app.Get(constants.HealthRoute, h.deps.Health.HandleHealth)
	app.Get(constants.PrometheusMetricsRoute, metrics.Handler())

	// fiber metrics
	if h.deps.MetricsUser == "" || h.deps.MetricsPasswordHash == "" {
		fiberlog.Info("[Router] METRICS_USER/METRICS_PASSWORD_HASH not set, /metrics disabled")
		return
	}
	app.Get(constants.MetricsRoute, basicauth.New(basicauth.Config{
		Authorizer: newBcryptAuthorizer(h.deps.MetricsUser, h.deps.MetricsPasswordHash),
	}), monitor.New(monitor.Config{Title: "AccessPass Metrics"}))
}

// newBcryptAuthorizer accepts exactly one user whose password matches the
// bcrypt hash.
func newBcryptAuthorizer(user, passwordHash string) func(string, string) bool {
	return func(u, p string) bool {
		if subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(p)) == nil
	}
}

func NewOpsRouter(deps Dependencies) *OpsRouter {
	return &OpsRouter{deps: deps}
}
