package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dvellmar/storeratings-backend/api/responses"
	"github.com/dvellmar/storeratings-backend/pkg/config"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-StoreRatings-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis; either failing marks the service
// unready.
func HealthReady(cfg *config.Config, logg *logger.Logger, database, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-StoreRatings-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if database != nil {
			if err := database.Ping(ctx); err != nil {
				checks["database"] = "down"
				healthy = false
			} else {
				checks["database"] = "ok"
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				checks["redis"] = "down"
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
