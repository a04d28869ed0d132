package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/openshelf-labs/openshelf-backend/api/responses"
	"github.com/openshelf-labs/openshelf-backend/pkg/config"
	pkgerrors "github.com/openshelf-labs/openshelf-backend/pkg/errors"
	"github.com/openshelf-labs/openshelf-backend/pkg/logger"
	"go.uber.org/multierr"
)

const envHeader = "X-OpenShelf-Env"

const readyCheckTimeout = 3 * time.Second

// Pinger is the health-check surface a dependency must expose.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired dependency and fails when any is down. Nil
// pingers (optional dependencies) are skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		var combined error
		checks := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				combined = multierr.Append(combined, err)
				checks[name] = "down"
				continue
			}
			checks[name] = "up"
		}

		if combined != nil {
			err := pkgerrors.Wrap(pkgerrors.CodeDependency, combined, "dependency unavailable").
				WithDetails(checks)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

// ReadyDeps assembles the named dependency set for the ready endpoint.
func ReadyDeps(db Pinger, redis Pinger) map[string]Pinger {
	deps := map[string]Pinger{"database": db}
	if redis != nil {
		deps["redis"] = redis
	}
	return deps
}
