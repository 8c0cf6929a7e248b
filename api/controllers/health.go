package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/tsiki-shop/storefront-backend/api/responses"
	"github.com/tsiki-shop/storefront-backend/pkg/config"
	pkgerrors "github.com/tsiki-shop/storefront-backend/pkg/errors"
	"github.com/tsiki-shop/storefront-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 2 * time.Second

// Pinger is implemented by the database and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tsiki-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency concurrently and reports 503 when any fails.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tsiki-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		results := make(map[string]string, len(deps))
		errs := make([]error, len(deps))
		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}

		var g errgroup.Group
		for i, name := range names {
			pinger := deps[name]
			g.Go(func() error {
				if pinger == nil {
					return nil
				}
				errs[i] = pinger.Ping(ctx)
				return nil
			})
		}
		_ = g.Wait()

		var failed error
		for i, name := range names {
			if errs[i] != nil {
				results[name] = "down"
				failed = errs[i]
				continue
			}
			results[name] = "ok"
		}

		if failed != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, failed, "dependency unavailable").WithDetails(results))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": results})
	}
}
