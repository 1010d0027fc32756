package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/commercive/commerce-sync/api/responses"
	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
	"github.com/commercive/commerce-sync/pkg/logger"
)

const envHeader = "X-Commerce-Sync-Env"

type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(env string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency and fails on the first that is down.
func HealthReady(env string, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, env)
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
					WithDetails(map[string]any{"dependency": name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
