package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/commercive/commerce-sync/api/responses"
	"github.com/commercive/commerce-sync/api/validators"
	"github.com/commercive/commerce-sync/internal/backfill"
	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
	"github.com/commercive/commerce-sync/pkg/logger"
)

type BackfillRunner interface {
	Run(ctx context.Context, req backfill.Request) (*backfill.Report, error)
}

type backfillRequest struct {
	Force bool `json:"force"`
}

// AdminBackfill runs a backfill for one shop and returns the per resource
// report. The run outlives the client connection, bounded by timeout.
func AdminBackfill(svc BackfillRunner, timeout time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "backfill service unavailable"))
			return
		}

		var body backfillRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := context.WithoutCancel(r.Context())
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		report, err := svc.Run(ctx, backfill.Request{
			ShopDomain: chi.URLParam(r, "shopDomain"),
			Force:      body.Force,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
