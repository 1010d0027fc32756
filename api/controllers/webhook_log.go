package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/commercive/commerce-sync/api/responses"
	"github.com/commercive/commerce-sync/api/validators"
	"github.com/commercive/commerce-sync/internal/stores"
	"github.com/commercive/commerce-sync/internal/webhooklog"
	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
	"github.com/commercive/commerce-sync/pkg/logger"
	"github.com/commercive/commerce-sync/pkg/pagination"
)

// AdminWebhookLog lists the audit rows of a shop, newest first.
func AdminWebhookLog(storeSvc stores.Service, logSvc webhooklog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if storeSvc == nil || logSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook log unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := storeSvc.Resolve(r.Context(), chi.URLParam(r, "shopDomain"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := r.URL.Query()
		result, err := logSvc.List(r.Context(), webhooklog.ListInput{
			StoreID: store.ID,
			Topic:   validators.SanitizeString(q.Get("topic"), 128),
			Limit:   limit,
			Cursor:  validators.SanitizeString(q.Get("cursor"), 512),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
