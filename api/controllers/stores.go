package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/commercive/commerce-sync/api/responses"
	"github.com/commercive/commerce-sync/api/validators"
	"github.com/commercive/commerce-sync/internal/stores"
	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
	"github.com/commercive/commerce-sync/pkg/logger"
)

// AdminStoreInstall registers a shop, or rotates its token and reinstalls it.
func AdminStoreInstall(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		var input stores.InstallInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ShopDomain = chi.URLParam(r, "shopDomain")

		store, err := svc.Install(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stores.FromModel(store))
	}
}

// AdminStoreGet returns a store by shop domain.
func AdminStoreGet(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}
		store, err := svc.Resolve(r.Context(), chi.URLParam(r, "shopDomain"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stores.FromModel(store))
	}
}
