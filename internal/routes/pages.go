package routes

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/giannis84/character-browser/internal/auth"
	"github.com/giannis84/character-browser/internal/browser"
	"github.com/giannis84/character-browser/internal/handlers"
	"github.com/giannis84/character-browser/internal/logging"
	"github.com/giannis84/character-browser/internal/web"
	"github.com/go-chi/chi/v5"
)

// RegisterPageRoutes sets up the HTML character browser. The identity token is
// read from the session cookie; every form action redirects back to "/".
// Cross-origin form posts are rejected with 403 before the cookie is read.
func RegisterPageRoutes(registry *browser.Registry, authCfg auth.AuthConfig) func(r chi.Router) {
	return func(r chi.Router) {
		r.Use(http.NewCrossOriginProtection().Handler)
		r.Use(auth.IdentityMiddleware(authCfg))

		r.Get("/", homePageRoute(registry))
		r.Post("/select/{characterID}", pageAction(registry, "select", func(r *http.Request, ctrl *browser.Controller) error {
			id, err := handlers.ParseCharacterID(chi.URLParam(r, "characterID"))
			if err != nil {
				return err
			}
			_, err = ctrl.Open(id)
			return err
		}))
		r.Post("/close", pageAction(registry, "close", func(_ *http.Request, ctrl *browser.Controller) error {
			ctrl.Close()
			return nil
		}))
		r.Post("/favourite", pageAction(registry, "favourite", func(r *http.Request, ctrl *browser.Controller) error {
			_, err := ctrl.ToggleFavourite(r.Context())
			return err
		}))
		r.Post("/next", pageAction(registry, "next", func(r *http.Request, ctrl *browser.Controller) error {
			_, err := ctrl.NextPage(r.Context())
			return err
		}))
		r.Post("/prev", pageAction(registry, "prev", func(r *http.Request, ctrl *browser.Controller) error {
			_, err := ctrl.PrevPage(r.Context())
			return err
		}))
	}
}

func homePageRoute(registry *browser.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		email := auth.UserFromContext(ctx).Email
		if email == "" {
			renderHome(w, r, http.StatusOK, web.NewHomePage("", browser.View{}))
			return
		}

		ctrl := registry.Get(ctx, email)
		filter, err := handlers.ParseFilter(r.URL.Query(), ctrl.Filter())
		if err != nil {
			logging.Log(ctx).Layer("routes").Op("homePage").User(email).Err(err).
				Warn("invalid page query")
			page := web.NewHomePage(email, ctrl.View())
			page.Error = err.Error()
			renderHome(w, r, http.StatusBadRequest, page)
			return
		}

		view, err := ctrl.Apply(ctx, filter)
		if err != nil {
			page := web.NewHomePage(email, view)
			page.Error = err.Error()
			renderHome(w, r, http.StatusBadRequest, page)
			return
		}
		renderHome(w, r, http.StatusOK, web.NewHomePage(email, view))
	}
}

// pageAction runs fn for the signed-in user and redirects to the home page.
// Rejected actions, such as next on the last page, are logged and ignored.
func pageAction(registry *browser.Registry, op string, fn func(r *http.Request, ctrl *browser.Controller) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		email := auth.UserFromContext(ctx).Email
		if email != "" {
			if err := fn(r, registry.Get(ctx, email)); err != nil {
				var validationErr *handlers.ValidationError
				if errors.As(err, &validationErr) || errors.Is(err, browser.ErrCharacterNotFound) ||
					errors.Is(err, browser.ErrNoSelection) || errors.Is(err, browser.ErrPageUnavailable) {
					logging.Log(ctx).Layer("routes").Op(op).User(email).Err(err).Debug("page action ignored")
				} else {
					logging.Log(ctx).Layer("routes").Op(op).User(email).Err(err).Error("page action failed")
				}
			}
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func renderHome(w http.ResponseWriter, r *http.Request, code int, page web.HomePage) {
	var buf bytes.Buffer
	if err := web.RenderHome(&buf, page); err != nil {
		logging.Log(r.Context()).Layer("routes").Op("renderHome").User(page.Email).Err(err).
			Error("failed to render home page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}
