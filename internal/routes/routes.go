package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/giannis84/character-browser/internal/auth"
	"github.com/giannis84/character-browser/internal/browser"
	"github.com/giannis84/character-browser/internal/config"
	"github.com/giannis84/character-browser/internal/handlers"
	"github.com/giannis84/character-browser/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// RegisterBrowserRoutes sets up the character browser JSON API.
// HTTP concerns are handled here, while browsing state lives in the browser package.
func RegisterBrowserRoutes(registry *browser.Registry, authCfg auth.AuthConfig, rl config.RateLimitConfig, allowedOrigins []string) func(r chi.Router) {
	return func(r chi.Router) {
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(corsHandler(allowedOrigins))
			if rl.Requests > 0 {
				r.Use(httprate.LimitByIP(rl.Requests, rl.Window))
			}
			r.Use(requireAcceptJSON)
			r.Use(auth.JWTMiddleware(authCfg))

			r.Route("/characters", func(r chi.Router) {
				r.Get("/", getCharactersRoute(registry))
				r.Get("/view", getViewRoute(registry))
				r.Post("/next", nextPageRoute(registry))
				r.Post("/prev", prevPageRoute(registry))
			})
			r.Route("/selection", func(r chi.Router) {
				r.Put("/{characterID}", openCharacterRoute(registry))
				r.Delete("/", closeCharacterRoute(registry))
				r.Post("/favourite", toggleFavouriteRoute(registry))
			})
			r.Get("/favourites", getFavouritesRoute(registry))
			r.Put("/me", registerUserRoute(registry))
		})
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// FavouritesResponse is returned by the favourites endpoints.
type FavouritesResponse struct {
	Favourites  []int `json:"favourites"`
	CharacterID int   `json:"character_id,omitempty"`
	Favourite   *bool `json:"favourite,omitempty"`
}

func corsHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: len(allowedOrigins) > 0,
		MaxAge:           300,
	})
}

// requireAcceptJSON rejects requests that cannot take a JSON response.
func requireAcceptJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(r.Header.Get("Accept")) {
			respondWithError(w, http.StatusNotAcceptable, "Accept header must include application/json")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func acceptsJSON(header string) bool {
	for _, part := range strings.Split(header, ",") {
		mediaType, _, _ := strings.Cut(part, ";")
		switch strings.ToLower(strings.TrimSpace(mediaType)) {
		case "application/json", "application/*", "*/*":
			return true
		}
	}
	return false
}

// controllerFor returns the browser of the signed-in user.
func controllerFor(registry *browser.Registry, r *http.Request) (*browser.Controller, string) {
	email := auth.UserFromContext(r.Context()).Email
	return registry.Get(r.Context(), email), email
}

func getCharactersRoute(registry *browser.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctrl, email := controllerFor(registry, r)

		filter, err := handlers.ParseFilter(r.URL.Query(), ctrl.Filter())
		if err != nil {
			logging.Log(ctx).Layer("routes").Op("getCharacters").User(email).Err(err).
				Warn("invalid characters query")
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		logging.Log(ctx).Layer("routes").Op("getCharacters").User(email).
			Filter(filter.Page, string(filter.Status), filter.Name).
			Info("received characters request")

		view, err := ctrl.Apply(ctx, filter)
		if err != nil {
			respondWithBrowserError(w, r, "getCharacters", email, err)
			return
		}

		logging.Log(ctx).Layer("routes").Op("getCharacters").User(email).
			Int("count", len(view.Characters)).Int("total_pages", view.TotalPages).
			Int("status_code", http.StatusOK).Info("characters retrieved")
		respondWithJSON(w, http.StatusOK, view)
	}
}

func getViewRoute(registry *browser.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, email := controllerFor(registry, r)

		// Applying the current filter only fetches on first use.
		view, err := ctrl.Apply(r.Context(), ctrl.Filter())
		if err != nil {
			respondWithBrowserError(w, r, "getView", email, err)
			return
		}
		respondWithJSON(w, http.StatusOK, view)
	}
}

func nextPageRoute(registry *browser.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, email := controllerFor(registry, r)
		view, err := ctrl.NextPage(r.Context())
		if err != nil {
			respondWithBrowserError(w, r, "nextPage", email, err)
			return
		}
		logging.Log(r.Context()).Layer("routes").Op("nextPage").User(email).
			Int("page", view.Page).Info("moved to next page")
		respondWithJSON(w, http.StatusOK, view)
	}
}

func prevPageRoute(registry *browser.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, email := controllerFor(registry, r)
		view, err := ctrl.PrevPage(r.Context())
		if err != nil {
			respondWithBrowserError(w, r, "prevPage", email, err)
			return
		}
		logging.Log(r.Context()).Layer("routes").Op("prevPage").User(email).
			Int("page", view.Page).Info("moved to previous page")
		respondWithJSON(w, http.StatusOK, view)
	}
}

func openCharacterRoute(registry *browser.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctrl, email := controllerFor(registry, r)

		id, err := handlers.ParseCharacterID(chi.URLParam(r, "characterID"))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := ctrl.Open(id); err != nil {
			respondWithBrowserError(w, r, "openCharacter", email, err)
			return
		}

		logging.Log(ctx).Layer("routes").Op("openCharacter").User(email).Character(id).
			Int("status_code", http.StatusOK).Info("character selected")
		respondWithJSON(w, http.StatusOK, ctrl.View())
	}
}

func closeCharacterRoute(registry *browser.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, _ := controllerFor(registry, r)
		ctrl.Close()
		respondWithJSON(w, http.StatusOK, ctrl.View())
	}
}

func toggleFavouriteRoute(registry *browser.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctrl, email := controllerFor(registry, r)

		toggled, err := ctrl.ToggleFavourite(ctx)
		if err != nil {
			respondWithBrowserError(w, r, "toggleFavourite", email, err)
			return
		}

		resp := FavouritesResponse{
			Favourites:  toggled.Favourites,
			CharacterID: toggled.CharacterID,
			Favourite:   &toggled.Favourite,
		}

		logging.Log(ctx).Layer("routes").Op("toggleFavourite").User(email).Character(toggled.CharacterID).
			Bool("favourite", toggled.Favourite).Int("status_code", http.StatusOK).Info("favourite toggled")
		respondWithJSON(w, http.StatusOK, resp)
	}
}

func getFavouritesRoute(registry *browser.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, email := controllerFor(registry, r)
		favs := ctrl.Favourites()

		logging.Log(r.Context()).Layer("routes").Op("getFavourites").User(email).
			Int("count", len(favs)).Info("favourites retrieved")
		respondWithJSON(w, http.StatusOK, FavouritesResponse{Favourites: favs})
	}
}

func registerUserRoute(registry *browser.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		email := auth.UserFromContext(ctx).Email

		if err := handlers.RegisterUser(ctx, registry.Store(), email); err != nil {
			var validationErr *handlers.ValidationError
			if errors.As(err, &validationErr) {
				logging.Log(ctx).Layer("routes").Op("registerUser").User(email).Err(err).
					Warn("invalid user identity")
				respondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			logging.Log(ctx).Layer("routes").Op("registerUser").User(email).Err(err).
				Error("failed to create user record")
			respondWithError(w, http.StatusInternalServerError, "failed to create user record")
			return
		}

		logging.Log(ctx).Layer("routes").Op("registerUser").User(email).
			Int("status_code", http.StatusOK).Info("user record ready")
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "User record ready"})
	}
}

// respondWithBrowserError maps controller errors to status codes.
func respondWithBrowserError(w http.ResponseWriter, r *http.Request, op, email string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, browser.ErrInvalidPage):
		code = http.StatusBadRequest
	case errors.Is(err, browser.ErrCharacterNotFound):
		code = http.StatusNotFound
	case errors.Is(err, browser.ErrNoSelection), errors.Is(err, browser.ErrPageUnavailable):
		code = http.StatusConflict
	}

	log := logging.Log(r.Context()).Layer("routes").Op(op).User(email).Err(err).Int("status_code", code)
	if code == http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Warn("request rejected")
	}
	respondWithError(w, code, err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}
