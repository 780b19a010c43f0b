// Package api is the request/response boundary over the engine:
// gorilla/mux routes, JSON payloads, RFC 3339 UTC times.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"parkease-api/internal/access"
	"parkease-api/internal/apperr"
	"parkease-api/internal/engine"
	"parkease-api/internal/middleware"
	"parkease-api/internal/model"
	"parkease-api/internal/store"
)

type API struct {
	engine *engine.Engine
	gate   *access.Gate
	store  store.Store
	secret string
	log    zerolog.Logger
}

func New(e *engine.Engine, g *access.Gate, st store.Store, secret string, log zerolog.Logger) *API {
	return &API{engine: e, gate: g, store: st, secret: secret, log: log}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error().Err(err).Msg("encode response")
	}
}

func (a *API) fail(w http.ResponseWriter, err error) {
	if apperr.KindOf(err) == apperr.Internal {
		a.log.Error().Err(err).Msg("request failed")
	}
	middleware.WriteError(w, err)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.Validation, "malformed request body", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.Validation, "invalid id")
	}
	return id, nil
}

// currentUser resolves the verified caller to its profile; role comes
// from the store, never from the request.
func (a *API) currentUser(r *http.Request) (*model.User, error) {
	uid := middleware.UserID(r.Context())
	if uid == "" {
		return nil, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	return a.gate.Resolve(r.Context(), uid)
}
