package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"parkease-api/internal/middleware"
)

// Router wires all routes. Credential endpoints sit behind the rate
// limiter; everything under /api except health and the public slot
// listing requires a bearer token.
func (a *API) Router(rl *middleware.RateLimiter) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Recover(a.log))
	r.Use(middleware.Logging(a.log))

	cred := r.PathPrefix("/auth").Subrouter()
	cred.Use(middleware.RateLimit(rl))
	cred.HandleFunc("/signup", a.signup).Methods("POST")
	cred.HandleFunc("/login", a.login).Methods("POST")
	cred.HandleFunc("/refresh", a.refresh).Methods("POST")
	cred.HandleFunc("/logout", a.logout).Methods("POST")

	// open reads, registered before the authed subrouter
	r.HandleFunc("/api/health", a.health).Methods("GET")
	r.HandleFunc("/api/slots", a.listSlots).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(a.secret))
	api.HandleFunc("/lots", a.listLots).Methods("GET")
	api.HandleFunc("/lots", a.createLot).Methods("POST")
	api.HandleFunc("/lots/{id}/toggle", a.toggleLot).Methods("PUT")
	api.HandleFunc("/slots", a.createSlot).Methods("POST")
	api.HandleFunc("/slots/{id}", a.updateSlot).Methods("PUT")
	api.HandleFunc("/slots/{id}/toggle", a.toggleSlot).Methods("PUT")
	api.HandleFunc("/reservations", a.createReservation).Methods("POST")
	api.HandleFunc("/reservations/history", a.history).Methods("GET")
	api.HandleFunc("/reservations/upcoming", a.upcoming).Methods("GET")
	api.HandleFunc("/reservations/{id}", a.cancelReservation).Methods("DELETE")
	api.HandleFunc("/occupancy", a.occupancy).Methods("GET")

	return r
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
