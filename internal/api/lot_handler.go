package api

import (
	"net/http"

	"parkease-api/internal/apperr"
	"parkease-api/internal/model"
)

func (a *API) listLots(w http.ResponseWriter, r *http.Request) {
	if _, err := a.currentUser(r); err != nil {
		a.fail(w, err)
		return
	}
	out, err := a.store.Lots(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	if out == nil {
		out = []model.Lot{}
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) createLot(w http.ResponseWriter, r *http.Request) {
	if err := a.requireAdmin(r); err != nil {
		a.fail(w, err)
		return
	}

	var body struct {
		Name     string `json:"name"`
		Location string `json:"location"`
	}
	if err := decodeJSON(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	if body.Name == "" || body.Location == "" {
		a.fail(w, apperr.New(apperr.Validation, "name and location are required"))
		return
	}

	lot := &model.Lot{Name: body.Name, Location: body.Location}
	if err := a.store.CreateLot(r.Context(), lot); err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, lot)
}

func (a *API) toggleLot(w http.ResponseWriter, r *http.Request) {
	if err := a.requireAdmin(r); err != nil {
		a.fail(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	lot, err := a.store.ToggleLot(r.Context(), id)
	if err != nil {
		a.fail(w, mapStoreErr(err, ""))
		return
	}
	a.writeJSON(w, http.StatusOK, lot)
}
