package api

import (
	"net/http"
	"time"

	"parkease-api/internal/apperr"
	"parkease-api/internal/model"
)

func (a *API) createReservation(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		a.fail(w, err)
		return
	}

	var body struct {
		SlotID    int64      `json:"slotId"`
		StartTime *time.Time `json:"startTime"`
		EndTime   *time.Time `json:"endTime"`
	}
	if err := decodeJSON(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	if body.SlotID <= 0 {
		a.fail(w, apperr.New(apperr.Validation, "slotId is required"))
		return
	}
	if body.StartTime == nil || body.EndTime == nil {
		a.fail(w, apperr.New(apperr.Validation, "startTime and endTime are required"))
		return
	}

	res, err := a.engine.Book(r.Context(), u.ID, body.SlotID, *body.StartTime, *body.EndTime)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, res)
}

func (a *API) cancelReservation(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	if err := a.engine.Cancel(r.Context(), u, id); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) history(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	out, err := a.engine.ListHistory(r.Context(), u.ID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if out == nil {
		out = []model.ReservationDetail{}
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) upcoming(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	out, err := a.engine.ListUpcoming(r.Context(), u.ID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if out == nil {
		out = []model.ReservationDetail{}
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) occupancy(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	if err := a.gate.RequireAdmin(u); err != nil {
		a.fail(w, err)
		return
	}
	out, err := a.engine.CurrentOccupancy(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	if out == nil {
		out = []model.OccupancyEntry{}
	}
	a.writeJSON(w, http.StatusOK, out)
}
