package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"parkease-api/internal/apperr"
	"parkease-api/internal/model"
	"parkease-api/internal/store"
)

// listSlots returns every slot, or only the available ones when a
// start/end interval is given.
func (a *API) listSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	startRaw, endRaw := q.Get("start"), q.Get("end")

	if startRaw == "" && endRaw == "" {
		out, err := a.store.Slots(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
		if out == nil {
			out = []model.Slot{}
		}
		a.writeJSON(w, http.StatusOK, out)
		return
	}

	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		a.fail(w, apperr.New(apperr.Validation, "start must be an RFC 3339 timestamp"))
		return
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		a.fail(w, apperr.New(apperr.Validation, "end must be an RFC 3339 timestamp"))
		return
	}
	var lotID int64
	if raw := q.Get("lotId"); raw != "" {
		lotID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || lotID <= 0 {
			a.fail(w, apperr.New(apperr.Validation, "lotId must be a positive integer"))
			return
		}
	}

	out, err := a.engine.ListAvailable(r.Context(), lotID, start, end)
	if err != nil {
		a.fail(w, err)
		return
	}
	if out == nil {
		out = []model.Slot{}
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) createSlot(w http.ResponseWriter, r *http.Request) {
	if err := a.requireAdmin(r); err != nil {
		a.fail(w, err)
		return
	}

	var body struct {
		LotID      int64  `json:"lotId"`
		SlotNumber int    `json:"slotNumber"`
		Type       string `json:"type"`
	}
	if err := decodeJSON(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	if body.LotID <= 0 || body.SlotNumber <= 0 || body.Type == "" {
		a.fail(w, apperr.New(apperr.Validation, "lotId, slotNumber and type are required"))
		return
	}
	if _, err := a.store.LotByID(r.Context(), body.LotID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.fail(w, apperr.New(apperr.NotFound, "lot not found"))
			return
		}
		a.fail(w, err)
		return
	}

	sl := &model.Slot{LotID: body.LotID, Number: body.SlotNumber, Type: body.Type}
	if err := a.store.CreateSlot(r.Context(), sl); err != nil {
		a.fail(w, mapStoreErr(err, "slot number already exists in this lot"))
		return
	}
	a.writeJSON(w, http.StatusCreated, sl)
}

func (a *API) updateSlot(w http.ResponseWriter, r *http.Request) {
	if err := a.requireAdmin(r); err != nil {
		a.fail(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}

	var body struct {
		LotID      int64  `json:"lotId"`
		SlotNumber int    `json:"slotNumber"`
		Type       string `json:"type"`
	}
	if err := decodeJSON(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	if body.LotID <= 0 || body.SlotNumber <= 0 || body.Type == "" {
		a.fail(w, apperr.New(apperr.Validation, "lotId, slotNumber and type are required"))
		return
	}
	if _, err := a.store.LotByID(r.Context(), body.LotID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.fail(w, apperr.New(apperr.NotFound, "lot not found"))
			return
		}
		a.fail(w, err)
		return
	}

	sl := &model.Slot{ID: id, LotID: body.LotID, Number: body.SlotNumber, Type: body.Type}
	if err := a.store.UpdateSlot(r.Context(), sl); err != nil {
		a.fail(w, mapStoreErr(err, "slot number already exists in this lot"))
		return
	}
	a.writeJSON(w, http.StatusOK, sl)
}

func (a *API) toggleSlot(w http.ResponseWriter, r *http.Request) {
	if err := a.requireAdmin(r); err != nil {
		a.fail(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	sl, err := a.store.ToggleSlot(r.Context(), id)
	if err != nil {
		a.fail(w, mapStoreErr(err, ""))
		return
	}
	a.writeJSON(w, http.StatusOK, sl)
}

func (a *API) requireAdmin(r *http.Request) error {
	u, err := a.currentUser(r)
	if err != nil {
		return err
	}
	return a.gate.RequireAdmin(u)
}

// mapStoreErr lifts store sentinels into the taxonomy.
func mapStoreErr(err error, dupMsg string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.New(apperr.NotFound, "not found")
	case errors.Is(err, store.ErrDuplicate):
		if dupMsg == "" {
			dupMsg = "already exists"
		}
		return apperr.New(apperr.Conflict, dupMsg)
	default:
		return err
	}
}
