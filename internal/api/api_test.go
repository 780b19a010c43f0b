package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parkease-api/internal/access"
	"parkease-api/internal/api"
	"parkease-api/internal/engine"
	"parkease-api/internal/middleware"
	"parkease-api/internal/store/memstore"
)

const adminEmail = "admin@test.com"

func setup(t *testing.T) http.Handler {
	t.Helper()
	st := memstore.New()
	eng := engine.New(st)
	gate := access.NewGate(st, []string{adminEmail})
	a := api.New(eng, gate, st, "test-secret", zerolog.Nop())
	return a.Router(middleware.NewRateLimiter(1000, 1000))
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
}

func signup(t *testing.T, h http.Handler, email, name string) string {
	t.Helper()
	rec := do(t, h, "POST", "/auth/signup", "", map[string]string{
		"email": email, "password": "testpass123", "name": name,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	return resp.Token
}

func freshEmail() string {
	return fmt.Sprintf("u-%s@test.com", uuid.New().String()[:8])
}

// admin sets up a lot with one slot, returns both ids
func seedSlot(t *testing.T, h http.Handler, admin string, number int) (lotID, slotID int64) {
	t.Helper()
	rec := do(t, h, "POST", "/api/lots", admin, map[string]string{
		"name": "Central Garage", "location": "5th Ave",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create lot: %d %s", rec.Code, rec.Body.String())
	}
	var lot struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &lot)

	rec = do(t, h, "POST", "/api/slots", admin, map[string]any{
		"lotId": lot.ID, "slotNumber": number, "type": "standard",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create slot: %d %s", rec.Code, rec.Body.String())
	}
	var slot struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &slot)
	return lot.ID, slot.ID
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e struct {
		Error string `json:"error"`
	}
	decode(t, rec, &e)
	return e.Error
}

func iso(tm time.Time) string { return tm.UTC().Format(time.RFC3339) }

func TestSignupAndLogin(t *testing.T) {
	h := setup(t)
	email := freshEmail()

	tok := signup(t, h, email, "Alice")
	if tok == "" {
		t.Fatal("empty token from signup")
	}

	rec := do(t, h, "POST", "/auth/signup", "", map[string]string{
		"email": email, "password": "testpass123", "name": "Alice Again",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup: %d, want 409", rec.Code)
	}

	rec = do(t, h, "POST", "/auth/login", "", map[string]string{
		"email": email, "password": "testpass123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var hasRefresh bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh_token" && c.HttpOnly {
			hasRefresh = true
		}
	}
	if !hasRefresh {
		t.Error("missing httponly refresh_token cookie")
	}

	rec = do(t, h, "POST", "/auth/login", "", map[string]string{
		"email": email, "password": "wrongpassword",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: %d, want 401", rec.Code)
	}
}

func TestSignupValidation(t *testing.T) {
	h := setup(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"empty email", map[string]string{"email": "", "password": "testpass123", "name": "X"}},
		{"empty password", map[string]string{"email": freshEmail(), "password": "", "name": "X"}},
		{"short password", map[string]string{"email": freshEmail(), "password": "short", "name": "X"}},
		{"empty name", map[string]string{"email": freshEmail(), "password": "testpass123", "name": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, "POST", "/auth/signup", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if code := errCode(t, rec); code != "validation_error" {
				t.Errorf("error code = %s", code)
			}
		})
	}
}

func TestBookingFlow(t *testing.T) {
	h := setup(t)
	admin := signup(t, h, adminEmail, "Admin")
	user := signup(t, h, freshEmail(), "Alice")
	_, slotID := seedSlot(t, h, admin, 101)

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)

	rec := do(t, h, "POST", "/api/reservations", user, map[string]any{
		"slotId": slotID, "startTime": iso(start), "endTime": iso(start.Add(time.Hour)),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &created)

	// overlapping request from another user
	other := signup(t, h, freshEmail(), "Bob")
	rec = do(t, h, "POST", "/api/reservations", other, map[string]any{
		"slotId": slotID, "startTime": iso(start.Add(30 * time.Minute)), "endTime": iso(start.Add(90 * time.Minute)),
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("overlap: %d, want 409", rec.Code)
	}
	if code := errCode(t, rec); code != "conflict" {
		t.Errorf("error code = %s, want conflict", code)
	}

	// adjacent interval is fine
	rec = do(t, h, "POST", "/api/reservations", other, map[string]any{
		"slotId": slotID, "startTime": iso(start.Add(time.Hour)), "endTime": iso(start.Add(2 * time.Hour)),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("adjacent booking: %d %s", rec.Code, rec.Body.String())
	}

	// cancel own reservation
	rec = do(t, h, "DELETE", fmt.Sprintf("/api/reservations/%d", created.ID), user, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}

	// history keeps the cancelled row
	rec = do(t, h, "GET", "/api/reservations/history", user, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: %d", rec.Code)
	}
	var hist []struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	decode(t, rec, &hist)
	if len(hist) != 1 || hist[0].ID != created.ID || hist[0].Status != "cancelled" {
		t.Errorf("history = %+v, want the cancelled reservation", hist)
	}
}

func TestCancelAuthorizationOverHTTP(t *testing.T) {
	h := setup(t)
	admin := signup(t, h, adminEmail, "Admin")
	owner := signup(t, h, freshEmail(), "Alice")
	other := signup(t, h, freshEmail(), "Bob")
	_, slotID := seedSlot(t, h, admin, 1)

	start := time.Now().UTC().Add(-30 * time.Minute).Truncate(time.Second)
	rec := do(t, h, "POST", "/api/reservations", owner, map[string]any{
		"slotId": slotID, "startTime": iso(start), "endTime": iso(start.Add(2 * time.Hour)),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &created)

	path := fmt.Sprintf("/api/reservations/%d", created.ID)
	rec = do(t, h, "DELETE", path, other, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("other user cancel: %d, want 403", rec.Code)
	}

	// currently active, so it shows up for the admin
	rec = do(t, h, "GET", "/api/occupancy", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("occupancy: %d %s", rec.Code, rec.Body.String())
	}
	var occ []struct {
		SlotNumber int    `json:"slotNumber"`
		UserName   string `json:"userName"`
	}
	decode(t, rec, &occ)
	if len(occ) != 1 || occ[0].SlotNumber != 1 || occ[0].UserName != "Alice" {
		t.Fatalf("occupancy = %+v", occ)
	}

	rec = do(t, h, "DELETE", path, admin, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin cancel: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, "GET", "/api/occupancy", admin, nil)
	decode(t, rec, &occ)
	if len(occ) != 0 {
		t.Errorf("cancelled reservation still occupies: %+v", occ)
	}
}

func TestAdminGating(t *testing.T) {
	h := setup(t)
	user := signup(t, h, freshEmail(), "Alice")

	for _, tc := range []struct{ method, path string }{
		{"POST", "/api/lots"},
		{"GET", "/api/occupancy"},
	} {
		rec := do(t, h, tc.method, tc.path, user, map[string]string{"name": "X", "location": "Y"})
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s as user: %d, want 403", tc.method, tc.path, rec.Code)
		}
	}

	rec := do(t, h, "POST", "/api/reservations", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated: %d, want 401", rec.Code)
	}
	if code := errCode(t, rec); code != "unauthenticated" {
		t.Errorf("error code = %s", code)
	}
}

func TestToggleEndpoints(t *testing.T) {
	h := setup(t)
	admin := signup(t, h, adminEmail, "Admin")
	lotID, slotID := seedSlot(t, h, admin, 7)

	rec := do(t, h, "PUT", fmt.Sprintf("/api/slots/%d/toggle", slotID), admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle slot: %d %s", rec.Code, rec.Body.String())
	}
	var slot struct {
		Active bool `json:"isActive"`
	}
	decode(t, rec, &slot)
	if slot.Active {
		t.Error("slot should be inactive after toggle")
	}

	// booking a deactivated slot is rejected distinctly from not-found
	user := signup(t, h, freshEmail(), "Alice")
	start := time.Now().UTC().Add(time.Hour)
	rec = do(t, h, "POST", "/api/reservations", user, map[string]any{
		"slotId": slotID, "startTime": iso(start), "endTime": iso(start.Add(time.Hour)),
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("inactive slot booking: %d, want 422", rec.Code)
	}
	if code := errCode(t, rec); code != "inactive" {
		t.Errorf("error code = %s, want inactive", code)
	}

	rec = do(t, h, "PUT", fmt.Sprintf("/api/lots/%d/toggle", lotID), admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle lot: %d", rec.Code)
	}
	var lot struct {
		Active bool `json:"isActive"`
	}
	decode(t, rec, &lot)
	if lot.Active {
		t.Error("lot should be inactive after toggle")
	}

	// toggling never fails for an existing id: flip both back
	if rec := do(t, h, "PUT", fmt.Sprintf("/api/lots/%d/toggle", lotID), admin, nil); rec.Code != http.StatusOK {
		t.Errorf("re-toggle lot: %d", rec.Code)
	}
	if rec := do(t, h, "PUT", fmt.Sprintf("/api/slots/%d/toggle", slotID), admin, nil); rec.Code != http.StatusOK {
		t.Errorf("re-toggle slot: %d", rec.Code)
	}

	rec = do(t, h, "PUT", "/api/slots/99999/toggle", admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("toggle unknown slot: %d, want 404", rec.Code)
	}
}

func TestAvailableSlotsQuery(t *testing.T) {
	h := setup(t)
	admin := signup(t, h, adminEmail, "Admin")
	user := signup(t, h, freshEmail(), "Alice")
	_, busy := seedSlot(t, h, admin, 1)

	// second slot in the same lot stays free
	rec := do(t, h, "GET", "/api/slots", admin, nil)
	var all []struct {
		ID    int64 `json:"id"`
		LotID int64 `json:"lotId"`
	}
	decode(t, rec, &all)
	if len(all) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(all))
	}
	rec = do(t, h, "POST", "/api/slots", admin, map[string]any{
		"lotId": all[0].LotID, "slotNumber": 2, "type": "ev",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create slot 2: %d", rec.Code)
	}
	var free struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &free)

	start := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	rec = do(t, h, "POST", "/api/reservations", user, map[string]any{
		"slotId": busy, "startTime": iso(start), "endTime": iso(start.Add(time.Hour)),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: %d %s", rec.Code, rec.Body.String())
	}

	// availability query requires no token
	path := fmt.Sprintf("/api/slots?start=%s&end=%s", iso(start), iso(start.Add(time.Hour)))
	rec = do(t, h, "GET", path, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("available: %d %s", rec.Code, rec.Body.String())
	}
	var avail []struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &avail)
	if len(avail) != 1 || avail[0].ID != free.ID {
		t.Errorf("available = %+v, want only slot %d", avail, free.ID)
	}

	rec = do(t, h, "GET", "/api/slots?start=not-a-time&end="+iso(start), "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad start param: %d, want 400", rec.Code)
	}
}

func TestDuplicateSlotNumber(t *testing.T) {
	h := setup(t)
	admin := signup(t, h, adminEmail, "Admin")
	lotID, _ := seedSlot(t, h, admin, 5)

	rec := do(t, h, "POST", "/api/slots", admin, map[string]any{
		"lotId": lotID, "slotNumber": 5, "type": "standard",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate slot number: %d, want 409", rec.Code)
	}
}

func TestUpdateSlot(t *testing.T) {
	h := setup(t)
	admin := signup(t, h, adminEmail, "Admin")
	lotID, slotID := seedSlot(t, h, admin, 5)

	rec := do(t, h, "POST", "/api/slots", admin, map[string]any{
		"lotId": lotID, "slotNumber": 6, "type": "standard",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("second slot: %d %s", rec.Code, rec.Body.String())
	}
	var second struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &second)

	path := fmt.Sprintf("/api/slots/%d", second.ID)

	// renumbering onto an occupied number in the same lot
	rec = do(t, h, "PUT", path, admin, map[string]any{
		"lotId": lotID, "slotNumber": 5, "type": "standard",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("update to taken number: %d, want 409", rec.Code)
	}

	// keeping its own number is not a collision
	rec = do(t, h, "PUT", path, admin, map[string]any{
		"lotId": lotID, "slotNumber": 6, "type": "ev",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update keeping own number: %d %s", rec.Code, rec.Body.String())
	}
	var updated struct {
		Number int    `json:"slotNumber"`
		Type   string `json:"type"`
	}
	decode(t, rec, &updated)
	if updated.Number != 6 || updated.Type != "ev" {
		t.Errorf("updated slot = %+v", updated)
	}

	rec = do(t, h, "PUT", path, admin, map[string]any{
		"lotId": 99999, "slotNumber": 6, "type": "ev",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("update into unknown lot: %d, want 404", rec.Code)
	}

	rec = do(t, h, "PUT", fmt.Sprintf("/api/slots/%d", slotID+1000), admin, map[string]any{
		"lotId": lotID, "slotNumber": 7, "type": "standard",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("update unknown slot: %d, want 404", rec.Code)
	}
}

func TestEmailCaseInsensitive(t *testing.T) {
	h := setup(t)
	email := freshEmail()
	upper := "Mixed." + email

	rec := do(t, h, "POST", "/auth/signup", "", map[string]string{
		"email": "MIXED." + email, "password": "testpass123", "name": "Alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, "POST", "/auth/signup", "", map[string]string{
		"email": upper, "password": "testpass123", "name": "Mallory",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("case-variant signup: %d, want 409", rec.Code)
	}

	rec = do(t, h, "POST", "/auth/login", "", map[string]string{
		"email": "mixed." + email, "password": "testpass123",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("lowercase login: %d, want 200", rec.Code)
	}
}

func TestRefreshRotation(t *testing.T) {
	h := setup(t)
	email := freshEmail()
	signup(t, h, email, "Alice")

	rec := do(t, h, "POST", "/auth/login", "", map[string]string{
		"email": email, "password": "testpass123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d", rec.Code)
	}
	var old *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh_token" {
			old = c
		}
	}
	if old == nil {
		t.Fatal("no refresh cookie issued")
	}

	req := httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(old)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	if resp.Token == "" {
		t.Error("refresh returned no access token")
	}

	// the rotated-out cookie must be dead
	req = httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(old)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("replayed refresh token: %d, want 401", rec.Code)
	}
}
