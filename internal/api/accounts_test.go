package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/rowanveldt/weathervane/internal/auth"
)

func TestAccounts_Create(t *testing.T) {
	srv, accounts, _ := testServer(t)
	teacher := seedAccount(t, accounts, "teacher", auth.RoleTeacher)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/accounts/", teacher.APIKey, map[string]any{
		"username": "new-student",
		"password": "pw",
		"role":     "student", // lower case is accepted and normalised
		"email":    "s@example.com",
	})
	mustStatus(t, rec, http.StatusCreated)

	body := decodeBody(t, rec)
	if body["role"] != "STUDENT" {
		t.Errorf("role = %v, want STUDENT", body["role"])
	}
	apiKey, _ := body["api_key"].(string)
	if apiKey == "" {
		t.Fatal("creation response must carry the generated API key")
	}

	// The fresh key authenticates immediately.
	rec = doRequest(t, srv, http.MethodGet,
		"/api/v1/readings/max-precipitation?device=none", apiKey, nil)
	mustStatus(t, rec, http.StatusNotFound) // authenticated, device just has no data
}

func TestAccounts_CreateValidation(t *testing.T) {
	srv, accounts, _ := testServer(t)
	teacher := seedAccount(t, accounts, "teacher", auth.RoleTeacher)

	// Unknown role.
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/accounts/", teacher.APIKey, map[string]any{
		"username": "x", "password": "pw", "role": "ADMIN",
	})
	mustStatus(t, rec, http.StatusBadRequest)

	// Missing credentials.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/accounts/", teacher.APIKey, map[string]any{
		"role": "STUDENT",
	})
	mustStatus(t, rec, http.StatusBadRequest)
}

func TestAccounts_CreateDuplicateUsername(t *testing.T) {
	srv, accounts, _ := testServer(t)
	teacher := seedAccount(t, accounts, "teacher", auth.RoleTeacher)
	seedAccount(t, accounts, "taken", auth.RoleStudent)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/accounts/", teacher.APIKey, map[string]any{
		"username": "taken", "password": "pw", "role": "STUDENT",
	})
	mustStatus(t, rec, http.StatusConflict)
}

func TestAccounts_GetAndList(t *testing.T) {
	srv, accounts, _ := testServer(t)
	teacher := seedAccount(t, accounts, "teacher", auth.RoleTeacher)
	student := seedAccount(t, accounts, "student", auth.RoleStudent)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/accounts/"+student.ID, teacher.APIKey, nil)
	mustStatus(t, rec, http.StatusOK)
	body := decodeBody(t, rec)
	if body["username"] != "student" {
		t.Errorf("username = %v, want student", body["username"])
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/accounts/", teacher.APIKey, nil)
	mustStatus(t, rec, http.StatusOK)
	body = decodeBody(t, rec)
	if body["count"] != float64(2) {
		t.Errorf("count = %v, want 2", body["count"])
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/accounts/acc-00000000", teacher.APIKey, nil)
	mustStatus(t, rec, http.StatusNotFound)
}

func TestAccounts_Delete(t *testing.T) {
	srv, accounts, _ := testServer(t)
	teacher := seedAccount(t, accounts, "teacher", auth.RoleTeacher)
	student := seedAccount(t, accounts, "student", auth.RoleStudent)

	rec := doRequest(t, srv, http.MethodDelete, "/api/v1/accounts/"+student.ID, teacher.APIKey, nil)
	mustStatus(t, rec, http.StatusNoContent)

	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/accounts/"+student.ID, teacher.APIKey, nil)
	mustStatus(t, rec, http.StatusNotFound)
}

func TestAccounts_DeleteByRole(t *testing.T) {
	srv, accounts, _ := testServer(t)
	teacher := seedAccount(t, accounts, "teacher", auth.RoleTeacher)
	seedAccount(t, accounts, "s1", auth.RoleStudent)
	seedAccount(t, accounts, "s2", auth.RoleStudent)

	// Both students just logged in, so a range around now catches them.
	start := time.Now().UTC().Add(-time.Hour)
	end := time.Now().UTC().Add(time.Hour)

	rec := doRequest(t, srv, http.MethodDelete,
		rangePath("/api/v1/accounts/by-role/STUDENT", start, end), teacher.APIKey, nil)
	mustStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	if body["deleted"] != float64(2) {
		t.Errorf("deleted = %v, want 2", body["deleted"])
	}

	// Missing range is rejected before anything is touched.
	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/accounts/by-role/STUDENT", teacher.APIKey, nil)
	mustStatus(t, rec, http.StatusBadRequest)

	// So is a degenerate range with equal bounds.
	rec = doRequest(t, srv, http.MethodDelete,
		rangePath("/api/v1/accounts/by-role/STUDENT", start, start), teacher.APIKey, nil)
	mustStatus(t, rec, http.StatusBadRequest)

	// Unknown role is rejected.
	rec = doRequest(t, srv, http.MethodDelete,
		rangePath("/api/v1/accounts/by-role/ADMIN", start, end), teacher.APIKey, nil)
	mustStatus(t, rec, http.StatusBadRequest)
}

func TestAccounts_BulkUpdateRole(t *testing.T) {
	srv, accounts, _ := testServer(t)
	teacher := seedAccount(t, accounts, "teacher", auth.RoleTeacher)
	seedAccount(t, accounts, "s1", auth.RoleStudent)

	start := time.Now().UTC().Add(-time.Hour)
	end := time.Now().UTC().Add(time.Hour)

	// Unknown target role is rejected.
	rec := doRequest(t, srv, http.MethodPatch,
		rangePath("/api/v1/accounts/role", start, end)+"&role=WIZARD", teacher.APIKey, nil)
	mustStatus(t, rec, http.StatusBadRequest)

	// The update hits every account that logged in within the range,
	// including the teacher making the call.
	rec = doRequest(t, srv, http.MethodPatch,
		rangePath("/api/v1/accounts/role", start, end)+"&role=SENSOR", teacher.APIKey, nil)
	mustStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	if body["updated"] != float64(2) {
		t.Errorf("updated = %v, want 2", body["updated"])
	}
}
