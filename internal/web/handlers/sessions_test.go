package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

func TestSessionsHandler_Create_Success(t *testing.T) {
	stores := setupStores(t)
	handler := NewSessionsHandler()

	body := bytes.NewBufferString(`{"id":"evening","name":"Evening Course","type":"short_course","start":"18:00","end":"19:30","check_in_grace":10}`)
	req := httptest.NewRequest("POST", "/api/v1/sessions", body)
	recorder := httptest.NewRecorder()
	handler.Create(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp sessionResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Start != "18:00" || resp.End != "19:30" || resp.Type != "short_course" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.CheckInGraceMinutes != 10 || resp.CheckOutGraceMinutes != 5 {
		t.Errorf("expected grace 10/5, got %d/%d", resp.CheckInGraceMinutes, resp.CheckOutGraceMinutes)
	}

	stored, _ := stores.sessions.Session(req.Context(), "evening")
	if stored == nil || stored.CheckInGrace != 10*time.Minute {
		t.Errorf("expected stored session with 10m grace, got %+v", stored)
	}
}

func TestSessionsHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{invalid}`},
		{"missing id", `{"name":"A"}`},
		{"missing name", `{"id":"a"}`},
		{"bad time", `{"id":"a","name":"A","start":"24:10"}`},
		{"unknown type", `{"id":"a","name":"A","type":"party"}`},
		{"negative grace", `{"id":"a","name":"A","check_out_grace":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupStores(t)
			handler := NewSessionsHandler()

			req := httptest.NewRequest("POST", "/api/v1/sessions", bytes.NewBufferString(tt.body))
			recorder := httptest.NewRecorder()
			handler.Create(recorder, req)

			assertStatusCode(t, recorder, http.StatusBadRequest)
		})
	}
}

func TestSessionsHandler_List(t *testing.T) {
	stores := setupStores(t)
	handler := NewSessionsHandler()

	late, _ := attendance.FromHours(13.5)
	early, _ := attendance.FromHours(7.5)
	stores.sessions.AddSession(*attendance.NewSession("afternoon", "Afternoon", late, late))
	stores.sessions.AddSession(*attendance.NewSession("morning", "Morning", early, early))
	stores.sessions.AddSession(attendance.Session{ID: "workshop", Name: "Workshop", Type: attendance.SessionWorkshop})

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/sessions", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp []sessionResponse
	parseJSONResponse(t, recorder, &resp)
	want := []string{"morning", "afternoon", "workshop"}
	if len(resp) != len(want) {
		t.Fatalf("expected %d sessions, got %d", len(want), len(resp))
	}
	for i, id := range want {
		if resp[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, resp[i].ID)
		}
	}
	if resp[2].Start != "" {
		t.Errorf("expected no start for workshop, got %q", resp[2].Start)
	}
}

func TestSessionsHandler_List_BackendError(t *testing.T) {
	stores := setupStores(t)
	stores.sessions.ListError = errMock
	handler := NewSessionsHandler()

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/sessions", nil))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to list sessions")
}
