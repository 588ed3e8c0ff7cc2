package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type recordResponse struct {
	ID             string `json:"id"`
	SubjectID      string `json:"subject_id"`
	SessionID      string `json:"session_id,omitempty"`
	Title          string `json:"title"`
	CheckIn        string `json:"check_in,omitempty"`
	CheckOut       string `json:"check_out,omitempty"`
	State          string `json:"state"`
	CheckInStatus  string `json:"check_in_status"`
	CheckOutStatus string `json:"check_out_status"`
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(time.RFC3339)
}

func toRecordResponse(rec *attendance.Record, subjectName string, loc *time.Location) recordResponse {
	return recordResponse{
		ID:             rec.ID,
		SubjectID:      rec.SubjectID,
		SessionID:      rec.SessionID,
		Title:          rec.Title(loc, subjectName),
		CheckIn:        formatTime(rec.CheckIn, loc),
		CheckOut:       formatTime(rec.CheckOut, loc),
		State:          string(rec.State),
		CheckInStatus:  string(rec.CheckInStatus),
		CheckOutStatus: string(rec.CheckOutStatus),
	}
}

// parseEventTime parses an optional RFC3339 timestamp, defaulting to now.
func parseEventTime(value string, now func() time.Time) (time.Time, error) {
	if value == "" {
		return now(), nil
	}
	return time.Parse(time.RFC3339, value)
}
