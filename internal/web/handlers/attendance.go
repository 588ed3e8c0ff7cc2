package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceHandler handles attendance reporting endpoints
type AttendanceHandler struct {
	loc *time.Location
	now func() time.Time
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(loc *time.Location) *AttendanceHandler {
	return &AttendanceHandler{loc: loc, now: time.Now}
}

type summaryResponse struct {
	Date    string             `json:"date"`
	Summary attendance.Summary `json:"summary"`
}

// Summary counts the records of one local calendar day (?date=YYYY-MM-DD,
// default today).
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	day := h.now().In(h.loc)
	if s := r.URL.Query().Get("date"); s != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, s, h.loc)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, h.loc)
	to := from.AddDate(0, 0, 1)

	repo, err := database.GetAttendanceReader(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "attendance storage not available")
		return
	}
	records, err := repo.ListBetween(r.Context(), from, to)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}

	respondJSON(w, http.StatusOK, summaryResponse{
		Date:    from.Format(time.DateOnly),
		Summary: attendance.Summarize(records),
	})
}
