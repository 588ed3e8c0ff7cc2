package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// SessionsHandler handles session schedule endpoints
type SessionsHandler struct{}

// NewSessionsHandler creates a new sessions handler
func NewSessionsHandler() *SessionsHandler {
	return &SessionsHandler{}
}

type sessionResponse struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Description          string `json:"description,omitempty"`
	Type                 string `json:"type"`
	Start                string `json:"start,omitempty"`
	End                  string `json:"end,omitempty"`
	CheckInGraceMinutes  int    `json:"check_in_grace"`
	CheckOutGraceMinutes int    `json:"check_out_grace"`
}

// Start and End are "HH:MM"; grace periods are minutes and default to 5.
type createSessionRequest struct {
	ID                   string                `json:"id"`
	Name                 string                `json:"name"`
	Description          string                `json:"description"`
	Type                 string                `json:"type"`
	Start                *attendance.TimeOfDay `json:"start"`
	End                  *attendance.TimeOfDay `json:"end"`
	CheckInGraceMinutes  *int                  `json:"check_in_grace"`
	CheckOutGraceMinutes *int                  `json:"check_out_grace"`
}

func toSessionResponse(s *attendance.Session) sessionResponse {
	resp := sessionResponse{
		ID:                   s.ID,
		Name:                 s.Name,
		Description:          s.Description,
		Type:                 string(s.Type),
		CheckInGraceMinutes:  int(s.CheckInGrace / time.Minute),
		CheckOutGraceMinutes: int(s.CheckOutGrace / time.Minute),
	}
	if s.Start != nil {
		resp.Start = s.Start.String()
	}
	if s.End != nil {
		resp.End = s.End.String()
	}
	return resp
}

func graceOrDefault(minutes *int) time.Duration {
	if minutes == nil {
		return attendance.DefaultGracePeriod
	}
	return time.Duration(*minutes) * time.Minute
}

// List returns all sessions ordered by start time
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	repo, err := database.GetSessionReader(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "session storage not available")
		return
	}

	sessions, err := repo.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	resp := make([]sessionResponse, 0, len(sessions))
	for i := range sessions {
		resp = append(resp, toSessionResponse(&sessions[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Create stores a new session or replaces one with the same ID
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	session := &attendance.Session{
		ID:            req.ID,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Type:          attendance.SessionType(req.Type),
		Start:         req.Start,
		End:           req.End,
		CheckInGrace:  graceOrDefault(req.CheckInGraceMinutes),
		CheckOutGrace: graceOrDefault(req.CheckOutGraceMinutes),
	}
	if session.Type == "" {
		session.Type = attendance.SessionRegular
	}
	if err := session.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	repo, err := database.GetSessionWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "session storage not available")
		return
	}
	if err := repo.SaveSession(r.Context(), session); err != nil {
		if errors.Is(err, attendance.ErrInvalidSession) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	respondJSON(w, http.StatusCreated, toSessionResponse(session))
}
