package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

const defaultHistoryLimit = 50

// GalleryReloader refreshes the recognition gallery after enrollment changes.
type GalleryReloader interface {
	Reload(ctx context.Context) (recognition.GalleryStats, error)
}

// SubjectsHandler handles enrollment endpoints
type SubjectsHandler struct {
	config   *config.Config
	reloader GalleryReloader
	loc      *time.Location
}

// NewSubjectsHandler creates a new subjects handler
func NewSubjectsHandler(cfg *config.Config, reloader GalleryReloader, loc *time.Location) *SubjectsHandler {
	return &SubjectsHandler{config: cfg, reloader: reloader, loc: loc}
}

type subjectResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SessionID  string `json:"session_id,omitempty"`
	Embeddings int    `json:"embeddings"`
	CreatedAt  string `json:"created_at"`
}

type createSubjectRequest struct {
	Name       string      `json:"name"`
	SessionID  string      `json:"session_id"`
	Embeddings [][]float32 `json:"embeddings"`
	Model      string      `json:"model"`
}

func getSubjectWriter(r *http.Request, w http.ResponseWriter) database.SubjectWriter {
	writer, err := database.GetSubjectWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "subject storage not available")
		return nil
	}
	return writer
}

func (h *SubjectsHandler) toResponse(ctx context.Context, repo database.SubjectReader, s *database.StoredSubject) subjectResponse {
	count, err := repo.CountEmbeddings(ctx, s.ID)
	if err != nil {
		log.Printf("count embeddings of %s: %v", s.ID, err)
	}
	return subjectResponse{
		ID:         s.ID,
		Name:       s.Name,
		SessionID:  s.SessionID,
		Embeddings: count,
		CreatedAt:  s.CreatedAt.In(h.loc).Format(time.RFC3339),
	}
}

func (h *SubjectsHandler) reloadGallery(ctx context.Context) {
	if h.reloader == nil {
		return
	}
	if _, err := h.reloader.Reload(ctx); err != nil {
		log.Printf("gallery reload after enrollment change: %v", err)
	}
}

// List returns all enrolled subjects. ?name= filters by normalized name.
func (h *SubjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	repo := getSubjectWriter(r, w)
	if repo == nil {
		return
	}

	var (
		subjects []database.StoredSubject
		err      error
	)
	if name := r.URL.Query().Get("name"); name != "" {
		subjects, err = repo.FindSubjectsByName(r.Context(), name)
	} else {
		subjects, err = repo.ListSubjects(r.Context())
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list subjects")
		return
	}

	resp := make([]subjectResponse, 0, len(subjects))
	for i := range subjects {
		resp = append(resp, h.toResponse(r.Context(), repo, &subjects[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Create enrolls a subject with one or more embeddings
func (h *SubjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Embeddings) == 0 {
		respondError(w, http.StatusBadRequest, "at least one embedding is required")
		return
	}
	dim := h.config.Embedding.Dim
	for _, e := range req.Embeddings {
		if len(e) == 0 || (dim > 0 && len(e) != dim) {
			respondError(w, http.StatusBadRequest, "embeddings must have "+strconv.Itoa(dim)+" dimensions")
			return
		}
	}

	repo := getSubjectWriter(r, w)
	if repo == nil {
		return
	}

	if req.SessionID != "" {
		sessions, err := database.GetSessionReader(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "session storage not available")
			return
		}
		session, err := sessions.Session(r.Context(), req.SessionID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to look up session")
			return
		}
		if session == nil {
			respondError(w, http.StatusBadRequest, "session not found")
			return
		}
	}

	subject := &database.StoredSubject{Name: req.Name, SessionID: req.SessionID, CreatedAt: time.Now()}
	if err := repo.SaveSubject(r.Context(), subject); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save subject")
		return
	}
	for _, e := range req.Embeddings {
		if _, err := repo.AddEmbedding(r.Context(), subject.ID, e, req.Model); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to save embedding")
			return
		}
	}

	h.reloadGallery(r.Context())
	respondJSON(w, http.StatusCreated, h.toResponse(r.Context(), repo, subject))
}

// Delete removes a subject with its embeddings and attendance history
func (h *SubjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	repo := getSubjectWriter(r, w)
	if repo == nil {
		return
	}

	subject, err := repo.GetSubject(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get subject")
		return
	}
	if subject == nil {
		respondError(w, http.StatusNotFound, "subject not found")
		return
	}

	if err := repo.DeleteSubject(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete subject")
		return
	}

	h.reloadGallery(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Attendance returns a subject's attendance history, newest first
func (h *SubjectsHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	repo := getSubjectWriter(r, w)
	if repo == nil {
		return
	}
	subject, err := repo.GetSubject(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get subject")
		return
	}
	if subject == nil {
		respondError(w, http.StatusNotFound, "subject not found")
		return
	}

	records, err := database.GetAttendanceReader(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "attendance storage not available")
		return
	}
	history, err := records.ListBySubject(r.Context(), id, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}

	resp := make([]recordResponse, 0, len(history))
	for i := range history {
		resp = append(resp, toRecordResponse(&history[i], subject.Name, h.loc))
	}
	respondJSON(w, http.StatusOK, resp)
}
