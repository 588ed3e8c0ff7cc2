package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// maxFrameSize limits uploaded frames to 10 MB.
const maxFrameSize = 10 << 20

// Recognizer is the part of the recognition service the handlers use.
type Recognizer interface {
	Process(ctx context.Context, embeddings []facematch.Embedding, at time.Time) ([]recognition.FaceOutcome, error)
	ProcessFrame(ctx context.Context, frame []byte, at time.Time) ([]recognition.FaceOutcome, error)
	Reload(ctx context.Context) (recognition.GalleryStats, error)
	Stats() recognition.GalleryStats
}

// RecognizeHandler handles recognition and gallery endpoints
type RecognizeHandler struct {
	config  *config.Config
	service Recognizer
	loc     *time.Location
	now     func() time.Time
}

// NewRecognizeHandler creates a new recognize handler
func NewRecognizeHandler(cfg *config.Config, service Recognizer, loc *time.Location) *RecognizeHandler {
	return &RecognizeHandler{config: cfg, service: service, loc: loc, now: time.Now}
}

type recognizeRequest struct {
	Embeddings [][]float32 `json:"embeddings"`
	Timestamp  string      `json:"timestamp"`
}

type faceResponse struct {
	Face      int             `json:"face"`
	Status    string          `json:"status"`
	SubjectID string          `json:"subject_id,omitempty"`
	Distance  float64         `json:"distance"`
	Action    string          `json:"action,omitempty"`
	Record    *recordResponse `json:"record,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type recognizeResponse struct {
	Timestamp string         `json:"timestamp"`
	Faces     []faceResponse `json:"faces"`
}

// Recognize matches client-side computed embeddings and records attendance
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	at, err := parseEventTime(req.Timestamp, h.now)
	if err != nil {
		respondError(w, http.StatusBadRequest, "timestamp must be RFC3339")
		return
	}

	embeddings := make([]facematch.Embedding, len(req.Embeddings))
	for i, e := range req.Embeddings {
		embeddings[i] = e
	}

	outcomes, err := h.service.Process(r.Context(), embeddings, at)
	h.respondOutcomes(w, r, at, outcomes, err)
}

// RecognizeFrame forwards an uploaded frame to the face extractor.
// The frame is either the raw request body or a multipart "file" field.
func (h *RecognizeHandler) RecognizeFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := readFrame(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	at, err := parseEventTime(r.URL.Query().Get("timestamp"), h.now)
	if err != nil {
		respondError(w, http.StatusBadRequest, "timestamp must be RFC3339")
		return
	}

	outcomes, err := h.service.ProcessFrame(r.Context(), frame, at)
	if errors.Is(err, recognition.ErrNoExtractor) {
		respondError(w, http.StatusServiceUnavailable, "face extractor not configured")
		return
	}
	h.respondOutcomes(w, r, at, outcomes, err)
}

func readFrame(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFrameSize)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxFrameSize); err != nil {
			return nil, errors.New("invalid multipart form")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("missing file field")
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	frame, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.New("failed to read frame")
	}
	if len(frame) == 0 {
		return nil, errors.New("empty frame")
	}
	return frame, nil
}

func (h *RecognizeHandler) respondOutcomes(w http.ResponseWriter, r *http.Request, at time.Time, outcomes []recognition.FaceOutcome, err error) {
	if errors.Is(err, facematch.ErrEmptyGallery) {
		respondError(w, http.StatusConflict, "gallery is empty, enroll subjects first")
		return
	}
	if err != nil && outcomes == nil {
		log.Printf("recognize: %s", sanitizeForLog(err.Error()))
		respondError(w, http.StatusBadGateway, "recognition failed")
		return
	}

	names := h.subjectNames(r.Context(), outcomes)
	resp := recognizeResponse{
		Timestamp: at.In(h.loc).Format(time.RFC3339),
		Faces:     make([]faceResponse, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		face := faceResponse{
			Face:      o.Face,
			Status:    string(o.Match.Status),
			SubjectID: o.Match.SubjectID,
			Distance:  o.Match.Distance,
		}
		if o.Attendance != nil {
			face.Action = string(o.Attendance.Action)
			rec := toRecordResponse(o.Attendance.Record, names[o.Match.SubjectID], h.loc)
			face.Record = &rec
		}
		if o.Err != nil {
			face.Error = o.Err.Error()
		}
		resp.Faces = append(resp.Faces, face)
	}

	status := http.StatusOK
	if err != nil {
		log.Printf("recognize: %s", sanitizeForLog(err.Error()))
		status = http.StatusMultiStatus
	}
	respondJSON(w, status, resp)
}

// subjectNames resolves names of matched subjects for record titles.
// Missing storage only degrades titles to "Unknown".
func (h *RecognizeHandler) subjectNames(ctx context.Context, outcomes []recognition.FaceOutcome) map[string]string {
	names := make(map[string]string)
	reader, err := database.GetSubjectReader(ctx)
	if err != nil {
		return names
	}
	for _, o := range outcomes {
		id := o.Match.SubjectID
		if id == "" {
			continue
		}
		if _, done := names[id]; done {
			continue
		}
		subject, err := reader.GetSubject(ctx, id)
		if err != nil || subject == nil {
			names[id] = ""
			continue
		}
		names[id] = subject.Name
	}
	return names
}

// GalleryStatus returns information about the loaded gallery
func (h *RecognizeHandler) GalleryStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.Stats())
}

// ReloadGallery rebuilds the gallery snapshot from storage
func (h *RecognizeHandler) ReloadGallery(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Reload(r.Context())
	if err != nil {
		log.Printf("gallery reload: %s", sanitizeForLog(err.Error()))
		respondError(w, http.StatusInternalServerError, "failed to reload gallery")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
