package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	recognizeHandler := handlers.NewRecognizeHandler(s.config, s.service, s.loc)
	subjectsHandler := handlers.NewSubjectsHandler(s.config, s.service, s.loc)
	sessionsHandler := handlers.NewSessionsHandler()
	attendanceHandler := handlers.NewAttendanceHandler(s.loc)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Recognition
		r.Post("/recognize", recognizeHandler.Recognize)
		r.Post("/recognize/frame", recognizeHandler.RecognizeFrame)
		r.Get("/gallery", recognizeHandler.GalleryStatus)
		r.Post("/gallery/reload", recognizeHandler.ReloadGallery)

		// Enrollment
		r.Get("/subjects", subjectsHandler.List)
		r.Post("/subjects", subjectsHandler.Create)
		r.Delete("/subjects/{id}", subjectsHandler.Delete)
		r.Get("/subjects/{id}/attendance", subjectsHandler.Attendance)

		// Schedule
		r.Get("/sessions", sessionsHandler.List)
		r.Post("/sessions", sessionsHandler.Create)

		// Reporting
		r.Get("/attendance/summary", attendanceHandler.Summary)
	})
}
