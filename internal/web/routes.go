package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	var g *gallery.Gallery
	if s.deps.Service != nil {
		g = s.deps.Service.Gallery()
	}

	attendanceHandler := handlers.NewAttendanceHandler(s.config, s.deps.Service, s.deps.Detector)
	identitiesHandler := handlers.NewIdentitiesHandler(s.config, s.deps.Detector)
	facultyHandler := handlers.NewFacultyHandler()
	statsHandler := handlers.NewStatsHandler()
	galleryHandler := handlers.NewGalleryHandler(g)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		// Attendance
		r.Post("/attendance/mark", attendanceHandler.Mark)
		r.Post("/attendance/mark/image", attendanceHandler.MarkImage)
		r.Post("/attendance/end-session", attendanceHandler.EndSession)
		r.Get("/attendance", attendanceHandler.List)

		// Identities
		r.Get("/identities", identitiesHandler.List)
		r.Post("/identities", identitiesHandler.Enroll)
		r.Get("/identities/{id}/report", identitiesHandler.Report)

		// Faculty
		r.Get("/faculty", facultyHandler.List)
		r.Post("/faculty", facultyHandler.Create)

		r.Get("/stats", statsHandler.Get)
		r.Post("/gallery/nearest", galleryHandler.Nearest)
	})
}
