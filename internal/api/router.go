package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/graphwarehouse/engine/internal/api/handlers"
	mw "github.com/graphwarehouse/engine/internal/api/middleware"
)

type Dependencies struct {
	HMACSecret []byte
	// Limiter guards every route, ImportLimiter the import endpoints only.
	Limiter       *mw.Limiter
	ImportLimiter *mw.Limiter
	Metrics       http.Handler

	HealthHandler        *handlers.HealthHandler
	ContainersHandler    *handlers.ContainersHandler
	MetatypesHandler     *handlers.MetatypesHandler
	RelationshipsHandler *handlers.RelationshipsHandler
	RelationshipKeys     *handlers.RelationshipKeysHandler
	PairsHandler         *handlers.PairsHandler
	ImportHandler        *handlers.ImportHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	if dep.Limiter != nil {
		r.Use(dep.Limiter.Handler)
	}
	r.Use(chimid.Compress(5))

	// Health endpoints
	r.Get("/healthz", dep.HealthHandler.Liveness)
	r.Get("/readyz", dep.HealthHandler.Readiness)
	if dep.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", dep.Metrics)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(mw.Auth(dep.HMACSecret))

		api.Route("/containers", func(cr chi.Router) {
			cr.Get("/", dep.ContainersHandler.List)
			cr.Post("/", dep.ContainersHandler.Create)
			cr.With(importLimit(dep)).Post("/import", dep.ImportHandler.Create)

			cr.Route("/{containerID}", func(c chi.Router) {
				c.Get("/", dep.ContainersHandler.Get)
				c.Delete("/", dep.ContainersHandler.Archive)
				c.With(importLimit(dep)).Put("/import", dep.ImportHandler.Update)

				c.Get("/alerts", dep.ContainersHandler.Alerts)
				c.Post("/alerts/{alertID}/acknowledge", dep.ContainersHandler.AcknowledgeAlert)
				c.Get("/versions", dep.ContainersHandler.Versions)
				c.Get("/versions/{versionID}", dep.ContainersHandler.Version)

				// Metatypes
				c.Route("/metatypes", func(mr chi.Router) {
					mr.Get("/", dep.MetatypesHandler.List)
					mr.Post("/", dep.MetatypesHandler.Create)
					mr.Post("/bulk", dep.MetatypesHandler.BulkCreate)
					mr.Get("/{id}", dep.MetatypesHandler.Get)
					mr.Put("/{id}", dep.MetatypesHandler.Update)
					mr.Delete("/{id}", dep.MetatypesHandler.Delete)
					mr.Post("/{id}/unarchive", dep.MetatypesHandler.Unarchive)
					mr.Get("/{id}/keys", dep.MetatypesHandler.Keys)
					mr.Get("/{id}/pairs", dep.MetatypesHandler.Pairs)
					mr.Get("/{id}/ancestors", dep.MetatypesHandler.Ancestors)
					mr.Post("/{id}/validate", dep.MetatypesHandler.ValidateProperties)
				})

				// Relationships
				c.Route("/relationships", func(rr chi.Router) {
					rr.Get("/", dep.RelationshipsHandler.List)
					rr.Post("/", dep.RelationshipsHandler.Create)
					rr.Get("/{id}", dep.RelationshipsHandler.Get)
					rr.Put("/{id}", dep.RelationshipsHandler.Update)
					rr.Delete("/{id}", dep.RelationshipsHandler.Delete)
					rr.Post("/{id}/unarchive", dep.RelationshipsHandler.Unarchive)
					rr.Get("/{id}/keys", dep.RelationshipKeys.List)
					rr.Post("/{id}/keys", dep.RelationshipKeys.Save)
					rr.Delete("/{id}/keys/{keyID}", dep.RelationshipKeys.Delete)
				})

				// Relationship pairs
				c.Route("/pairs", func(pr chi.Router) {
					pr.Get("/", dep.PairsHandler.List)
					pr.Post("/", dep.PairsHandler.Create)
					pr.Get("/{id}", dep.PairsHandler.Get)
					pr.Put("/{id}", dep.PairsHandler.Update)
					pr.Delete("/{id}", dep.PairsHandler.Delete)
					pr.Post("/{id}/unarchive", dep.PairsHandler.Unarchive)
				})
			})
		})
	})

	return r
}

func importLimit(dep Dependencies) func(http.Handler) http.Handler {
	if dep.ImportLimiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return dep.ImportLimiter.Handler
}
