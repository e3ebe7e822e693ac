package routes

import (
	"partstream/fitment-engine/internal/api"
	"partstream/fitment-engine/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterAPIRoutes registers all API v1 routes and handlers.
// This keeps API route registration separate from the main router setup.
func RegisterAPIRoutes(r chi.Router, deps *api.Dependencies) {

	r.Route("/api/v1", func(v1 chi.Router) {
		// every mutation needs an identified actor for the history ledger
		v1.Use(middleware.ActorMiddleware)

		v1.Route("/mappings", func(m chi.Router) {
			m.Post("/", api.CreateMappingHandler(deps))
			m.Get("/search", api.SearchMappingsHandler(deps))

			m.Route("/{mappingID}", func(one chi.Router) {
				one.Get("/", api.GetMappingHandler(deps))
				one.Put("/", api.UpdateMappingHandler(deps))
				one.Delete("/", api.DeleteMappingHandler(deps))
				one.Get("/history", api.GetMappingHistoryHandler(deps))
				one.Post("/validate", api.ValidateMappingHandler(deps))
				one.Post("/invalidate", api.InvalidateMappingHandler(deps))
			})
		})

		v1.Route("/imports", func(im chi.Router) {
			im.Post("/", api.StartImportHandler(deps))
			im.Get("/{jobID}", api.GetImportJobHandler(deps))
			im.Post("/{jobID}/cancel", api.CancelImportJobHandler(deps))
		})
	})
}
