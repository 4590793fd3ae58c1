package routes

import (
	"github.com/go-chi/chi/v5"

	"infinite-experiment/plp/internal/api"
	"infinite-experiment/plp/internal/auth"
	"infinite-experiment/plp/internal/middleware"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, handlers *api.Handlers, deps *api.Dependencies, tokens *auth.TokenService) {
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.AuthMiddleware(tokens, deps.Users)) // every API route needs an acting user

		v1.Get("/plugins/{plugin}/users/{userID}", handlers.RenderPlanHandler())

		v1.Route("/sections/{sectionID}/users/{userID}", func(sec chi.Router) {
			sec.Post("/", handlers.SubmitSectionHandler())
			sec.Get("/items", handlers.ItemsHandler())
			sec.Delete("/items/{itemID}", handlers.DeleteItemHandler())
		})

		// Management group
		v1.Route("/admin", func(admin chi.Router) {
			admin.Use(middleware.IsAdminMiddleware(deps.Caps))

			admin.Get("/plugins", handlers.ListPluginsHandler())
			admin.Post("/plugins", handlers.CreatePluginHandler())
			admin.Post("/plugins/{id}/toggle", handlers.TogglePluginHandler())
			admin.Put("/plugins/{id}/settings", handlers.UpdatePluginSettingsHandler())

			admin.Get("/mis", handlers.ListMISConnectionsHandler())
			admin.Post("/mis", handlers.CreateMISConnectionHandler())
			admin.Post("/mis/{id}/toggle", handlers.ToggleMISConnectionHandler())
			admin.Post("/mis/{id}/test", handlers.TestMISConnectionHandler())
			admin.Delete("/mis/{id}", handlers.DeleteMISConnectionHandler())
		})
	})
}
