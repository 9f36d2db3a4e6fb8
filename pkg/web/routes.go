package web

import "github.com/gofiber/fiber/v3"

// Routes mounts every API endpoint on router.
func Routes(router fiber.Router, handlers *APIHandlers) {
	t := router.Group("/templates")
	t.Get("/", handlers.GetTemplates)
	t.Post("/", handlers.CreateTemplate)
	t.Post("/import", handlers.ImportTemplate)
	t.Get("/:id", handlers.GetTemplate)
	t.Patch("/:id", handlers.UpdateTemplate)
	t.Delete("/:id", handlers.DeleteTemplate)
	t.Get("/:id/export", handlers.ExportTemplate)
	t.Get("/:id/render", handlers.RenderTemplate)

	s := router.Group("/sessions")
	s.Post("/", handlers.OpenSession)
	s.Get("/:id", handlers.GetSession)
	s.Delete("/:id", handlers.CloseSession)

	s.Post("/:id/nodes", handlers.AddNode)
	s.Patch("/:id/nodes/:nodeId", handlers.UpdateNode)
	s.Patch("/:id/nodes/:nodeId/config", handlers.UpdateNodeConfig)
	s.Delete("/:id/nodes/:nodeId", handlers.DeleteNode)

	s.Post("/:id/edges", handlers.AddEdge)
	s.Patch("/:id/edges/:edgeId", handlers.UpdateEdge)
	s.Delete("/:id/edges/:edgeId", handlers.DeleteEdge)

	s.Post("/:id/pointer/down", handlers.PointerDown)
	s.Post("/:id/pointer/move", handlers.PointerMove)
	s.Post("/:id/pointer/up", handlers.PointerUp)
	s.Post("/:id/drop", handlers.Drop)
	s.Post("/:id/select", handlers.Select)
	s.Post("/:id/canvas/click", handlers.ClickCanvas)
	s.Post("/:id/zoom", handlers.Zoom)

	s.Post("/:id/undo", handlers.Undo)
	s.Post("/:id/redo", handlers.Redo)

	s.Get("/:id/panel", handlers.GetPanel)
	s.Post("/:id/panel", handlers.CommitField)

	s.Post("/:id/save", handlers.Save)
	s.Post("/:id/export", handlers.Export)
	s.Get("/:id/render", handlers.RenderSession)

	catalog := router.Group("/catalog")
	catalog.Get("/nodes", handlers.GetNodeCatalog)
	catalog.Get("/data-sources", handlers.GetDataSourceCatalog)
	catalog.Get("/schema", handlers.GetSchema)

	router.Get("/health", handlers.HealthCheck)
}
