package api

import "github.com/gofiber/fiber/v2/middleware/adaptor"

func (s *Server) setupRoutes() {
	// Documentation
	s.app.Get("/docs", handleDocsHTML)
	s.app.Get("/docs/json", handleDocsJSON)

	// Health check
	s.app.Get("/health", s.healthHandler)

	if s.metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics))
	}

	// A2A JSON-RPC
	s.app.Post("/a2a", s.a2aHandler)
	s.app.Post("/agents/:id/a2a", s.a2aHandler)

	// Discovery
	s.app.Get("/.well-known/agent.json", s.agentCardHandler)
	s.app.Get("/agents/:id/.well-known/agent.json", s.agentCardHandler)
}
