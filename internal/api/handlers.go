package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"agent-host/internal/card"
)

// healthHandler returns the API health status.
func (s *Server) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// agentID returns the :id route parameter, or the default agent when the route has none.
func (s *Server) agentID(c *fiber.Ctx) (int64, bool) {
	raw := c.Params("id")
	if raw == "" {
		return s.config.DefaultAgentID, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// a2aHandler dispatches a JSON-RPC request. Protocol errors are reported in
// the JSON-RPC envelope with HTTP 200.
func (s *Server) a2aHandler(c *fiber.Ctx) error {
	id, ok := s.agentID(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "agent not found",
		})
	}

	resp := s.dispatcher.Dispatch(c.UserContext(), id, c.Body())
	return c.JSON(resp)
}

// agentCardHandler serves the raw agent card document.
func (s *Server) agentCardHandler(c *fiber.Ctx) error {
	q := card.Query{HumanReadableID: c.Query("humanReadableId")}
	if q.HumanReadableID == "" || c.Params("id") != "" {
		id, ok := s.agentID(c)
		if !ok || id == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "agent card not found",
			})
		}
		q.AgentID = &id
	}

	agentCard, err := s.cards.Resolve(c.UserContext(), q)
	if errors.Is(err, card.ErrCardNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "agent card not found",
		})
	}
	if err != nil {
		s.logger.Error("failed to resolve agent card", "path", c.Path(), "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}

	return c.JSON(agentCard)
}
