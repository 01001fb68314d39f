package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/askdesk/backend/internal/domain"
	"github.com/askdesk/backend/internal/index"
	"github.com/askdesk/backend/pkg/logger"
)

type IndexHandler struct {
	indexer *index.Indexer
}

func NewIndexHandler(indexer *index.Indexer) *IndexHandler {
	return &IndexHandler{indexer: indexer}
}

// HandleReindex rebuilds the index from the current corpus state. The
// previous generation keeps serving queries until the new one swaps in.
func (h *IndexHandler) HandleReindex(c *fiber.Ctx) error {
	result, err := h.indexer.Rebuild(c.Context())
	if err != nil {
		logger.Error("Failed to rebuild index", zap.Error(err))

		if domain.IsConfiguration(err) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if domain.IsUpstreamService(err) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Upstream service failure during rebuild",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to rebuild index",
		})
	}

	return c.JSON(fiber.Map{
		"documents": result.Documents,
		"chunks":    result.Chunks,
	})
}
