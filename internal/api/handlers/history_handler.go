package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/askdesk/backend/internal/storage/sqlite"
	"github.com/askdesk/backend/pkg/logger"
)

type HistoryHandler struct {
	db *sqlite.Client
}

func NewHistoryHandler(db *sqlite.Client) *HistoryHandler {
	return &HistoryHandler{db: db}
}

func (h *HistoryHandler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	records, err := h.db.GetQuestionHistory(limit)
	if err != nil {
		logger.Error("Failed to get question history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get history",
		})
	}

	history := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		entry := fiber.Map{
			"id":               r.ID,
			"question":         r.Question,
			"answer":           r.Answer,
			"decision":         r.Decision,
			"chunks_retrieved": r.ChunksRetrieved,
			"latency_ms":       r.LatencyMS,
			"created_at":       r.CreatedAt.Unix(),
		}
		if r.TicketID != "" {
			entry["ticket_id"] = r.TicketID
		}
		history = append(history, entry)
	}

	return c.JSON(fiber.Map{
		"history": history,
	})
}
