package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askdesk/backend/internal/agent"
	"github.com/askdesk/backend/internal/domain"
	"github.com/askdesk/backend/internal/metrics"
	"github.com/askdesk/backend/internal/storage/models"
	"github.com/askdesk/backend/internal/storage/sqlite"
	"github.com/askdesk/backend/pkg/logger"
)

type AskHandler struct {
	engine *agent.Engine
	db     *sqlite.Client
}

func NewAskHandler(engine *agent.Engine, db *sqlite.Client) *AskHandler {
	return &AskHandler{
		engine: engine,
		db:     db,
	}
}

type askResponse struct {
	ID        string       `json:"id"`
	Question  string       `json:"question"`
	Answer    string       `json:"answer"`
	Decision  decisionBody `json:"decision"`
	Context   []string     `json:"context"`
	LatencyMS int          `json:"latency_ms"`
}

type decisionBody struct {
	Mode   string        `json:"mode"`
	Ticket *agent.Ticket `json:"ticket,omitempty"`
}

func (h *AskHandler) HandleAsk(c *fiber.Ctx) error {
	var req struct {
		Question string `json:"question"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
	}

	start := time.Now()

	decision, err := h.engine.Answer(c.Context(), req.Question)
	if err != nil {
		return h.handleError(c, req.Question, err)
	}

	latency := int(time.Since(start).Milliseconds())
	id := uuid.New().String()

	metrics.QuestionsTotal.WithLabelValues(string(decision.Mode)).Inc()
	metrics.QuestionDuration.WithLabelValues(string(decision.Mode)).Observe(time.Since(start).Seconds())
	metrics.RetrievedChunks.Observe(float64(len(decision.Context)))
	if decision.Mode == agent.ModeEscalated {
		metrics.EscalationsTotal.Inc()
	}

	h.record(id, req.Question, decision, latency)

	return c.JSON(askResponse{
		ID:       id,
		Question: req.Question,
		Answer:   decision.Answer,
		Decision: decisionBody{
			Mode:   string(decision.Mode),
			Ticket: decision.Ticket,
		},
		Context:   decision.Context,
		LatencyMS: latency,
	})
}

func (h *AskHandler) record(id, question string, decision *agent.Decision, latency int) {
	if h.db == nil {
		return
	}

	record := &models.QuestionRecord{
		ID:              id,
		Question:        question,
		Answer:          decision.Answer,
		Decision:        string(decision.Mode),
		ChunksRetrieved: len(decision.Context),
		LatencyMS:       latency,
		CreatedAt:       time.Now(),
	}
	if decision.Ticket != nil {
		record.TicketID = decision.Ticket.TicketID
	}

	if err := h.db.InsertQuestionRecord(record); err != nil {
		logger.Warn("Failed to record question", zap.Error(err))
	}
}

func (h *AskHandler) handleError(c *fiber.Ctx, question string, err error) error {
	logger.Error("Failed to answer question",
		zap.String("question", question),
		zap.Error(err),
	)

	switch {
	case domain.IsUpstreamService(err):
		metrics.QuestionErrors.WithLabelValues("upstream").Inc()
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Upstream service failure, please try again",
		})
	case domain.IsConfiguration(err), domain.IsIndexNotReady(err):
		metrics.QuestionErrors.WithLabelValues("configuration").Inc()
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Service is not ready to answer questions",
		})
	default:
		metrics.QuestionErrors.WithLabelValues("internal").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to answer question",
		})
	}
}
