package handlers

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/askdesk/backend/internal/agent"
	"github.com/askdesk/backend/pkg/logger"
)

type WebSocketHandler struct {
	engine *agent.Engine
}

func NewWebSocketHandler(engine *agent.Engine) *WebSocketHandler {
	return &WebSocketHandler{
		engine: engine,
	}
}

// HandleConnection serves one interactive ask session. Each incoming
// question frame produces a status frame, the answer streamed word by
// word, and a final complete frame carrying the decision.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Error("Failed to read WebSocket message", zap.Error(err))
			}
			break
		}

		if msg.Type != "question" || msg.Content == "" {
			continue
		}

		logger.Info("Processing WebSocket question", zap.String("question", msg.Content))

		err = h.streamDecision(c, msg.Content)
		if err != nil {
			logger.Error("Failed to stream decision", zap.Error(err))
			h.sendError(c, "Failed to answer question")
		}
	}
}

func (h *WebSocketHandler) streamDecision(c *websocket.Conn, question string) error {
	ctx := context.Background()
	start := time.Now()

	h.sendFrame(c, "status", "Searching documentation...")

	decision, err := h.engine.Answer(ctx, question)
	if err != nil {
		return err
	}

	words := splitIntoWords(decision.Answer)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}

		if err := h.sendFrame(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":       "complete",
		"decision":   string(decision.Mode),
		"ticket":     decision.Ticket,
		"context":    decision.Context,
		"latency_ms": int(time.Since(start).Milliseconds()),
	})
}

func (h *WebSocketHandler) sendFrame(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
