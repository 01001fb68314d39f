package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/askdesk/backend/internal/storage/models"
	"github.com/askdesk/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT,
		decision TEXT NOT NULL,
		ticket_id TEXT,
		chunks_retrieved INTEGER,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_questions_created ON questions(created_at);
	CREATE INDEX IF NOT EXISTS idx_questions_decision ON questions(decision);

	CREATE TABLE IF NOT EXISTS evaluation_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		expected_decision TEXT NOT NULL,
		actual_decision TEXT NOT NULL,
		passed INTEGER NOT NULL,
		answer TEXT,
		ticket_id TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_eval_created ON evaluation_results(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertQuestionRecord(record *models.QuestionRecord) error {
	query := `
		INSERT INTO questions (id, question, answer, decision, ticket_id, chunks_retrieved, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.Question,
		record.Answer,
		record.Decision,
		record.TicketID,
		record.ChunksRetrieved,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert question record: %w", err)
	}

	logger.Debug("Question recorded",
		zap.String("id", record.ID),
		zap.String("decision", record.Decision),
	)

	return nil
}

func (c *Client) GetQuestionHistory(limit int) ([]models.QuestionRecord, error) {
	query := `
		SELECT id, question, answer, decision, ticket_id, chunks_retrieved, latency_ms, created_at
		FROM questions
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get question history: %w", err)
	}
	defer rows.Close()

	var records []models.QuestionRecord
	for rows.Next() {
		var r models.QuestionRecord
		var createdAt int64

		err := rows.Scan(&r.ID, &r.Question, &r.Answer, &r.Decision, &r.TicketID, &r.ChunksRetrieved, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return records, nil
}

func (c *Client) InsertEvaluationResult(result *models.EvaluationResult) error {
	query := `
		INSERT INTO evaluation_results (question, expected_decision, actual_decision, passed, answer, ticket_id, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	passed := 0
	if result.Passed {
		passed = 1
	}

	_, err := c.db.Exec(
		query,
		result.Question,
		result.ExpectedDecision,
		result.ActualDecision,
		passed,
		result.Answer,
		result.TicketID,
		result.LatencyMS,
		result.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert evaluation result: %w", err)
	}

	return nil
}
