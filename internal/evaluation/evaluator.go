package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/askdesk/backend/internal/agent"
	"github.com/askdesk/backend/internal/storage/models"
	"github.com/askdesk/backend/internal/storage/sqlite"
	"github.com/askdesk/backend/pkg/logger"
)

// Answerer is the pipeline under evaluation.
type Answerer interface {
	Answer(ctx context.Context, question string) (*agent.Decision, error)
}

// Case is one golden question with the decision the pipeline is expected
// to reach.
type Case struct {
	Question         string `json:"question"`
	ExpectedDecision string `json:"expected_decision"`
}

type Dataset struct {
	Cases []Case `json:"cases"`
}

type CaseResult struct {
	Case
	ActualDecision string
	Passed         bool
	Answer         string
	TicketID       string
	LatencyMS      int
	Err            error
}

type Report struct {
	Total    int
	Passed   int
	Failed   int
	Accuracy float64
	Results  []CaseResult
}

// Evaluator runs golden cases end to end through the pipeline and checks
// the decision tag, not the answer wording: whether the agent answered or
// escalated is the behavior worth pinning down.
type Evaluator struct {
	engine Answerer
	db     *sqlite.Client
}

// NewEvaluator creates an evaluator. db may be nil; results are then not
// persisted.
func NewEvaluator(engine Answerer, db *sqlite.Client) *Evaluator {
	return &Evaluator{
		engine: engine,
		db:     db,
	}
}

func (e *Evaluator) Run(ctx context.Context, dataset *Dataset) (*Report, error) {
	if len(dataset.Cases) == 0 {
		return nil, fmt.Errorf("dataset has no cases")
	}

	logger.Info("Running evaluation", zap.Int("cases", len(dataset.Cases)))

	report := &Report{Total: len(dataset.Cases)}

	for _, c := range dataset.Cases {
		result := e.runCase(ctx, c)

		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, result)

		if e.db != nil {
			err := e.db.InsertEvaluationResult(&models.EvaluationResult{
				Question:         result.Question,
				ExpectedDecision: result.ExpectedDecision,
				ActualDecision:   result.ActualDecision,
				Passed:           result.Passed,
				Answer:           result.Answer,
				TicketID:         result.TicketID,
				LatencyMS:        result.LatencyMS,
				CreatedAt:        time.Now(),
			})
			if err != nil {
				logger.Warn("Failed to persist evaluation result", zap.Error(err))
			}
		}
	}

	report.Accuracy = float64(report.Passed) / float64(report.Total)

	logger.Info("Evaluation completed",
		zap.Int("total", report.Total),
		zap.Int("passed", report.Passed),
		zap.Int("failed", report.Failed),
		zap.Float64("accuracy", report.Accuracy),
	)

	return report, nil
}

func (e *Evaluator) runCase(ctx context.Context, c Case) CaseResult {
	result := CaseResult{Case: c}

	start := time.Now()
	decision, err := e.engine.Answer(ctx, c.Question)
	result.LatencyMS = int(time.Since(start).Milliseconds())

	if err != nil {
		logger.Error("Evaluation case failed", zap.String("question", c.Question), zap.Error(err))
		result.ActualDecision = "error"
		result.Err = err
		return result
	}

	result.ActualDecision = string(decision.Mode)
	result.Passed = result.ActualDecision == c.ExpectedDecision
	result.Answer = decision.Answer
	if decision.Ticket != nil {
		result.TicketID = decision.Ticket.TicketID
	}

	return result
}

// LoadDataset reads a JSON dataset file of the form
// {"cases": [{"question": ..., "expected_decision": ...}]}.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var dataset Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}

	return &dataset, nil
}

// DefaultDataset covers the sample corpus: two questions the documentation
// answers directly and two it cannot.
func DefaultDataset() *Dataset {
	return &Dataset{
		Cases: []Case{
			{Question: "What is your refund policy?", ExpectedDecision: string(agent.ModeAnsweredFromDocs)},
			{Question: "How long does express shipping take?", ExpectedDecision: string(agent.ModeAnsweredFromDocs)},
			{Question: "What can I bring in my carry-on?", ExpectedDecision: string(agent.ModeEscalated)},
			{Question: "Can I get a refund after six months?", ExpectedDecision: string(agent.ModeEscalated)},
		},
	}
}

// FormatReport renders a human-readable summary for the CLI.
func FormatReport(report *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Evaluation Report\n")
	fmt.Fprintf(&b, "=================\n\n")
	fmt.Fprintf(&b, "Cases: %d  Passed: %d  Failed: %d  Accuracy: %.0f%%\n\n",
		report.Total, report.Passed, report.Failed, report.Accuracy*100)

	for _, r := range report.Results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s\n", status, r.Question)
		fmt.Fprintf(&b, "       expected %s, got %s (%d ms)\n", r.ExpectedDecision, r.ActualDecision, r.LatencyMS)
		if r.TicketID != "" {
			fmt.Fprintf(&b, "       ticket %s\n", r.TicketID)
		}
		if r.Err != nil {
			fmt.Fprintf(&b, "       error: %v\n", r.Err)
		}
	}

	return b.String()
}
