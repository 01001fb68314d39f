package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askdesk/backend/internal/agent"
)

var askContext bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the documentation corpus",
	Long: `Builds the index and answers one question, or starts an interactive
session when no question is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askContext, "context", false, "print the retrieved chunks alongside the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	result, err := a.indexer.Rebuild(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Indexed %d documents (%d chunks)\n\n", result.Documents, result.Chunks)

	if len(args) == 1 {
		return askOnce(cmd, a, args[0])
	}

	cmd.Println("Interactive mode. Type a question, or \"exit\" to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		if err := askOnce(cmd, a, question); err != nil {
			cmd.PrintErrf("error: %v\n", err)
		}
	}

	return scanner.Err()
}

func askOnce(cmd *cobra.Command, a *app, question string) error {
	decision, err := a.engine.Answer(context.Background(), question)
	if err != nil {
		return err
	}

	cmd.Println(decision.Answer)
	cmd.Println()

	switch decision.Mode {
	case agent.ModeEscalated:
		cmd.Printf("-- escalated: ticket %s assigned to %s\n",
			decision.Ticket.TicketID, decision.Ticket.AssignedTeam)
	default:
		cmd.Printf("-- answered from documentation (%d chunks)\n", len(decision.Context))
	}

	if askContext && len(decision.Context) > 0 {
		cmd.Println("\nRetrieved context:")
		for i, chunk := range decision.Context {
			cmd.Printf("  [%d] %s\n", i+1, truncate(chunk, 200))
		}
	}

	cmd.Println()
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s...", s[:max])
}
