package agent

import (
	"fmt"
	"strings"
)

// noDocsSentinel replaces the retrieved-context block when retrieval came
// back empty. An explicit marker keeps "no context available" distinct
// from "the context is an empty string".
const noDocsSentinel = "[NO MATCHING DOCUMENTATION FOUND]"

const systemPrompt = `You are a precise, trustworthy internal support agent.
You MUST base answers only on the provided documentation.
If the documentation clearly answers the question, respond concisely using that information and cite the relevant snippet.
If the documentation is missing, unclear, or the request is risky or compliance-sensitive (refunds outside policy, legal questions, account deletion), DO NOT guess: CALL the escalate_ticket tool instead.`

func userPrompt(question string, contexts []string) string {
	joined := strings.TrimSpace(strings.Join(contexts, "\n\n"))
	if joined == "" {
		joined = noDocsSentinel
	}

	return fmt.Sprintf("User question:\n%s\n\nRetrieved documentation:\n%s", question, joined)
}
