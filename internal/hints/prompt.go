package hints

import (
	"fmt"
	"strings"

	"github.com/abhisek/scaffold/internal/curriculum"
)

const hintSystemPrompt = `You coach autonomous agents through a training curriculum. An agent has failed to complete a step and needs a short hint that moves it toward the completion criteria without solving the task for it.`

func buildHintUserMessage(step curriculum.Step, hintID string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Step: %s (order %d)\n", step.Name, step.Order)
	if step.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", step.Description)
	}
	fmt.Fprintf(&b, "Prompt reference: %s\n", step.PromptReference)
	if hintID != "" {
		fmt.Fprintf(&b, "Requested hint: %s\n", hintID)
	}

	b.WriteString("\nCompletion criteria:\n")
	if len(step.Criteria) == 0 {
		b.WriteString("None\n")
	}
	for _, c := range step.Criteria {
		fmt.Fprintf(&b, "- %s\n", c)
	}

	if len(step.Hints) > 0 {
		b.WriteString("\nExisting hints for this step:\n")
		for _, id := range sortedKeys(step.Hints) {
			fmt.Fprintf(&b, "- %s: %s\n", id, step.Hints[id])
		}
	}

	b.WriteString(`
Instructions:
Write one hint of at most three sentences. Name the criterion it helps with in focus_metric, or leave it empty. Do not restate the criteria verbatim.`)

	return b.String()
}
