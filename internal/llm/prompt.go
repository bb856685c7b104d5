package llm

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shahar-caura/gitnl/internal/intent"
)

const systemPrompt = `You are an intent classification engine.

Your job is to map the user's input to exactly ONE intent from the allowed list,
or return "unknown" if unclear.

You must NOT:
- explain your reasoning
- suggest commands
- invent intents
- return multiple intents

Return JSON only.`

const batchSystemPrompt = `You are an intent classification engine.

Your job is to map each clause to exactly ONE intent from the allowed list,
or return "unknown" if unclear.

You must NOT:
- explain your reasoning
- suggest commands
- invent intents
- return multiple intents per clause

Return JSON only.`

const userReturnFormat = `Return format:
{
  "intent": "<intent | unknown>",
  "confidence": <number between 0 and 1>
}`

const batchReturnFormat = `Return format:
{
  "intents": [
    {
      "clause_index": <integer index of clause>,
      "intent": "<intent | unknown>",
      "confidence": <number between 0 and 1>
    }
  ]
}`

// BuildPrompt returns the system and user prompts for one input.
func BuildPrompt(text string, allowed []intent.Intent) (system, user string) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User input:\n%s\n\n", strings.TrimSpace(text))
	fmt.Fprintf(&sb, "Allowed intents:\n%s\n\n", allowedList(allowed))
	sb.WriteString(userReturnFormat)
	return systemPrompt, sb.String()
}

// BuildBatchPrompt returns the system and user prompts for a clause list.
// Each clause is listed as "<index>: <clause>".
func BuildBatchPrompt(clauses []string, allowed []intent.Intent) (system, user string) {
	var sb strings.Builder
	sb.WriteString("Clauses:\n")
	for i, c := range clauses {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d: %s", i, c)
	}
	fmt.Fprintf(&sb, "\n\nAllowed intents:\n%s\n\n", allowedList(allowed))
	sb.WriteString(batchReturnFormat)
	return batchSystemPrompt, sb.String()
}

// allowedList renders the sorted, de-duplicated intent names.
func allowedList(allowed []intent.Intent) string {
	names := make([]string, 0, len(allowed))
	for _, a := range allowed {
		names = append(names, string(a))
	}
	slices.Sort(names)
	return strings.Join(slices.Compact(names), ", ")
}
