package cypherqa

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

const cypherTemplate = `Task: Generate a Cypher statement to query a Neo4j graph database.
Instructions:
Use only the relationship types and properties listed in the schema.
Do not use any relationship type or property that is not listed.
Schema:
{{.schema}}
Note: Do not include explanations or apologies in your response.
Do not answer any request other than constructing a Cypher statement.
Do not include any text except the generated Cypher statement.

The question is:
{{.question}}`

const qaTemplate = `You are an assistant that turns database results into clear, human readable answers.
The information section holds the results you must use to construct the answer.
The information is authoritative: never doubt it or correct it from your own knowledge.
Phrase the answer as a direct response to the question and do not mention that it is based on the given information.
Here is an example:

Question: Which genes were found in urine specimens?
Context: [{"gene": "blaCTX-M"}, {"gene": "mecA"}]
Helpful Answer: blaCTX-M and mecA were found in urine specimens.

Follow this example when generating answers.
If the information is empty, say that you don't know the answer.
Information:
{{.context}}

Question: {{.question}}
Helpful Answer:`

var (
	cypherPrompt = prompts.NewPromptTemplate(cypherTemplate, []string{"schema", "question"})
	qaPrompt     = prompts.NewPromptTemplate(qaTemplate, []string{"context", "question"})
)

var (
	fence = regexp.MustCompile("(?s)```(.*?)```")
	// langTag is a "cypher" info string at the start of a fenced block.
	langTag = regexp.MustCompile(`(?i)^cypher\s+`)
	// queryOption is what follows the CYPHER keyword when it starts a
	// statement, as in "CYPHER 5" or "CYPHER runtime=slotted".
	queryOption = regexp.MustCompile(`^(\d|\w+\s*=)`)
)

// ExtractCypher returns the statement inside the first fenced block of
// text, or text itself when there is none. A "cypher" language tag at the
// start of the block is dropped unless it begins the statement itself.
func ExtractCypher(text string) string {
	if m := fence.FindStringSubmatch(text); m != nil {
		text = m[1]
		if loc := langTag.FindStringIndex(text); loc != nil && !queryOption.MatchString(text[loc[1]:]) {
			text = text[loc[1]:]
		}
	}
	return strings.TrimSpace(text)
}

// formatContext renders query rows for the answer prompt.
func formatContext(rows []map[string]any) string {
	if len(rows) == 0 {
		return "[]"
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "[]"
	}
	return string(b)
}
