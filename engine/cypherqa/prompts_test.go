package cypherqa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCypher(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "MATCH (n) RETURN n", "MATCH (n) RETURN n"},
		{"padded", "  MATCH (n) RETURN n\n", "MATCH (n) RETURN n"},
		{"fenced", "```\nMATCH (n) RETURN n\n```", "MATCH (n) RETURN n"},
		{"tagged", "Here you go:\n```cypher\nMATCH (g:Gene)\nRETURN g.name\n```\nDone.", "MATCH (g:Gene)\nRETURN g.name"},
		{"upper tag", "```Cypher\nMATCH (n) RETURN n```", "MATCH (n) RETURN n"},
		{"first block wins", "```a```\n```b```", "a"},
		{"runtime prefix kept", "```\nCYPHER runtime=slotted MATCH (n) RETURN n\n```", "CYPHER runtime=slotted MATCH (n) RETURN n"},
		{"empty fence", "```cypher\n```", ""},
		{"tag on one line", "```cypher MATCH (n) RETURN n```", "MATCH (n) RETURN n"},
		{"tag with tab", "```CYPHER\tMATCH (n) RETURN n```", "MATCH (n) RETURN n"},
		{"fenced version prefix kept", "```CYPHER 5 MATCH (n) RETURN n```", "CYPHER 5 MATCH (n) RETURN n"},
		{"fenced option kept", "```cypher planner=cost MATCH (n) RETURN n```", "cypher planner=cost MATCH (n) RETURN n"},
		{"tag then prefixed statement", "```cypher\nCYPHER runtime=slotted MATCH (n) RETURN n\n```", "CYPHER runtime=slotted MATCH (n) RETURN n"},
		{"unfenced word kept", "cypher MATCH (n) RETURN n", "cypher MATCH (n) RETURN n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCypher(tt.in))
		})
	}
}

func TestPromptsRender(t *testing.T) {
	out, err := cypherPrompt.Format(map[string]any{"schema": "Node properties:\nGene {name: STRING}", "question": "Which genes?"})
	require.NoError(t, err)
	assert.Contains(t, out, "Gene {name: STRING}")
	assert.Contains(t, out, "Which genes?")

	out, err = qaPrompt.Format(map[string]any{"context": `[{"g.name":"mecA"}]`, "question": "Which genes?"})
	require.NoError(t, err)
	assert.Contains(t, out, `[{"g.name":"mecA"}]`)
}

func TestFormatContext(t *testing.T) {
	assert.Equal(t, "[]", formatContext(nil))
	assert.Equal(t, `[{"patients":2}]`, formatContext([]map[string]any{{"patients": 2}}))
}
