package gateway

import (
	"context"
	"strings"
)

// Document is a retrieved reference snippet attached to a prompt.
type Document struct {
	ID     string
	Text   string
	Source string
}

const noContextLine = "No relevant context was found for this query."

// fetchContext is the retrieval hook for the instruction-style providers.
// Retrieval is disabled: it always returns no documents, and the prompt
// falls back to the no-context line.
func fetchContext(_ context.Context, _ string) []Document {
	return nil
}

// formatPrompt assembles the instruction template for the hosted and
// completion providers: a context block followed by the user's question.
// The proxy provider does its own prompting from message and history.
func formatPrompt(query string, docs []Document) string {
	var b strings.Builder
	if len(docs) == 0 {
		b.WriteString(noContextLine)
	} else {
		b.WriteString("Relevant context:")
		for _, doc := range docs {
			b.WriteString("\n- ")
			b.WriteString(doc.Text)
		}
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
