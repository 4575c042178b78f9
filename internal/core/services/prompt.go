package services

import "strings"

// ContextSeparator joins retrieved chunk texts inside the prompt.
const ContextSeparator = "\n\n---\n\n"

// PromptTemplate is filled with the joined context and the question.
const PromptTemplate = `
Answer the question based only on the following context:
Make your answer be a paragraph or a sentence.
{context}

---

Answer the question based on the above context: {question}
`

// BuildPrompt inserts the chunk texts, in the given order, and the question
// into PromptTemplate.
func BuildPrompt(contexts []string, question string) string {
	r := strings.NewReplacer(
		"{context}", strings.Join(contexts, ContextSeparator),
		"{question}", question,
	)
	return r.Replace(PromptTemplate)
}
