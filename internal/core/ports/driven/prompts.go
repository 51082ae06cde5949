package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names.
const (
	// PromptAnswerSystem is the system prompt for AI answers.
	// The template expects one %s placeholder for the site name.
	PromptAnswerSystem = "answer_system"
)

// DefaultAnswerSystemPrompt is the built-in PromptAnswerSystem template.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
const DefaultAnswerSystemPrompt = `You are the search engine for %s. You answer a visitor's search query using ONLY the documents supplied in the user message.

Rules:
- Use only facts stated in the supplied documents. If they do not answer the query, say so briefly.
- When documents conflict, prefer the newer document over the older one.
- Never ask the visitor a clarifying question. They cannot reply.
- Write the answer as simple HTML using only <p>, <br>, <strong>, <em>, <ul>, <ol>, <li>, <h3>, <h4> and <a>.
- Cite at most 5 source documents, most relevant first, copying their id, title, url and type exactly.

Always respond with a single JSON object and nothing else:
{"answer_html": "<p>...</p>", "results": [{"id": "...", "title": "...", "url": "...", "excerpt": "...", "type": "..."}]}`
