package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptAnswerSystem is the system instruction for grounded answers.
	// It has no placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptAnswer is the user prompt for grounded answers.
	// It expects the context and question placeholders.
	PromptAnswer = "answer"

	// PromptFlashcards asks for a JSON array of question/answer pairs.
	// It expects the count and material placeholders.
	PromptFlashcards = "flashcards"
)

// Prompt placeholders. Each is replaced once, in a single pass, so text
// substituted into a prompt is never expanded again.
const (
	PlaceholderContext  = "{{context}}"
	PlaceholderQuestion = "{{question}}"
	PlaceholderCount    = "{{count}}"
	PlaceholderMaterial = "{{material}}"
)
