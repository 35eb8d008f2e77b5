package llm

import "github.com/Rrens/rag-assistant/internal/domain"

// DefaultPromptHistory is the number of recent exchanges replayed to the model
const DefaultPromptHistory = 4

// BuildPrompt assembles the turns for one message: the system prompt, the
// most recent historyLimit exchanges as user/assistant pairs, then the
// current question with any retrieved context.
func BuildPrompt(systemPrompt string, history []domain.Exchange, context, message string, historyLimit int) []Turn {
	if historyLimit <= 0 {
		historyLimit = DefaultPromptHistory
	}
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	turns := make([]Turn, 0, 2+2*len(history))
	if systemPrompt != "" {
		turns = append(turns, Turn{Role: RoleSystem, Text: systemPrompt})
	}
	for _, ex := range history {
		turns = append(turns,
			Turn{Role: RoleUser, Text: ex.Human},
			Turn{Role: RoleAssistant, Text: ex.AI},
		)
	}

	return append(turns, Turn{Role: RoleUser, Text: FinalTurn(context, message)})
}

// FinalTurn formats the user's question with the retrieved context
func FinalTurn(context, message string) string {
	if context == "" {
		return "User's question: " + message
	}
	return "Relevant information:\n" + context + "\n\nUser's question: " + message
}
