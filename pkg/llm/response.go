package llm

// ChatResponse represents a chat completion response (OpenAI-compatible).
// Only the fields localchat reads are decoded.
type ChatResponse struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
}

// Choice is a single completion alternative. Content is a pointer so that a
// missing or null content field can be told apart from an empty string.
type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

// ChoiceMessage is the assistant message carried by a Choice.
type ChoiceMessage struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content"`
}

// FirstContent returns the content of the first choice, if any.
func (r *ChatResponse) FirstContent() (string, bool) {
	if r == nil || len(r.Choices) == 0 || r.Choices[0].Message.Content == nil {
		return "", false
	}
	return *r.Choices[0].Message.Content, true
}
