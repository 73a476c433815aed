package llm

// ChatRequest represents a chat completion request (OpenAI-compatible).
type ChatRequest struct {
	Model       string    `json:"model"`       // Model id served by the inference server
	Messages    []Message `json:"messages"`    // Conversation history, system turn first
	MaxTokens   int       `json:"max_tokens"`  // Upper bound on generated tokens
	Temperature float64   `json:"temperature"` // Sampling temperature
	Stream      bool      `json:"stream"`      // Always false, one blocking response per turn
}
