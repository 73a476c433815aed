// Package llm provides the wire representations of the OpenAI-compatible chat
// completion API spoken by local inference servers (llama.cpp, LM Studio, vLLM)
// and the conversation types handed between localchat components.
package llm

// ErrorResponse is the JSON error body returned by the chat proxy.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
