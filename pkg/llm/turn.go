package llm

// Turn is one entry of a conversation transcript. Explanation is only set on
// assistant turns, and only when the model's rationale could be recovered.
type Turn struct {
	Role        string `json:"role"`
	Content     string `json:"content"`
	Explanation string `json:"explanation,omitempty"`
}

// NormalizedReply is the structured result extracted from a completion.
// Explanation is always present, empty when nothing was recovered.
type NormalizedReply struct {
	Answer      string `json:"answer"`
	Explanation string `json:"explanation"`
}

// ToMessages strips transcript-only fields so turns can be forwarded upstream.
func ToMessages(turns []Turn) []Message {
	msgs := make([]Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, Message{Role: t.Role, Content: t.Content})
	}
	return msgs
}
