package completion

import (
	"encoding/json"
	"strings"

	"github.com/papercomputeco/localchat/pkg/llm"
)

// Path names the branch of the extraction ladder that produced a reply.
type Path string

const (
	// PathStructured means a JSON object was found and decoded.
	PathStructured Path = "structured"
	// PathUnstructured means no usable brace pair was found.
	PathUnstructured Path = "unstructured"
	// PathDecodeFailed means a brace pair was found but did not decode.
	PathDecodeFailed Path = "decode_failed"
)

// Extract turns raw completion text into a NormalizedReply. It never fails:
// text that does not carry a decodable JSON object becomes the answer as-is.
func Extract(raw string) llm.NormalizedReply {
	reply, _ := ExtractWithPath(raw)
	return reply
}

// ExtractWithPath is Extract that also reports which branch was taken.
//
// Models tend to prepend reasoning before the payload, so the scan takes the
// last '{' and the last '}'. A nested object emitted after the intended
// payload therefore wins the tie-break; that behaviour is kept on purpose.
func ExtractWithPath(raw string) (llm.NormalizedReply, Path) {
	open := strings.LastIndex(raw, "{")
	closing := strings.LastIndex(raw, "}")
	if open < 0 || closing < 0 || closing <= open {
		return unstructured(raw), PathUnstructured
	}

	slice := raw[open : closing+1]

	var decoded map[string]any
	if err := json.Unmarshal([]byte(slice), &decoded); err != nil {
		return unstructured(raw), PathDecodeFailed
	}

	reply := llm.NormalizedReply{Answer: slice}
	if answer, ok := decoded["answer"].(string); ok {
		reply.Answer = answer
	}
	if explanation, ok := decoded["explanation"].(string); ok {
		reply.Explanation = explanation
	}
	return reply, PathStructured
}

func unstructured(raw string) llm.NormalizedReply {
	return llm.NormalizedReply{Answer: strings.TrimSpace(raw)}
}
