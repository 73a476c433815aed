package completion_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/localchat/pkg/completion"
	"github.com/papercomputeco/localchat/pkg/llm"
)

var _ = Describe("Extract", func() {
	DescribeTable("normalizes raw completion text",
		func(raw string, expected llm.NormalizedReply, expectedPath completion.Path) {
			reply, path := completion.ExtractWithPath(raw)
			Expect(reply).To(Equal(expected))
			Expect(path).To(Equal(expectedPath))
		},
		Entry("a bare JSON object",
			`{"answer":"A","explanation":"E"}`,
			llm.NormalizedReply{Answer: "A", Explanation: "E"}, completion.PathStructured),
		Entry("a JSON object after reasoning prose",
			"Let me think about this.\n{\"answer\":\"A\",\"explanation\":\"E\"}",
			llm.NormalizedReply{Answer: "A", Explanation: "E"}, completion.PathStructured),
		Entry("a JSON object wrapped in a code fence",
			"```json\n{\"answer\":\"4\",\"explanation\":\"- 2+2\"}\n```",
			llm.NormalizedReply{Answer: "4", Explanation: "- 2+2"}, completion.PathStructured),
		Entry("text without braces",
			"  just some words \n",
			llm.NormalizedReply{Answer: "just some words"}, completion.PathUnstructured),
		Entry("a closing brace before the opening one",
			" }{ ",
			llm.NormalizedReply{Answer: "}{"}, completion.PathUnstructured),
		Entry("only an opening brace",
			"value {",
			llm.NormalizedReply{Answer: "value {"}, completion.PathUnstructured),
		Entry("only a closing brace",
			"value }",
			llm.NormalizedReply{Answer: "value }"}, completion.PathUnstructured),
		Entry("empty text",
			"",
			llm.NormalizedReply{}, completion.PathUnstructured),
		Entry("malformed JSON between the braces",
			"blah {answer: unquoted} blah",
			llm.NormalizedReply{Answer: "blah {answer: unquoted} blah"}, completion.PathDecodeFailed),
		Entry("a missing explanation field",
			`{"answer":"only answer"}`,
			llm.NormalizedReply{Answer: "only answer"}, completion.PathStructured),
		Entry("a non-string explanation field",
			`{"answer":"A","explanation":["one","two"]}`,
			llm.NormalizedReply{Answer: "A"}, completion.PathStructured),
		Entry("a missing answer field",
			`prefix {"explanation":"E"} suffix`,
			llm.NormalizedReply{Answer: `{"explanation":"E"}`, Explanation: "E"}, completion.PathStructured),
		Entry("a non-string answer field",
			`{"answer":42}`,
			llm.NormalizedReply{Answer: `{"answer":42}`}, completion.PathStructured),
		Entry("the placeholder used for empty completions",
			completion.NoContentPlaceholder,
			llm.NormalizedReply{Answer: completion.NoContentPlaceholder}, completion.PathUnstructured),
	)

	It("takes the last brace pair even when a nested object trails the payload", func() {
		raw := `{"answer":"A","explanation":"E"} and also {"x":1}`
		reply, path := completion.ExtractWithPath(raw)
		Expect(path).To(Equal(completion.PathStructured))
		Expect(reply.Answer).To(Equal(`{"x":1}`))
		Expect(reply.Explanation).To(BeEmpty())
	})

	It("falls back when the payload itself contains a nested object", func() {
		raw := `{"answer":"A","meta":{"k":"v"}}`
		reply, path := completion.ExtractWithPath(raw)
		Expect(path).To(Equal(completion.PathDecodeFailed))
		Expect(reply.Answer).To(Equal(raw))
	})

	It("is deterministic for identical input", func() {
		raw := "thinking... {\"answer\":\"yes\",\"explanation\":\"- because\"}"
		first := completion.Extract(raw)
		for i := 0; i < 10; i++ {
			Expect(completion.Extract(raw)).To(Equal(first))
		}
	})
})
