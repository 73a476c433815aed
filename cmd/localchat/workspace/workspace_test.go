package workspacecmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/localchat/pkg/config"
	"github.com/papercomputeco/localchat/pkg/identity"
	"github.com/papercomputeco/localchat/pkg/workspace"
	"github.com/papercomputeco/localchat/pkg/workspace/inmemory"
)

var _ = Describe("Workspace Command", func() {
	var (
		e   *env
		out *bytes.Buffer
	)

	BeforeEach(func() {
		e = &env{
			ctx:     identity.WithUser(context.Background(), identity.User{ID: "alice"}),
			cfg:     config.Default(),
			adapter: workspace.NewAdapter(inmemory.NewStore(), zap.NewNop(), nil),
			close:   func() {},
		}
		out = &bytes.Buffer{}
	})

	Describe("create", func() {
		It("uses the configured model when none is given", func() {
			cmder := &workspaceCommander{output: OutputJSON}
			Expect(cmder.create(e, out, "notes")).To(Succeed())

			var created []workspace.Workspace
			Expect(json.Unmarshal(out.Bytes(), &created)).To(Succeed())
			Expect(created).To(HaveLen(1))
			Expect(created[0].ModelID).To(Equal("gpt-oss-20b"))
			Expect(created[0].ModelName).To(Equal("GPT-OSS 20B"))
		})

		It("rejects a model outside the catalogue", func() {
			cmder := &workspaceCommander{output: OutputTable, model: "llama-70b"}
			Expect(cmder.create(e, out, "notes")).To(MatchError(ContainSubstring("unknown model")))
			Expect(e.adapter.Mirror()).To(BeEmpty())
		})
	})

	Describe("print", func() {
		BeforeEach(func() {
			_, err := e.adapter.Create(e.ctx, "notes", "gpt-oss-20b", "GPT-OSS 20B")
			Expect(err).NotTo(HaveOccurred())
		})

		It("renders a table with never-used workspaces marked", func() {
			cmder := &workspaceCommander{output: OutputTable}
			Expect(cmder.print(out, e.adapter.Mirror())).To(Succeed())

			Expect(out.String()).To(ContainSubstring("LAST USED"))
			Expect(out.String()).To(ContainSubstring("notes"))
			Expect(out.String()).To(ContainSubstring("never"))
		})

		It("renders yaml with camelCase keys", func() {
			cmder := &workspaceCommander{output: OutputYAML}
			Expect(cmder.print(out, e.adapter.Mirror())).To(Succeed())

			var decoded []map[string]any
			Expect(yaml.Unmarshal(out.Bytes(), &decoded)).To(Succeed())
			Expect(decoded).To(HaveLen(1))
			Expect(decoded[0]).To(HaveKeyWithValue("modelId", "gpt-oss-20b"))
			Expect(decoded[0]).NotTo(HaveKey("lastUsed"))
		})

		It("says so when there is nothing to list", func() {
			cmder := &workspaceCommander{output: OutputTable}
			Expect(cmder.print(out, nil)).To(Succeed())
			Expect(out.String()).To(Equal("No workspaces.\n"))
		})
	})

	Describe("describe", func() {
		It("surfaces the store's message", func() {
			err := describe(&workspace.RemoteError{Op: "list", Err: errors.New("disk I/O error")})
			Expect(err).To(MatchError("workspace store: disk I/O error"))
		})

		It("asks the user to sign in", func() {
			Expect(describe(workspace.ErrUnauthenticated)).To(MatchError("sign in to manage workspaces"))
		})
	})
})
