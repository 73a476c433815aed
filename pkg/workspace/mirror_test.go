package workspace_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/localchat/pkg/workspace"
)

var _ = Describe("Mirror", func() {
	var (
		mirror workspace.Mirror
		now    time.Time
	)

	BeforeEach(func() {
		mirror = workspace.Mirror{}
		now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		mirror.Apply(workspace.Mutation{Kind: workspace.Replaced, Workspaces: []workspace.Workspace{
			{ID: "a", Name: "A"},
			{ID: "b", Name: "B"},
		}})
	})

	It("does not move last used backwards", func() {
		mirror.Apply(workspace.Mutation{Kind: workspace.Touched, ID: "a", At: now})
		mirror.Apply(workspace.Mutation{Kind: workspace.Touched, ID: "a", At: now.Add(-time.Minute)})

		got, ok := mirror.Get("a")
		Expect(ok).To(BeTrue())
		Expect(got.LastUsed.Equal(now)).To(BeTrue())
	})

	It("ignores touches and deletes of unknown ids", func() {
		mirror.Apply(workspace.Mutation{Kind: workspace.Touched, ID: "zzz", At: now})
		mirror.Apply(workspace.Mutation{Kind: workspace.Deleted, ID: "zzz"})
		Expect(mirror.Len()).To(Equal(2))
	})

	It("hands out copies that cannot alter the mirror", func() {
		mirror.Apply(workspace.Mutation{Kind: workspace.Touched, ID: "a", At: now})

		items := mirror.Items()
		items[0].Name = "changed"
		*items[0].LastUsed = now.Add(time.Hour)

		got, _ := mirror.Get("a")
		Expect(got.Name).To(Equal("A"))
		Expect(got.LastUsed.Equal(now)).To(BeTrue())
	})
})

var _ = Describe("Record mapping", func() {
	It("maps snake_case records to workspaces and back", func() {
		used := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		rec := workspace.Record{
			ID:        "id-1",
			UserID:    "alice",
			Name:      "ws",
			ModelID:   "gpt-oss-20b",
			ModelName: "GPT-OSS 20B",
			CreatedAt: used.Add(-time.Hour),
			LastUsed:  &used,
		}

		ws := workspace.FromRecord(rec)
		Expect(ws.OwnerID).To(Equal("alice"))
		Expect(ws.ModelID).To(Equal("gpt-oss-20b"))
		Expect(ws.LastUsed).NotTo(BeIdenticalTo(rec.LastUsed))
		Expect(workspace.ToRecord(ws)).To(Equal(rec))
	})

	It("sorts nulls last and keeps ties stable", func() {
		t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		t2 := t1.Add(time.Hour)
		records := []workspace.Record{
			{ID: "nil-1"},
			{ID: "t1", LastUsed: &t1},
			{ID: "nil-2"},
			{ID: "t2", LastUsed: &t2},
		}

		workspace.SortRecords(records)

		ids := make([]string, len(records))
		for i, r := range records {
			ids[i] = r.ID
		}
		Expect(ids).To(Equal([]string{"t2", "t1", "nil-1", "nil-2"}))
	})
})
