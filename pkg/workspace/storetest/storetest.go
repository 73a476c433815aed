// Package storetest holds the behaviour every workspace.RecordStore backend
// must share, written as Ginkgo specs so each backend suite can run them.
package storetest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/localchat/pkg/workspace"
)

// DescribeRecordStore registers the behaviour every RecordStore must show.
// newStore is called before each It and must return an empty store.
func DescribeRecordStore(newStore func() workspace.RecordStore) {
	Describe("RecordStore behaviour", func() {
		var (
			ctx   context.Context
			store workspace.RecordStore
			base  time.Time
		)

		insert := func(owner, name string) workspace.Record {
			rec, err := store.Insert(ctx, workspace.Record{
				UserID:    owner,
				Name:      name,
				ModelID:   "gpt-oss-20b",
				ModelName: "GPT-OSS 20B",
				CreatedAt: base,
			})
			Expect(err).NotTo(HaveOccurred())
			return rec
		}

		BeforeEach(func() {
			ctx = context.Background()
			store = newStore()
			base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		})

		AfterEach(func() {
			if store != nil {
				Expect(store.Close()).To(Succeed())
				store = nil
			}
		})

		It("assigns an id and returns the persisted record on insert", func() {
			rec := insert("alice", "Research")
			Expect(rec.ID).NotTo(BeEmpty())
			Expect(rec.UserID).To(Equal("alice"))
			Expect(rec.ModelID).To(Equal("gpt-oss-20b"))
			Expect(rec.CreatedAt.Equal(base)).To(BeTrue())
			Expect(rec.LastUsed).To(BeNil())
		})

		It("lists only the owner's records", func() {
			insert("alice", "a1")
			insert("alice", "a2")
			insert("bob", "b1")

			records, err := store.ListByOwner(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			for _, r := range records {
				Expect(r.UserID).To(Equal("alice"))
			}
		})

		It("returns an empty list for an unknown owner", func() {
			records, err := store.ListByOwner(ctx, "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("orders by last used descending with never-used records last", func() {
			never := insert("alice", "never")
			old := insert("alice", "old")
			recent := insert("alice", "recent")

			Expect(store.UpdateLastUsed(ctx, "alice", old.ID, base.Add(time.Hour))).To(Succeed())
			Expect(store.UpdateLastUsed(ctx, "alice", recent.ID, base.Add(2*time.Hour))).To(Succeed())

			records, err := store.ListByOwner(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
			Expect(records[0].ID).To(Equal(recent.ID))
			Expect(records[1].ID).To(Equal(old.ID))
			Expect(records[2].ID).To(Equal(never.ID))
			Expect(records[2].LastUsed).To(BeNil())
			Expect(records[0].LastUsed.Equal(base.Add(2 * time.Hour))).To(BeTrue())
		})

		It("never moves last used backwards", func() {
			rec := insert("alice", "ws")
			Expect(store.UpdateLastUsed(ctx, "alice", rec.ID, base.Add(2*time.Hour))).To(Succeed())
			Expect(store.UpdateLastUsed(ctx, "alice", rec.ID, base.Add(time.Hour))).To(Succeed())

			records, err := store.ListByOwner(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(records[0].LastUsed.Equal(base.Add(2 * time.Hour))).To(BeTrue())
		})

		It("ignores updates and deletes from another owner", func() {
			rec := insert("alice", "ws")
			Expect(store.UpdateLastUsed(ctx, "bob", rec.ID, base.Add(time.Hour))).To(Succeed())
			Expect(store.Delete(ctx, "bob", rec.ID)).To(Succeed())

			records, err := store.ListByOwner(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].LastUsed).To(BeNil())
		})

		It("deletes records and treats a repeated delete as a no-op", func() {
			rec := insert("alice", "ws")
			Expect(store.Delete(ctx, "alice", rec.ID)).To(Succeed())
			Expect(store.Delete(ctx, "alice", rec.ID)).To(Succeed())

			records, err := store.ListByOwner(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("treats touching an unknown id as a no-op", func() {
			Expect(store.UpdateLastUsed(ctx, "alice", "00000000-0000-4000-8000-000000000000", base)).To(Succeed())
		})
	})
}
