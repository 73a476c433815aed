package workspace_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/localchat/pkg/identity"
	"github.com/papercomputeco/localchat/pkg/workspace"
	"github.com/papercomputeco/localchat/pkg/workspace/inmemory"
)

// flakyStore wraps a RecordStore and fails the next call when armed.
type flakyStore struct {
	workspace.RecordStore
	fail  error
	calls int
}

func (f *flakyStore) check() error {
	f.calls++
	if f.fail != nil {
		err := f.fail
		f.fail = nil
		return err
	}
	return nil
}

func (f *flakyStore) ListByOwner(ctx context.Context, ownerID string) ([]workspace.Record, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return f.RecordStore.ListByOwner(ctx, ownerID)
}

func (f *flakyStore) Insert(ctx context.Context, rec workspace.Record) (workspace.Record, error) {
	if err := f.check(); err != nil {
		return workspace.Record{}, err
	}
	return f.RecordStore.Insert(ctx, rec)
}

func (f *flakyStore) UpdateLastUsed(ctx context.Context, ownerID, id string, at time.Time) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.RecordStore.UpdateLastUsed(ctx, ownerID, id, at)
}

func (f *flakyStore) Delete(ctx context.Context, ownerID, id string) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.RecordStore.Delete(ctx, ownerID, id)
}

var _ = Describe("Adapter", func() {
	var (
		ctx     context.Context
		store   *flakyStore
		adapter *workspace.Adapter
	)

	BeforeEach(func() {
		ctx = identity.WithUser(context.Background(), identity.User{ID: "alice", Email: "alice@example.com"})
		store = &flakyStore{RecordStore: inmemory.NewStore()}
		adapter = workspace.NewAdapter(store, zap.NewNop(), nil)
	})

	Describe("authentication", func() {
		It("rejects every operation without a user before touching the store", func() {
			anon := context.Background()

			_, err := adapter.List(anon)
			Expect(err).To(MatchError(workspace.ErrUnauthenticated))
			_, err = adapter.Create(anon, "ws", "m", "M")
			Expect(err).To(MatchError(workspace.ErrUnauthenticated))
			Expect(adapter.Touch(anon, "id")).To(MatchError(workspace.ErrUnauthenticated))
			Expect(adapter.Delete(anon, "id")).To(MatchError(workspace.ErrUnauthenticated))

			Expect(store.calls).To(BeZero())
		})
	})

	Describe("Create", func() {
		It("prepends the store-confirmed workspace to the mirror", func() {
			first, err := adapter.Create(ctx, "First", "gpt-oss-20b", "GPT-OSS 20B")
			Expect(err).NotTo(HaveOccurred())
			second, err := adapter.Create(ctx, "  Second  ", "gpt-oss-20b", "GPT-OSS 20B")
			Expect(err).NotTo(HaveOccurred())

			Expect(first.ID).NotTo(BeEmpty())
			Expect(first.OwnerID).To(Equal("alice"))
			Expect(first.LastUsed).To(BeNil())
			Expect(second.Name).To(Equal("Second"))

			mirror := adapter.Mirror()
			Expect(mirror).To(HaveLen(2))
			Expect(mirror[0].ID).To(Equal(second.ID))
			Expect(mirror[1].ID).To(Equal(first.ID))
		})

		It("leaves the mirror unchanged and reports a RemoteError on failure", func() {
			_, err := adapter.Create(ctx, "Kept", "m", "M")
			Expect(err).NotTo(HaveOccurred())

			store.fail = errors.New("permission denied for table workspaces")
			_, err = adapter.Create(ctx, "Lost", "m", "M")

			var remote *workspace.RemoteError
			Expect(errors.As(err, &remote)).To(BeTrue())
			Expect(remote.Op).To(Equal("create"))
			Expect(remote.Message()).To(Equal("permission denied for table workspaces"))
			Expect(adapter.Mirror()).To(HaveLen(1))
			Expect(adapter.Mirror()[0].Name).To(Equal("Kept"))
		})

		It("rejects a blank name without calling the store", func() {
			_, err := adapter.Create(ctx, "   ", "m", "M")
			Expect(err).To(MatchError(workspace.ErrEmptyName))
			Expect(store.calls).To(BeZero())
		})
	})

	Describe("Touch", func() {
		It("sets last used in the mirror after the store confirms", func() {
			ws, err := adapter.Create(ctx, "ws", "m", "M")
			Expect(err).NotTo(HaveOccurred())

			Expect(adapter.Touch(ctx, ws.ID)).To(Succeed())

			got, ok := adapter.Lookup(ws.ID)
			Expect(ok).To(BeTrue())
			Expect(got.LastUsed).NotTo(BeNil())
		})

		It("is monotonically non-decreasing across repeated calls", func() {
			ws, err := adapter.Create(ctx, "ws", "m", "M")
			Expect(err).NotTo(HaveOccurred())

			Expect(adapter.Touch(ctx, ws.ID)).To(Succeed())
			first, _ := adapter.Lookup(ws.ID)
			Expect(adapter.Touch(ctx, ws.ID)).To(Succeed())
			second, _ := adapter.Lookup(ws.ID)

			Expect(second.LastUsed.Before(*first.LastUsed)).To(BeFalse())
		})

		It("leaves the mirror unchanged on failure", func() {
			ws, err := adapter.Create(ctx, "ws", "m", "M")
			Expect(err).NotTo(HaveOccurred())

			store.fail = errors.New("connection reset")
			err = adapter.Touch(ctx, ws.ID)

			var remote *workspace.RemoteError
			Expect(errors.As(err, &remote)).To(BeTrue())
			got, _ := adapter.Lookup(ws.ID)
			Expect(got.LastUsed).To(BeNil())
		})
	})

	Describe("Delete", func() {
		It("removes the workspace from the mirror after the store confirms", func() {
			keep, err := adapter.Create(ctx, "keep", "m", "M")
			Expect(err).NotTo(HaveOccurred())
			drop, err := adapter.Create(ctx, "drop", "m", "M")
			Expect(err).NotTo(HaveOccurred())

			Expect(adapter.Delete(ctx, drop.ID)).To(Succeed())

			mirror := adapter.Mirror()
			Expect(mirror).To(HaveLen(1))
			Expect(mirror[0].ID).To(Equal(keep.ID))
		})

		It("treats deleting an already-deleted id as a no-op", func() {
			keep, err := adapter.Create(ctx, "keep", "m", "M")
			Expect(err).NotTo(HaveOccurred())
			drop, err := adapter.Create(ctx, "drop", "m", "M")
			Expect(err).NotTo(HaveOccurred())

			Expect(adapter.Delete(ctx, drop.ID)).To(Succeed())
			Expect(adapter.Delete(ctx, drop.ID)).To(Succeed())

			Expect(adapter.Mirror()).To(HaveLen(1))
			Expect(adapter.Mirror()[0].ID).To(Equal(keep.ID))
		})

		It("keeps the workspace in the mirror on failure", func() {
			ws, err := adapter.Create(ctx, "ws", "m", "M")
			Expect(err).NotTo(HaveOccurred())

			store.fail = errors.New("timeout")
			Expect(adapter.Delete(ctx, ws.ID)).To(HaveOccurred())
			Expect(adapter.Mirror()).To(HaveLen(1))
		})
	})

	Describe("List", func() {
		It("returns used workspaces newest first and never-used ones last", func() {
			never, err := adapter.Create(ctx, "never", "m", "M")
			Expect(err).NotTo(HaveOccurred())
			older, err := adapter.Create(ctx, "older", "m", "M")
			Expect(err).NotTo(HaveOccurred())
			newer, err := adapter.Create(ctx, "newer", "m", "M")
			Expect(err).NotTo(HaveOccurred())

			Expect(store.UpdateLastUsed(ctx, "alice", older.ID, time.Now().Add(-time.Hour))).To(Succeed())
			Expect(store.UpdateLastUsed(ctx, "alice", newer.ID, time.Now())).To(Succeed())

			listed, err := adapter.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(listed).To(HaveLen(3))
			Expect(listed[0].ID).To(Equal(newer.ID))
			Expect(listed[1].ID).To(Equal(older.ID))
			Expect(listed[2].ID).To(Equal(never.ID))
			Expect(adapter.Mirror()).To(Equal(listed))
		})

		It("only returns the caller's workspaces", func() {
			_, err := adapter.Create(ctx, "mine", "m", "M")
			Expect(err).NotTo(HaveOccurred())

			bob := identity.WithUser(context.Background(), identity.User{ID: "bob"})
			listed, err := workspace.NewAdapter(store, zap.NewNop(), nil).List(bob)
			Expect(err).NotTo(HaveOccurred())
			Expect(listed).To(BeEmpty())
		})

		It("keeps the previous mirror on failure", func() {
			_, err := adapter.Create(ctx, "ws", "m", "M")
			Expect(err).NotTo(HaveOccurred())

			store.fail = errors.New("boom")
			_, err = adapter.List(ctx)
			Expect(err).To(HaveOccurred())
			Expect(adapter.Mirror()).To(HaveLen(1))
		})
	})
})
