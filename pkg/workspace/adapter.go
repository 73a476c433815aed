package workspace

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/localchat/pkg/identity"
	"github.com/papercomputeco/localchat/pkg/metrics"
)

// Adapter drives a RecordStore on behalf of the user carried in each call's
// context and keeps a Mirror of the confirmed state. Each operation is a
// single attempt; retry policy belongs to the caller. Create is not
// idempotent and must not be retried without user intent.
type Adapter struct {
	store   RecordStore
	mirror  Mirror
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewAdapter creates a new Adapter. m may be nil.
func NewAdapter(store RecordStore, logger *zap.Logger, m *metrics.Metrics) *Adapter {
	return &Adapter{
		store:   store,
		logger:  logger,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Mirror returns a copy of the mirrored workspaces.
func (a *Adapter) Mirror() []Workspace {
	return a.mirror.Items()
}

// Lookup returns a mirrored workspace by id.
func (a *Adapter) Lookup(id string) (Workspace, bool) {
	return a.mirror.Get(id)
}

// List loads the caller's workspaces from the store, replaces the mirror
// with them and returns them ordered by last use, never-used last.
func (a *Adapter) List(ctx context.Context) ([]Workspace, error) {
	mu, err := a.remoteList(ctx)
	a.observe("list", err)
	if err != nil {
		return nil, err
	}
	a.mirror.Apply(mu)
	return a.mirror.Items(), nil
}

// Create inserts a workspace and, once the store has confirmed, prepends the
// store's copy of it to the mirror.
func (a *Adapter) Create(ctx context.Context, name, modelID, modelName string) (Workspace, error) {
	mu, err := a.remoteCreate(ctx, name, modelID, modelName)
	a.observe("create", err)
	if err != nil {
		return Workspace{}, err
	}
	a.mirror.Apply(mu)
	return mu.Workspace, nil
}

// Touch records that the workspace was opened now.
func (a *Adapter) Touch(ctx context.Context, id string) error {
	mu, err := a.remoteTouch(ctx, id)
	a.observe("touch", err)
	if err != nil {
		return err
	}
	a.mirror.Apply(mu)
	return nil
}

// Delete removes the workspace. Deleting an id that is already gone succeeds
// and leaves the mirror unchanged.
func (a *Adapter) Delete(ctx context.Context, id string) error {
	mu, err := a.remoteDelete(ctx, id)
	a.observe("delete", err)
	if err != nil {
		return err
	}
	a.mirror.Apply(mu)
	return nil
}

func (a *Adapter) remoteList(ctx context.Context) (Mutation, error) {
	user, ok := identity.UserFrom(ctx)
	if !ok {
		return Mutation{}, ErrUnauthenticated
	}

	records, err := a.store.ListByOwner(ctx, user.ID)
	if err != nil {
		return Mutation{}, a.remoteError("list", err)
	}

	SortRecords(records)
	workspaces := make([]Workspace, 0, len(records))
	for _, r := range records {
		workspaces = append(workspaces, FromRecord(r))
	}
	return Mutation{Kind: Replaced, Workspaces: workspaces}, nil
}

func (a *Adapter) remoteCreate(ctx context.Context, name, modelID, modelName string) (Mutation, error) {
	user, ok := identity.UserFrom(ctx)
	if !ok {
		return Mutation{}, ErrUnauthenticated
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return Mutation{}, ErrEmptyName
	}

	rec, err := a.store.Insert(ctx, Record{
		UserID:    user.ID,
		Name:      name,
		ModelID:   modelID,
		ModelName: modelName,
		CreatedAt: a.now(),
	})
	if err != nil {
		return Mutation{}, a.remoteError("create", err)
	}

	a.logger.Info("workspace created",
		zap.String("id", rec.ID),
		zap.String("model_id", rec.ModelID),
	)
	return Mutation{Kind: Created, Workspace: FromRecord(rec)}, nil
}

func (a *Adapter) remoteTouch(ctx context.Context, id string) (Mutation, error) {
	user, ok := identity.UserFrom(ctx)
	if !ok {
		return Mutation{}, ErrUnauthenticated
	}

	at := a.now()
	if err := a.store.UpdateLastUsed(ctx, user.ID, id, at); err != nil {
		return Mutation{}, a.remoteError("touch", err)
	}
	return Mutation{Kind: Touched, ID: id, At: at}, nil
}

func (a *Adapter) remoteDelete(ctx context.Context, id string) (Mutation, error) {
	user, ok := identity.UserFrom(ctx)
	if !ok {
		return Mutation{}, ErrUnauthenticated
	}

	if err := a.store.Delete(ctx, user.ID, id); err != nil {
		return Mutation{}, a.remoteError("delete", err)
	}

	a.logger.Info("workspace deleted", zap.String("id", id))
	return Mutation{Kind: Deleted, ID: id}, nil
}

func (a *Adapter) remoteError(op string, err error) error {
	a.logger.Error("workspace store failed", zap.String("op", op), zap.Error(err))
	return &RemoteError{Op: op, Err: err}
}

func (a *Adapter) observe(op string, err error) {
	a.metrics.ObserveWorkspaceOp(op, err)
}
