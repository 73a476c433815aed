// Package workspace keeps a per-user mirror of the remote workspace
// collection in step with the record store.
//
// Every mutation is sent to the store first. The mirror is only changed once
// the store has confirmed, so it never shows a state the store has not
// accepted.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrUnauthenticated is returned before any remote call when the context
// carries no signed-in user.
var ErrUnauthenticated = errors.New("workspace: not authenticated")

// ErrEmptyName is returned by Create for a blank workspace name.
var ErrEmptyName = errors.New("workspace: name must not be empty")

// Workspace is a named pairing of a model selection with its own conversation
// lifecycle, owned by one user.
type Workspace struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	ModelID   string     `json:"modelId" yaml:"modelId"`
	ModelName string     `json:"modelName" yaml:"modelName"`
	CreatedAt time.Time  `json:"createdAt" yaml:"createdAt"`
	LastUsed  *time.Time `json:"lastUsed,omitempty" yaml:"lastUsed,omitempty"`
	OwnerID   string     `json:"ownerId" yaml:"ownerId"`
}

// Record is the row shape at the record store boundary.
type Record struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	ModelID   string     `json:"model_id"`
	ModelName string     `json:"model_name"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used"`
}

// RecordStore is the remote per-user workspace collection. Implementations
// scope every operation to ownerID; updating or deleting an id the owner does
// not have is a no-op.
type RecordStore interface {
	// ListByOwner returns the owner's records ordered by last_used
	// descending, records never used last.
	ListByOwner(ctx context.Context, ownerID string) ([]Record, error)

	// Insert stores rec and returns it as persisted, with its id assigned.
	Insert(ctx context.Context, rec Record) (Record, error)

	// UpdateLastUsed sets last_used on the owner's record with id.
	UpdateLastUsed(ctx context.Context, ownerID, id string, at time.Time) error

	// Delete removes the owner's record with id.
	Delete(ctx context.Context, ownerID, id string) error

	// Close releases any resources held by the store.
	Close() error
}

// RemoteError wraps a failure reported by the record store.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("workspace %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Message is the store's failure message, suitable for showing inline.
func (e *RemoteError) Message() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

// FromRecord maps a store row to the in-memory shape.
func FromRecord(r Record) Workspace {
	return Workspace{
		ID:        r.ID,
		Name:      r.Name,
		ModelID:   r.ModelID,
		ModelName: r.ModelName,
		CreatedAt: r.CreatedAt,
		LastUsed:  copyTime(r.LastUsed),
		OwnerID:   r.UserID,
	}
}

// ToRecord maps a workspace to the store row shape.
func ToRecord(w Workspace) Record {
	return Record{
		ID:        w.ID,
		UserID:    w.OwnerID,
		Name:      w.Name,
		ModelID:   w.ModelID,
		ModelName: w.ModelName,
		CreatedAt: w.CreatedAt,
		LastUsed:  copyTime(w.LastUsed),
	}
}

// SortRecords orders records by last_used descending with nulls last. Ties
// keep their relative order.
func SortRecords(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return compareLastUsed(a.LastUsed, b.LastUsed)
	})
}

func compareLastUsed(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return b.Compare(*a)
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
