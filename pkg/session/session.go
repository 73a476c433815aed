// Package session holds the chat transcript and the active workspace for one
// signed-in user.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/localchat/pkg/completion"
	"github.com/papercomputeco/localchat/pkg/llm"
	"github.com/papercomputeco/localchat/pkg/workspace"
)

// Assistant turns appended when a completion fails.
const (
	// UpstreamFailureMessage is used when the inference server could not be
	// reached or answered with an error.
	UpstreamFailureMessage = "Error: failed to reach the local model server."
	// GenericFailureMessage is used for every other failure.
	GenericFailureMessage = "Unexpected error while calling the API."
)

// ErrEmptyMessage is returned by Send for blank input.
var ErrEmptyMessage = errors.New("session: message must not be empty")

// ErrNoWorkspace is returned by OpenWorkspace for an id the mirror does not
// hold.
var ErrNoWorkspace = errors.New("session: workspace not found")

// Completer turns a transcript into the assistant's next reply.
type Completer interface {
	Complete(ctx context.Context, history []llm.Turn) (llm.NormalizedReply, error)
}

// Controller is not safe for concurrent use.
type Controller struct {
	completer  Completer
	workspaces *workspace.Adapter
	logger     *zap.Logger

	transcript []llm.Turn
	active     *workspace.Workspace
}

// New creates a new Controller.
func New(completer Completer, workspaces *workspace.Adapter, logger *zap.Logger) *Controller {
	return &Controller{
		completer:  completer,
		workspaces: workspaces,
		logger:     logger,
	}
}

// Send appends text as a user turn and asks the completer for a reply. On
// failure the transcript gains an assistant turn with a failure message and
// the error is returned so the caller can offer a retry.
func (c *Controller) Send(ctx context.Context, text string) (llm.Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return llm.Turn{}, ErrEmptyMessage
	}

	c.transcript = append(c.transcript, llm.Turn{Role: llm.RoleUser, Content: text})

	reply, err := c.completer.Complete(ctx, slices.Clone(c.transcript))
	if err != nil {
		c.logger.Error("completion failed", zap.Error(err))
		turn := llm.Turn{Role: llm.RoleAssistant, Content: failureMessage(err)}
		c.transcript = append(c.transcript, turn)
		return turn, err
	}

	turn := llm.Turn{
		Role:        llm.RoleAssistant,
		Content:     reply.Answer,
		Explanation: reply.Explanation,
	}
	c.transcript = append(c.transcript, turn)
	return turn, nil
}

func failureMessage(err error) string {
	var upstream *completion.UpstreamError
	if errors.As(err, &upstream) {
		return UpstreamFailureMessage
	}
	return GenericFailureMessage
}

// Transcript returns a copy of the conversation so far.
func (c *Controller) Transcript() []llm.Turn {
	return slices.Clone(c.transcript)
}

// Reset drops the conversation but keeps the active workspace.
func (c *Controller) Reset() {
	c.transcript = nil
}

// Active returns the open workspace, if any.
func (c *Controller) Active() (workspace.Workspace, bool) {
	if c.active == nil {
		return workspace.Workspace{}, false
	}
	return *c.active, true
}

// Workspaces reloads the caller's workspaces from the store.
func (c *Controller) Workspaces(ctx context.Context) ([]workspace.Workspace, error) {
	return c.workspaces.List(ctx)
}

// CreateWorkspace creates a workspace bound to the given model.
func (c *Controller) CreateWorkspace(ctx context.Context, name, modelID, modelName string) (workspace.Workspace, error) {
	return c.workspaces.Create(ctx, name, modelID, modelName)
}

// DeleteWorkspace removes a workspace. Deleting the open workspace closes it.
func (c *Controller) DeleteWorkspace(ctx context.Context, id string) error {
	if err := c.workspaces.Delete(ctx, id); err != nil {
		return err
	}
	if c.active != nil && c.active.ID == id {
		c.active = nil
		c.transcript = nil
	}
	return nil
}

// OpenWorkspace marks the workspace as used and starts a fresh transcript
// bound to it. The workspace must already be in the mirror, so callers list
// or create first.
func (c *Controller) OpenWorkspace(ctx context.Context, id string) (workspace.Workspace, error) {
	if _, ok := c.workspaces.Lookup(id); !ok {
		return workspace.Workspace{}, fmt.Errorf("%w: %s", ErrNoWorkspace, id)
	}

	if err := c.workspaces.Touch(ctx, id); err != nil {
		return workspace.Workspace{}, err
	}

	ws, _ := c.workspaces.Lookup(id)
	c.active = &ws
	c.transcript = nil

	c.logger.Debug("workspace opened",
		zap.String("id", ws.ID),
		zap.String("model_id", ws.ModelID),
	)
	return ws, nil
}
