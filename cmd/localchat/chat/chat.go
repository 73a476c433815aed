package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/localchat/cmd/localchat/backend"
	"github.com/papercomputeco/localchat/pkg/session"
	"github.com/papercomputeco/localchat/pkg/workspace"
)

const chatLongDesc string = `Chat with the local model from the terminal.

Each message you send carries the conversation so far. Input is disabled
while the model is answering. Answers are rendered as markdown, followed by
the model's short explanation.

Commands:
  /new          start a fresh conversation
  /workspaces   list your workspaces
  /open <id>    open a workspace and start a fresh conversation in it
  /quit         leave (or Ctrl+C)

Examples:
  localchat chat --email me@example.com
  LOCALCHAT_TOKEN=... localchat chat --workspace 7c9e6679-7425-40de-944b-e07fc1f90ae7`

const chatShortDesc string = "Interactive chat with the local model"

var (
	userLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true)

	explanationStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true).
				PaddingLeft(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

type chatCommander struct {
	email       string
	token       string
	workspaceID string
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.email, "email", "e", "", "Email to sign in with (password is prompted)")
	cmd.Flags().StringVarP(&cmder.token, "token", "t", "", "Existing session token")
	cmd.Flags().StringVarP(&cmder.workspaceID, "workspace", "w", "", "Workspace id to open on start")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := backend.LoadConfig(cmd)
	if err != nil {
		return err
	}

	// Logs go to stdout, which the conversation owns unless debugging.
	logger := zap.NewNop()
	if cfg.Log.Debug {
		logger = backend.NewLogger(cfg)
		defer logger.Sync()
	}

	store, err := backend.OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ids, err := backend.OpenIdentity(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer ids.Close()

	ctx, err = backend.Authenticate(ctx, cmd, ids, c.email, c.token)
	if err != nil {
		return err
	}

	ctrl := session.New(
		backend.NewCompleter(cfg.Inference, logger, nil),
		workspace.NewAdapter(store, logger, nil),
		logger,
	)

	if c.workspaceID != "" {
		if _, err := ctrl.Workspaces(ctx); err != nil {
			return fmt.Errorf("could not load workspaces: %w", err)
		}
		if _, err := ctrl.OpenWorkspace(ctx, c.workspaceID); err != nil {
			return fmt.Errorf("could not open workspace: %w", err)
		}
	}

	renderer, err := newRenderer(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("could not create markdown renderer: %w", err)
	}

	p := tea.NewProgram(
		newChatModel(ctx, ctrl, renderer),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat session failed: %w", err)
	}
	return nil
}

func workspaceMessage(err error) error {
	var remote *workspace.RemoteError
	if errors.As(err, &remote) {
		return errors.New(remote.Message())
	}
	if errors.Is(err, workspace.ErrUnauthenticated) {
		return errors.New("sign in to manage workspaces")
	}
	return err
}

func newRenderer(out io.Writer) (*glamour.TermRenderer, error) {
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
	}
	return glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(80),
	)
}
