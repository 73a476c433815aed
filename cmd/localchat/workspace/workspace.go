package workspacecmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/localchat/cmd/localchat/backend"
	"github.com/papercomputeco/localchat/pkg/config"
	"github.com/papercomputeco/localchat/pkg/workspace"
)

const workspaceLongDesc string = `Manage your workspaces.

A workspace pairs a name with a model selection. Workspaces are stored in
the configured workspace store and scoped to the signed-in user.

Examples:
  localchat workspace list --email me@example.com
  localchat workspace create "Research notes" --model gpt-oss-20b
  localchat workspace list --output yaml
  localchat workspace delete 7c9e6679-7425-40de-944b-e07fc1f90ae7`

const workspaceShortDesc string = "Manage workspaces"

// Output formats for list and create.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

type workspaceCommander struct {
	email  string
	token  string
	output string
	model  string
}

// env is what every workspace subcommand operates on once signed in.
type env struct {
	ctx     context.Context
	cfg     config.Config
	adapter *workspace.Adapter
	close   func()
}

func NewWorkspaceCmd() *cobra.Command {
	cmder := &workspaceCommander{}

	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   workspaceShortDesc,
		Long:    workspaceLongDesc,
	}

	cmd.PersistentFlags().StringVarP(&cmder.email, "email", "e", "", "Email to sign in with (password is prompted)")
	cmd.PersistentFlags().StringVarP(&cmder.token, "token", "t", "", "Existing session token")
	cmd.PersistentFlags().StringVarP(&cmder.output, "output", "o", OutputTable, "Output format: table, json or yaml")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List workspaces, most recently used first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.withEnv(cmd, func(e *env) error {
				items, err := e.adapter.List(e.ctx)
				if err != nil {
					return describe(err)
				}
				return cmder.print(cmd.OutOrStdout(), items)
			})
		},
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.withEnv(cmd, func(e *env) error {
				return cmder.create(e, cmd.OutOrStdout(), args[0])
			})
		},
	}
	createCmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model id from the catalogue (default: inference.model)")

	touchCmd := &cobra.Command{
		Use:   "touch <id>",
		Short: "Mark a workspace as just used",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.withEnv(cmd, func(e *env) error {
				if err := e.adapter.Touch(e.ctx, args[0]); err != nil {
					return describe(err)
				}
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.withEnv(cmd, func(e *env) error {
				if err := e.adapter.Delete(e.ctx, args[0]); err != nil {
					return describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted workspace %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(listCmd, createCmd, touchCmd, deleteCmd)
	return cmd
}

func (c *workspaceCommander) withEnv(cmd *cobra.Command, fn func(*env) error) error {
	switch c.output {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("unknown output format %q", c.output)
	}

	e, err := c.open(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer e.close()

	return fn(e)
}

func (c *workspaceCommander) open(ctx context.Context, cmd *cobra.Command) (*env, error) {
	cfg, err := backend.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if cfg.Log.Debug {
		logger = backend.NewLogger(cfg)
	}

	store, err := backend.OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	ids, err := backend.OpenIdentity(ctx, cfg.Session)
	if err != nil {
		store.Close()
		return nil, err
	}

	ctx, err = backend.Authenticate(ctx, cmd, ids, c.email, c.token)
	if err != nil {
		store.Close()
		ids.Close()
		return nil, err
	}

	return &env{
		ctx:     ctx,
		cfg:     cfg,
		adapter: workspace.NewAdapter(store, logger, nil),
		close: func() {
			store.Close()
			ids.Close()
			_ = logger.Sync()
		},
	}, nil
}

func (c *workspaceCommander) create(e *env, out io.Writer, name string) error {
	modelID := c.model
	if modelID == "" {
		modelID = e.cfg.Inference.Model
	}

	model, ok := e.cfg.Model(modelID)
	if !ok {
		return fmt.Errorf("unknown model %q", modelID)
	}

	ws, err := e.adapter.Create(e.ctx, name, model.ID, model.Name)
	if err != nil {
		return describe(err)
	}
	return c.print(out, []workspace.Workspace{ws})
}

func (c *workspaceCommander) print(out io.Writer, items []workspace.Workspace) error {
	switch c.output {
	case OutputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case OutputYAML:
		enc := yaml.NewEncoder(out)
		defer func() { _ = enc.Close() }()
		return enc.Encode(items)
	}

	if len(items) == 0 {
		fmt.Fprintln(out, "No workspaces.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMODEL\tLAST USED")
	for _, ws := range items {
		lastUsed := "never"
		if ws.LastUsed != nil {
			lastUsed = ws.LastUsed.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ws.ID, ws.Name, ws.ModelName, lastUsed)
	}
	return tw.Flush()
}

// describe turns adapter errors into messages fit for a terminal.
func describe(err error) error {
	var remote *workspace.RemoteError
	switch {
	case errors.As(err, &remote):
		return fmt.Errorf("workspace store: %s", remote.Message())
	case errors.Is(err, workspace.ErrUnauthenticated):
		return errors.New("sign in to manage workspaces")
	default:
		return err
	}
}
