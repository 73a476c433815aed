// Command localchat serves and drives a chat front end for a local
// OpenAI-compatible inference server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/localchat/cmd/localchat/chat"
	servecmder "github.com/papercomputeco/localchat/cmd/localchat/serve"
	workspacecmder "github.com/papercomputeco/localchat/cmd/localchat/workspace"
)

const rootLongDesc string = `localchat is a chat front end for a model served locally by an
OpenAI-compatible inference server such as llama.cpp's llama-server.

Configuration is read from a TOML file (--config), then overridden by
environment variables such as LLAMA_BASE_URL, DATABASE_URL and REDIS_URL,
then by command flags.`

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "localchat",
		Short:         "Chat with a locally served model",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "localchat.toml", "Path to the TOML config file (ignored if missing)")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	cmd.AddCommand(
		servecmder.NewServeCmd(),
		chatcmder.NewChatCmd(),
		workspacecmder.NewWorkspaceCmd(),
	)

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
