package servecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/localchat/cmd/localchat/backend"
	"github.com/papercomputeco/localchat/pkg/config"
	"github.com/papercomputeco/localchat/pkg/metrics"
	"github.com/papercomputeco/localchat/proxy"
)

const serveLongDesc string = `Run the localchat HTTP server.

Serves the chat endpoint in front of a local OpenAI-compatible inference
server, plus workspace management and sign-in for the browser UI.

Examples:
  localchat serve
  localchat serve --listen :8080 --upstream http://localhost:8000
  localchat serve --config /etc/localchat.toml --store sqlite`

const serveShortDesc string = "Run the chat proxy server"

type serveCommander struct {
	listen   string
	upstream string
	store    string
	dsn      string
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (overrides config)")
	cmd.Flags().StringVarP(&cmder.upstream, "upstream", "u", "", "Inference server base URL (overrides config)")
	cmd.Flags().StringVar(&cmder.store, "store", "", "Workspace store driver: memory, sqlite or postgres")
	cmd.Flags().StringVar(&cmder.dsn, "dsn", "", "Store DSN: sqlite path or postgres URL")

	return cmd
}

// applyFlags layers explicitly set flags over the loaded config.
func (c *serveCommander) applyFlags(cfg *config.Config) error {
	if c.listen != "" {
		cfg.Server.ListenAddr = c.listen
	}
	if c.upstream != "" {
		cfg.Inference.BaseURL = c.upstream
	}
	if c.store != "" {
		cfg.Store.Driver = c.store
	}
	if c.dsn != "" {
		cfg.Store.DSN = c.dsn
	}
	return cfg.Validate()
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := backend.LoadConfig(cmd)
	if err != nil {
		return err
	}
	if err := c.applyFlags(&cfg); err != nil {
		return err
	}

	logger := backend.NewLogger(cfg)
	defer logger.Sync()

	logger.Info("localchat starting",
		zap.String("listen", cfg.Server.ListenAddr),
		zap.String("upstream", cfg.Inference.BaseURL),
		zap.String("model", cfg.Inference.Model),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("debug", cfg.Log.Debug),
	)

	m := metrics.New("localchat")

	store, err := backend.OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}

	ids, err := backend.OpenIdentity(ctx, cfg.Session)
	if err != nil {
		store.Close()
		return err
	}

	p := proxy.New(proxy.Config{
		ListenAddr:   cfg.Server.ListenAddr,
		Models:       cfg.Models,
		SessionTTL:   cfg.Session.TTL.Duration,
		SecureCookie: cfg.Session.SecureCookie,
	}, proxy.Backends{
		Completer: backend.NewCompleter(cfg.Inference, logger, m),
		Store:     store,
		Identity:  ids,
		Metrics:   m,
	}, logger)

	go func() {
		<-ctx.Done()
		if err := p.Close(); err != nil {
			logger.Error("failed to shut down cleanly", zap.Error(err))
		}
	}()

	if err := p.Run(); err != nil {
		return fmt.Errorf("proxy server failed: %w", err)
	}
	return nil
}
