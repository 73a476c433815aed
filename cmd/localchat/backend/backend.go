// Package backend builds the services shared by the localchat subcommands
// from the loaded configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/localchat/cmd/localchat/sqlitepath"
	"github.com/papercomputeco/localchat/pkg/completion"
	"github.com/papercomputeco/localchat/pkg/config"
	"github.com/papercomputeco/localchat/pkg/identity"
	"github.com/papercomputeco/localchat/pkg/logger"
	"github.com/papercomputeco/localchat/pkg/metrics"
	"github.com/papercomputeco/localchat/pkg/workspace"
	"github.com/papercomputeco/localchat/pkg/workspace/inmemory"
	"github.com/papercomputeco/localchat/pkg/workspace/postgres"
	"github.com/papercomputeco/localchat/pkg/workspace/sqlite"
)

// TokenEnv may carry a session token for the CLI subcommands.
const TokenEnv = "LOCALCHAT_TOKEN"

// LoadConfig reads the --config and --debug persistent flags and loads the
// configuration they point at.
func LoadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if debug, err := cmd.Flags().GetBool("debug"); err == nil && debug {
		cfg.Log.Debug = true
	}
	return cfg, nil
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg config.Config) *zap.Logger {
	return logger.NewLogger(cfg.Log.Debug, cfg.Log.Format)
}

// NewCompleter builds the inference client from cfg.
func NewCompleter(cfg config.InferenceConfig, log *zap.Logger, m *metrics.Metrics) *completion.Client {
	return completion.New(completion.Config{
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout.Duration,
	}, log, m)
}

// OpenStore opens the record store named by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (workspace.RecordStore, error) {
	switch cfg.Driver {
	case "memory":
		log.Info("using in-memory workspace store")
		return inmemory.NewStore(), nil
	case "sqlite":
		path, err := sqlitepath.ResolveSQLitePath(cfg.DSN)
		if err != nil {
			return nil, err
		}
		store, err := sqlite.NewStore(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("could not open sqlite store %s: %w", path, err)
		}
		log.Info("using sqlite workspace store", zap.String("path", path))
		return store, nil
	case "postgres":
		store, err := postgres.NewStore(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("could not open postgres store: %w", err)
		}
		log.Info("using postgres workspace store")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// OpenIdentity connects the Redis identity provider.
func OpenIdentity(ctx context.Context, cfg config.SessionConfig) (*identity.RedisProvider, error) {
	provider, err := identity.NewRedisProvider(ctx, cfg.RedisURL, cfg.TTL.Duration)
	if err != nil {
		return nil, fmt.Errorf("could not connect identity provider: %w", err)
	}
	return provider, nil
}

// Authenticate resolves the CLI user. A token (flag or LOCALCHAT_TOKEN)
// wins; otherwise email is signed in with a password read from the terminal,
// or from the first line of in when it is not a terminal.
func Authenticate(ctx context.Context, cmd *cobra.Command, provider identity.Provider, email, token string) (context.Context, error) {
	if token == "" {
		token = os.Getenv(TokenEnv)
	}

	if token != "" {
		user, err := provider.CurrentUser(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("could not resolve session: %w", err)
		}
		return identity.WithUser(ctx, user), nil
	}

	if email == "" {
		return nil, errors.New("sign in with --email or provide a session token via --token or " + TokenEnv)
	}

	password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	sess, err := provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("could not sign in: %w", err)
	}
	return identity.WithUser(ctx, sess.User), nil
}

func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "Password: ")
	defer fmt.Fprintln(prompt)

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("could not read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := readLine(in)
	if err != nil {
		return "", fmt.Errorf("could not read password: %w", err)
	}
	return line, nil
}

// readLine reads up to the next newline one byte at a time so the rest of in
// is left for whoever reads it next.
func readLine(in io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.TrimRight(sb.String(), "\r"), nil
}
