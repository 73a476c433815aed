// Package proxy serves the chat endpoint, workspace management and sign-in
// over HTTP.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/localchat/pkg/completion"
	"github.com/papercomputeco/localchat/pkg/identity"
	"github.com/papercomputeco/localchat/pkg/llm"
	"github.com/papercomputeco/localchat/pkg/metrics"
	"github.com/papercomputeco/localchat/pkg/workspace"
)

// Completer produces the assistant's reply to a conversation.
type Completer interface {
	Complete(ctx context.Context, history []llm.Turn) (llm.NormalizedReply, error)
}

// Backends are the services the proxy fronts. Metrics may be nil.
type Backends struct {
	Completer Completer
	Store     workspace.RecordStore
	Identity  identity.Provider
	Metrics   *metrics.Metrics
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []llm.Turn `json:"messages"`
}

// Proxy is stateless between requests: every request that touches workspaces
// gets its own adapter, and the store and identity provider carry all state.
type Proxy struct {
	config   Config
	backends Backends
	logger   *zap.Logger
	server   *fiber.App
}

// New creates a new Proxy.
func New(config Config, backends Backends, logger *zap.Logger) *Proxy {
	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	p := &Proxy{
		config:   config,
		backends: backends,
		logger:   logger,
		server:   app,
	}

	app.Post("/api/chat", p.handleChat)
	app.Get("/api/models", p.handleModels)

	auth := app.Group("/api/auth")
	auth.Post("/signup", p.handleSignUp)
	auth.Post("/signin", p.handleSignIn)
	auth.Post("/logout", p.handleLogout)

	ws := app.Group("/api/workspaces", p.requireUser)
	ws.Get("/", p.handleListWorkspaces)
	ws.Post("/", p.handleCreateWorkspace)
	ws.Post("/:id/touch", p.handleTouchWorkspace)
	ws.Delete("/:id", p.handleDeleteWorkspace)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(backends.Metrics.Handler()))

	return p
}

// App exposes the underlying fiber app, mainly for tests.
func (p *Proxy) App() *fiber.App {
	return p.server
}

// Run starts the proxy server on the given listening address
func (p *Proxy) Run() error {
	p.logger.Info("starting proxy server",
		zap.String("listen", p.config.ListenAddr),
		zap.Int("models", len(p.config.Models)),
	)

	return p.server.Listen(p.config.ListenAddr)
}

// Close shuts down the server and releases the store and identity provider.
func (p *Proxy) Close() error {
	return errors.Join(
		p.server.Shutdown(),
		p.backends.Store.Close(),
		p.backends.Identity.Close(),
	)
}

// handleChat normalizes one completion for the posted conversation. The body
// is decoded as JSON whatever its Content-Type. Upstream failures carry the
// upstream body in details; any other failure, including an unreadable body,
// is an internal error.
func (p *Proxy) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()

	var req ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		p.logger.Error("failed to parse chat request", zap.Error(err))
		p.backends.Metrics.ObserveChat("error")
		return internalError(c, err)
	}

	p.logger.Debug("received chat request",
		zap.Int("message_count", len(req.Messages)),
	)

	reply, err := p.backends.Completer.Complete(c.UserContext(), req.Messages)
	if err != nil {
		p.backends.Metrics.ObserveChat("error")

		var upstream *completion.UpstreamError
		if errors.As(err, &upstream) {
			p.logger.Error("llama-server error",
				zap.Int("status", upstream.Status),
				zap.String("body", truncate(upstream.Body, 500)),
				zap.Error(upstream.Err),
			)
			return upstreamError(c, upstream)
		}

		p.logger.Error("chat completion failed", zap.Error(err))
		return internalError(c, err)
	}

	p.logger.Debug("chat request completed",
		zap.Duration("duration", time.Since(startTime)),
	)
	p.backends.Metrics.ObserveChat("ok")

	return c.JSON(reply)
}

func (p *Proxy) handleModels(c *fiber.Ctx) error {
	return c.JSON(p.config.Models)
}

func internalError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{
		Error:   "Internal server error",
		Details: err.Error(),
	})
}

// upstreamError reports the inference server's own body when it answered,
// and the transport error when it did not.
func upstreamError(c *fiber.Ctx, err *completion.UpstreamError) error {
	details := err.Body
	if details == "" {
		details = err.Error()
	}
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{
		Error:   "llama-server request failed",
		Details: details,
	})
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
