package proxy

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/localchat/pkg/llm"
	"github.com/papercomputeco/localchat/pkg/workspace"
)

// CreateWorkspaceRequest is the body of POST /api/workspaces.
type CreateWorkspaceRequest struct {
	Name      string `json:"name"`
	ModelID   string `json:"modelId"`
	ModelName string `json:"modelName"`
}

func (p *Proxy) adapter() *workspace.Adapter {
	return workspace.NewAdapter(p.backends.Store, p.logger, p.backends.Metrics)
}

func (p *Proxy) handleListWorkspaces(c *fiber.Ctx) error {
	items, err := p.adapter().List(c.UserContext())
	if err != nil {
		return workspaceError(c, err)
	}
	return c.JSON(items)
}

func (p *Proxy) handleCreateWorkspace(c *fiber.Ctx) error {
	var req CreateWorkspaceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	if req.ModelID != "" {
		model, ok := p.config.model(req.ModelID)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
				Error:   "unknown model",
				Details: req.ModelID,
			})
		}
		if req.ModelName == "" {
			req.ModelName = model.Name
		}
	}

	ws, err := p.adapter().Create(c.UserContext(), req.Name, req.ModelID, req.ModelName)
	if err != nil {
		return workspaceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ws)
}

func (p *Proxy) handleTouchWorkspace(c *fiber.Ctx) error {
	if err := p.adapter().Touch(c.UserContext(), c.Params("id")); err != nil {
		return workspaceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (p *Proxy) handleDeleteWorkspace(c *fiber.Ctx) error {
	if err := p.adapter().Delete(c.UserContext(), c.Params("id")); err != nil {
		return workspaceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func workspaceError(c *fiber.Ctx, err error) error {
	var remote *workspace.RemoteError
	switch {
	case errors.Is(err, workspace.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(llm.ErrorResponse{Error: "sign in required"})
	case errors.Is(err, workspace.ErrEmptyName):
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	case errors.As(err, &remote):
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{
			Error:   "workspace store failed",
			Details: remote.Message(),
		})
	default:
		return internalError(c, err)
	}
}
