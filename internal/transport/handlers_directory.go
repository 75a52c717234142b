package transport

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rpggio/agencyops/internal/domain/client"
	"github.com/rpggio/agencyops/internal/domain/project"
	"github.com/rpggio/agencyops/internal/domain/user"
	"github.com/rpggio/agencyops/internal/errs"
)

// ListClients handles GET /api/v1/clients.
func (h *Handlers) ListClients(c *fiber.Ctx) error {
	opts := client.ListOptions{WithRetainer: c.QueryBool("with_retainer", false)}
	if raw := c.Query("status"); raw != "" {
		st, err := client.ParseStatus(raw)
		if err != nil {
			return err
		}
		opts.Status = st
	}
	clients, err := h.svc.Clients.List(c.UserContext(), actorFrom(c), opts)
	if err != nil {
		return err
	}
	return c.JSON(listOf(clients, 0, 0))
}

// CreateClient handles POST /api/v1/clients.
func (h *Handlers) CreateClient(c *fiber.Ctx) error {
	var req client.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	cl, err := h.svc.Clients.Create(c.UserContext(), actorFrom(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(cl)
}

// GetClient handles GET /api/v1/clients/:id.
func (h *Handlers) GetClient(c *fiber.Ctx) error {
	cl, err := h.svc.Clients.Get(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(cl)
}

// UpdateClient handles PATCH /api/v1/clients/:id.
func (h *Handlers) UpdateClient(c *fiber.Ctx) error {
	var req client.UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	cl, err := h.svc.Clients.Update(c.UserContext(), actorFrom(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(cl)
}

// DeleteClient handles DELETE /api/v1/clients/:id.
func (h *Handlers) DeleteClient(c *fiber.Ctx) error {
	if err := h.svc.Clients.Delete(c.UserContext(), actorFrom(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListSites handles GET /api/v1/clients/:id/sites.
func (h *Handlers) ListSites(c *fiber.Ctx) error {
	sites, err := h.svc.Clients.Sites(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(listOf(sites, 0, 0))
}

// CreateSite handles POST /api/v1/clients/:id/sites.
func (h *Handlers) CreateSite(c *fiber.Ctx) error {
	var req client.SiteRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	site, err := h.svc.Clients.CreateSite(c.UserContext(), actorFrom(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(site)
}

// ListProjects handles GET /api/v1/projects.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	projects, err := h.svc.Projects.List(c.UserContext(), actorFrom(c), project.ListOptions{
		ClientID: c.Query("client_id"),
	})
	if err != nil {
		return err
	}
	return c.JSON(listOf(projects, 0, 0))
}

// CreateProject handles POST /api/v1/projects.
func (h *Handlers) CreateProject(c *fiber.Ctx) error {
	var req project.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	p, err := h.svc.Projects.Create(c.UserContext(), actorFrom(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// GetProject handles GET /api/v1/projects/:id.
func (h *Handlers) GetProject(c *fiber.Ctx) error {
	p, err := h.svc.Projects.Get(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// AddProjectMember handles POST /api/v1/projects/:id/members.
func (h *Handlers) AddProjectMember(c *fiber.Ctx) error {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	if req.UserID == "" {
		return errs.Validation("user_id is required")
	}
	if err := h.svc.Projects.AddMember(c.UserContext(), actorFrom(c), c.Params("id"), req.UserID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListUsers handles GET /api/v1/users.
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.svc.Users.List(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(listOf(users, 0, 0))
}

// CreateUser handles POST /api/v1/users.
func (h *Handlers) CreateUser(c *fiber.Ctx) error {
	var req user.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	u, err := h.svc.Users.Create(c.UserContext(), actorFrom(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}
