package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/admin-dashboard/internal/model"
	"github.com/iliyamo/admin-dashboard/internal/service"
)

const invalidUserID = "Invalid user ID"

// UserHandler serves /api/users. Every route requires an admin.
type UserHandler struct {
	svc *service.Users
}

func NewUserHandler(svc *service.Users) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) List(c echo.Context) error {
	in := service.ListUsersInput{
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", 10),
		Search:    strings.TrimSpace(c.QueryParam("search")),
		Role:      model.Role(c.QueryParam("role")),
		IsActive:  queryBool(c, "isActive"),
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	users, page, err := h.svc.List(ctx, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users, "pagination": pageJSON(page, "totalUsers")})
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c, invalidUserID)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

func (h *UserHandler) Create(c echo.Context) error {
	me, err := actor(c)
	if err != nil {
		return err
	}
	var req service.CreateUserInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.svc.Create(ctx, req, me.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "User created successfully", "user": u})
}

func (h *UserHandler) Update(c echo.Context) error {
	me, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, invalidUserID)
	if err != nil {
		return err
	}
	var req service.UpdateUserInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.svc.Update(ctx, id, req, me.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User updated successfully", "user": u})
}

// Delete deactivates the user; rows are never removed.
func (h *UserHandler) Delete(c echo.Context) error {
	me, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, invalidUserID)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.svc.Deactivate(ctx, id, me.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User deactivated successfully"})
}

func (h *UserHandler) Activate(c echo.Context) error {
	me, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, invalidUserID)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.svc.Activate(ctx, id, me.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User activated successfully", "user": u})
}

func (h *UserHandler) Overview(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	o, err := h.svc.Overview(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}
