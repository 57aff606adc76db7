package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/projects_api/internal/apperr"
	"github.com/Skotchmaster/projects_api/internal/logging"
	"github.com/Skotchmaster/projects_api/internal/principal"
	"github.com/Skotchmaster/projects_api/internal/service"
	"github.com/Skotchmaster/projects_api/internal/transport"
)

type ProjectHTTP struct {
	Svc *service.ProjectService
}

func (h *ProjectHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := caller(c)
	if err != nil {
		return err
	}

	in, err := bindProject(c)
	if err != nil {
		return err
	}
	proj, err := h.Svc.Create(ctx, p, in)
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info("project_created", "project_id", proj.ID)
	return c.JSON(http.StatusCreated, transport.NewProjectResponse(proj))
}

func (h *ProjectHTTP) Get(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	id, err := projectID(c)
	if err != nil {
		return err
	}

	proj, err := h.Svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.NewProjectResponse(proj))
}

func (h *ProjectHTTP) Update(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	id, err := projectID(c)
	if err != nil {
		return err
	}
	in, err := bindProject(c)
	if err != nil {
		return err
	}

	proj, err := h.Svc.Update(c.Request().Context(), p, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.NewProjectResponse(proj))
}

func (h *ProjectHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := caller(c)
	if err != nil {
		return err
	}
	id, err := projectID(c)
	if err != nil {
		return err
	}

	if err := h.Svc.Delete(ctx, p, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("project_deleted", "project_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *ProjectHTTP) List(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}

	params := service.ListParams{Query: c.QueryParam("q")}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return apperr.Validation(apperr.MsgValidation, map[string]string{"active": "must be true or false"})
		}
		params.Active = &active
	}
	params.Page, _ = strconv.Atoi(c.QueryParam("page"))
	params.Size, _ = strconv.Atoi(c.QueryParam("size"))

	page, err := h.Svc.List(c.Request().Context(), p, params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.NewProjectListResponse(page.Items, page.Meta))
}

func caller(c echo.Context) (principal.Principal, error) {
	p, ok := principal.FromContext(c.Request().Context())
	if !ok {
		return principal.Principal{}, apperr.Unauthorized(apperr.MsgUnauthorized)
	}
	return p, nil
}

func projectID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(apperr.MsgValidation, map[string]string{"id": "must be a positive integer"})
	}
	return uint(id), nil
}

func bindProject(c echo.Context) (service.ProjectInput, error) {
	var req transport.ProjectRequest
	if err := c.Bind(&req); err != nil {
		logging.FromContext(c.Request().Context()).Warn("project_bind_error", "status", 400, "error", err)
		return service.ProjectInput{}, apperr.Validation(apperr.MsgInvalidJSON, nil)
	}
	return service.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Value:       req.Value,
		Active:      req.Active,
		StartDate:   req.StartDate.TimePtr(),
		EndDate:     req.EndDate.TimePtr(),
	}, nil
}
