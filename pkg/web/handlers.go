package web

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/flowdesk/pkg/editor"
	"github.com/dukex/flowdesk/pkg/exchange"
	"github.com/dukex/flowdesk/pkg/models"
	"github.com/dukex/flowdesk/pkg/render"
	"github.com/dukex/flowdesk/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// Headers carrying the caller identity.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
	HeaderUserRole = "X-User-Role"
)

type APIHandlers struct {
	templateService *services.Template
	sessions        *services.Sessions
	validator       *validator.Validate
}

func NewAPIHandlers(
	templateService *services.Template,
	sessions *services.Sessions,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		templateService: templateService,
		sessions:        sessions,
		validator:       validator,
	}
}

func sessionContext(c fiber.Ctx) models.SessionContext {
	return models.SessionContext{
		UserID:   c.Get(HeaderUserID),
		UserName: c.Get(HeaderUserName),
		Role:     c.Get(HeaderUserRole),
	}
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	req, err := parseListTemplatesRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.templateService.List(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"templates":     result.Templates,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
	})
}

// parseListTemplatesRequest parses query parameters for listing templates.
func parseListTemplatesRequest(c fiber.Ctx) (*services.ListTemplatesRequest, error) {
	req := &services.ListTemplatesRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	if activeStr := c.Query("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			return nil, err
		}

		req.Active = &active
	}

	req.Type = models.TemplateType(c.Query("type"))
	req.Owner = c.Query("owner")
	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	template, err := h.templateService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) CreateTemplate(c fiber.Ctx) error {
	var req CreateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.templateService.Create(c.Context(), sessionContext(c), req.Template())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateTemplate(c fiber.Ctx) error {
	var req services.UpdateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.templateService.Update(c.Context(), sessionContext(c), c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteTemplate(c fiber.Ctx) error {
	if err := h.templateService.Delete(c.Context(), sessionContext(c), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ImportTemplate stores the request body as a new template. The format comes
// from ?format= or, failing that, the Content-Type.
func (h *APIHandlers) ImportTemplate(c fiber.Ctx) error {
	format, err := requestFormat(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.templateService.Import(c.Context(), sessionContext(c), c.Body(), format)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) ExportTemplate(c fiber.Ctx) error {
	format, err := exchange.ParseFormat(c.Query("format"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	document, err := h.templateService.Export(c.Context(), c.Params("id"), format)
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, format.ContentType())
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+c.Params("id")+"."+format.Extension()+`"`)

	return c.Send(document)
}

func (h *APIHandlers) RenderTemplate(c fiber.Ctx) error {
	template, err := h.templateService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	zoom := editor.DefaultZoom

	if zoomStr := c.Query("zoom"); zoomStr != "" {
		zoom, err = strconv.ParseFloat(zoomStr, 64)
		if err != nil {
			return badRequest(c, "zoom must be a number")
		}
	}

	return sendScene(c, render.Layout(template.Nodes, template.Edges, editor.Selection{}, zoom))
}

func sendScene(c fiber.Ctx, scene render.Scene) error {
	var buf bytes.Buffer

	switch c.Query("format", "svg") {
	case "svg":
		if err := render.SVG(&buf, scene); err != nil {
			return internalError(c, err)
		}

		c.Set(fiber.HeaderContentType, "image/svg+xml")
	case "png":
		if err := render.PNG(&buf, scene); err != nil {
			return internalError(c, err)
		}

		c.Set(fiber.HeaderContentType, "image/png")
	default:
		return badRequest(c, "format must be svg or png")
	}

	return c.Send(buf.Bytes())
}

func requestFormat(c fiber.Ctx) (exchange.Format, error) {
	if format := c.Query("format"); format != "" {
		return exchange.ParseFormat(format)
	}

	switch c.Get(fiber.HeaderContentType) {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return exchange.FormatYAML, nil
	default:
		return exchange.FormatJSON, nil
	}
}

func (h *APIHandlers) GetNodeCatalog(c fiber.Ctx) error {
	return c.JSON(models.Palette())
}

func (h *APIHandlers) GetDataSourceCatalog(c fiber.Ctx) error {
	return c.JSON(models.DataSourceCatalog())
}

func (h *APIHandlers) GetSchema(c fiber.Ctx) error {
	return c.JSON(exchange.Schema())
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.templateService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowdesk API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Flowdesk API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"open_sessions": len(h.sessions.List("")),
		"timestamp":     time.Now().UTC(),
	})
}
